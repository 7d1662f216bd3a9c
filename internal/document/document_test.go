package document

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Alpha Project":   "alpha-project",
		"  Weird!! Title": "weird-title",
		"already-slug":    "already-slug",
		"Trailing---":     "trailing",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateID(t *testing.T) {
	got := GenerateID("project", "Alpha Project", 2)
	want := "proj-alpha-project-002"
	if got != want {
		t.Errorf("GenerateID = %q, want %q", got, want)
	}
}

func TestTypeDir(t *testing.T) {
	cases := map[string]string{
		"project":  "projects",
		"meeting":  "meetings",
		"person":   "people",
		"decision": "decisions",
		"signal":   "signals",
		"widget":   "widgets",
	}
	for in, want := range cases {
		if got := TypeDir(in); got != want {
			t.Errorf("TypeDir(%q) = %q, want %q", in, got, want)
		}
	}
}
