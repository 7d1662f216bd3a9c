package embedding

import (
	"errors"
	"testing"
)

func TestNoneProviderFailsEmbed(t *testing.T) {
	p := NoneProvider{Dim: 4}
	if _, err := p.Embed("text", PurposeQuery); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("err = %v, want ErrNoProvider", err)
	}
	if p.Dimensions() != 4 {
		t.Errorf("Dimensions() = %d, want 4", p.Dimensions())
	}
	if p.Name() != "none" {
		t.Errorf("Name() = %q, want \"none\"", p.Name())
	}
}
