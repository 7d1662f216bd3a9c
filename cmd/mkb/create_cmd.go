package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkb-project/mkb/internal/document"
	"github.com/mkb-project/mkb/internal/schema"
	"github.com/mkb-project/mkb/internal/temporal"
)

func createCmd() *cobra.Command {
	var (
		docType    string
		title      string
		body       string
		confidence float64
		observedAt string
		validUntil string
		precision  string
		profile    string
		tags       []string
		fields     []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a document in the vault and index it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if docType == "" || title == "" {
				return fmt.Errorf("--type and --title are required")
			}

			v, _, err := openVault()
			if err != nil {
				return err
			}
			db, err := openIndex(v)
			if err != nil {
				return err
			}
			defer db.Close()

			slug := document.Slugify(title)
			counter, err := v.NextCounter(docType, slug)
			if err != nil {
				return err
			}

			fieldMap, err := parseFields(fields)
			if err != nil {
				return err
			}

			reg := schema.NewRegistry()
			if result := reg.Validate(docType, fieldMap); !result.OK() {
				return fmt.Errorf("schema validation failed: %v", result.Errors)
			}

			doc := document.Document{
				ID:         document.GenerateID(docType, title, counter),
				DocType:    docType,
				Title:      title,
				CreatedAt:  time.Now().UTC(),
				ModifiedAt: time.Now().UTC(),
				Confidence: confidence,
				Fields:     fieldMap,
				Tags:       tags,
				Body:       body,
			}
			if observedAt != "" {
				t, err := time.Parse(time.RFC3339, observedAt)
				if err != nil {
					return fmt.Errorf("--observed-at: %w", err)
				}
				doc.Temporal.ObservedAt = t
			} else {
				doc.Temporal.ObservedAt = time.Now().UTC()
			}
			if validUntil != "" {
				t, err := time.Parse(time.RFC3339, validUntil)
				if err != nil {
					return fmt.Errorf("--valid-until: %w", err)
				}
				doc.Temporal.ValidUntil = t
			}
			if precision != "" {
				doc.Temporal.TemporalPrecision = document.Precision(precision)
			}

			decay := temporal.Lookup(profile)
			path, err := v.Create(doc, decay)
			if err != nil {
				return err
			}
			// Embedding happens out-of-band (mkb reindex); creation only
			// needs the vault write and relational index row.
			if err := db.IndexDocument(doc); err != nil {
				return err
			}
			fmt.Printf("created %s at %s\n", doc.ID, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&docType, "type", "", "Document type (project, meeting, decision, signal, person, ...)")
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&body, "body", "", "Document body (markdown)")
	cmd.Flags().Float64Var(&confidence, "confidence", document.DefaultConfidence, "Initial confidence (0-1)")
	cmd.Flags().StringVar(&observedAt, "observed-at", "", "RFC3339 timestamp; defaults to now")
	cmd.Flags().StringVar(&validUntil, "valid-until", "", "RFC3339 timestamp; defaults to the profile's decay")
	cmd.Flags().StringVar(&precision, "precision", "exact", "Temporal precision (exact, day, week, month, quarter, approximate, inferred)")
	cmd.Flags().StringVar(&profile, "profile", "default", "Decay profile name")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringSliceVar(&fields, "field", nil, "Typed field as name=value (repeatable)")
	return cmd
}

// parseFields turns "name=value" pairs into document.TaggedValue, always as
// strings; richer types are assigned by editing the frontmatter directly.
func parseFields(raw []string) (map[string]document.TaggedValue, error) {
	out := map[string]document.TaggedValue{}
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("--field %q: expected name=value", kv)
		}
		out[parts[0]] = document.TaggedValueFromAny(parts[1])
	}
	return out, nil
}
