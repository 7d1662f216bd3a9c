package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkb-project/mkb/internal/query"
)

func searchCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Full-text search over the vault's index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			v, _, err := openVault()
			if err != nil {
				return err
			}
			db, err := openIndex(v)
			if err != nil {
				return err
			}
			defer db.Close()

			hits, err := db.SearchFTS(q)
			if err != nil {
				return err
			}
			rows := make([]map[string]interface{}, len(hits))
			for i, h := range hits {
				rows[i] = map[string]interface{}{
					"id":       h.ID,
					"title":    h.Title,
					"doc_type": h.DocType,
					"rank":     h.Rank,
				}
			}
			out, err := query.FormatResult(query.QueryResult{Rows: rows, Total: len(rows)}, query.Format(format))
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: json, table, markdown")
	return cmd
}
