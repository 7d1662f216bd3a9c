package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkb-project/mkb/internal/mkql"
	"github.com/mkb-project/mkb/internal/query"
)

func queryCmd() *cobra.Command {
	var (
		format    string
		semanticK int
	)
	cmd := &cobra.Command{
		Use:   "query [mkql]",
		Short: "Run an MKQL query against the derived index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cfg, err := openVault()
			if err != nil {
				return err
			}
			db, err := openIndex(v)
			if err != nil {
				return err
			}
			defer db.Close()

			if !cmd.Flags().Changed("semantic-k") && cfg.Semantic.PrefilterK > 0 {
				semanticK = cfg.Semantic.PrefilterK
			}

			ast, err := mkql.Parse(args[0])
			if err != nil {
				return err
			}
			cq, err := mkql.Compile(ast)
			if err != nil {
				return err
			}

			res, err := query.Execute(db, newProvider(cfg), semanticK, cq)
			if err != nil {
				return err
			}
			out, err := query.FormatResult(res, query.Format(format))
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: json, table, markdown")
	cmd.Flags().IntVar(&semanticK, "semantic-k", query.DefaultSemanticK, "ANN candidate-set size for NEAR()")
	return cmd
}
