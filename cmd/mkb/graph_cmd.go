package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkb-project/mkb/internal/query"
)

func graphCmd() *cobra.Command {
	var (
		center string
		depth  int
		rel    string
		from   string
		to     string
		format string
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the link graph around a document, or the shortest path between two",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, err := openVault()
			if err != nil {
				return err
			}
			db, err := openIndex(v)
			if err != nil {
				return err
			}
			defer db.Close()

			builder := query.NewGraphBuilder(db.Conn())

			if from != "" && to != "" {
				path, err := builder.ShortestPath(from, to)
				if err != nil {
					return err
				}
				for _, id := range path {
					fmt.Println(id)
				}
				return nil
			}

			if center == "" {
				return fmt.Errorf("--center is required (or pass --from/--to for a shortest path)")
			}
			sub, err := builder.FromCenter(center, depth, rel)
			if err != nil {
				return err
			}
			switch format {
			case "mermaid":
				fmt.Println(query.RenderMermaid(sub))
			case "json":
				out, err := query.RenderJSON(sub)
				if err != nil {
					return err
				}
				fmt.Println(out)
			default:
				fmt.Println(query.RenderDOT(sub))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&center, "center", "", "Center document id")
	cmd.Flags().IntVar(&depth, "depth", 2, "BFS depth from the center")
	cmd.Flags().StringVar(&rel, "rel", "", "Restrict traversal to this link relation")
	cmd.Flags().StringVar(&from, "from", "", "Shortest-path source id")
	cmd.Flags().StringVar(&to, "to", "", "Shortest-path target id")
	cmd.Flags().StringVar(&format, "format", "dot", "Render format: dot, mermaid, json")
	return cmd
}
