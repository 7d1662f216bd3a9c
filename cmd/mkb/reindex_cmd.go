package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkb-project/mkb/internal/embedding"
	"github.com/mkb-project/mkb/internal/frontmatter"
	"github.com/mkb-project/mkb/internal/index"
)

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the derived index from scratch by re-scanning the vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cfg, err := openVault()
			if err != nil {
				return err
			}

			// The index is a rebuildable cache over the vault; dropping the
			// file and rebuilding from ListDocuments is always correct.
			idxPath := v.IndexPath()
			for _, suffix := range []string{"", "-wal", "-shm"} {
				_ = os.Remove(idxPath + suffix)
			}

			db, err := index.Open(idxPath)
			if err != nil {
				return err
			}
			defer db.Close()

			paths, err := v.ListDocuments()
			if err != nil {
				return err
			}

			provider := newProvider(cfg)
			indexed := 0
			for _, path := range paths {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				doc, err := frontmatter.ParseDocument(string(data))
				if err != nil {
					fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
					continue
				}
				if err := db.IndexDocument(doc); err != nil {
					return err
				}
				if err := db.StoreLinks(doc.ID, doc.Links); err != nil {
					return err
				}
				if vec, err := provider.Embed(doc.Body, embedding.PurposeDocument); err == nil {
					if err := db.StoreEmbedding(doc.ID, vec, provider.Name()); err != nil {
						return err
					}
				}
				indexed++
			}
			fmt.Printf("reindexed %d documents\n", indexed)
			return nil
		},
	}
}
