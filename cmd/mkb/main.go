// Package main is the entrypoint for the mkb CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// vaultRoot is set by the persistent --vault flag; every subcommand resolves
// the vault and index relative to it.
var vaultRoot string

func main() {
	root := &cobra.Command{
		Use:   "mkb",
		Short: "A local-first knowledge base with temporal validity and MKQL queries",
		Long: `mkb stores markdown documents with explicit observed_at/valid_until
fields, keeps a derived SQLite index (full-text + vector) in sync with the
vault, and answers MKQL queries over both.

Quick Start:
  mkb init              Create a vault in the current directory
  mkb create            Add a document
  mkb query "..."       Run an MKQL query
  mkb reindex           Rebuild the derived index from the vault`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringVar(&vaultRoot, "vault", ".", "Path to the vault root")

	root.AddCommand(initCmd())
	root.AddCommand(createCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(graphCmd())
	root.AddCommand(reindexCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mkb:", err)
		os.Exit(1)
	}
}
