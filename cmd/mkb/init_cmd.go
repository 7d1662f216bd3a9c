package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkb-project/mkb/internal/index"
	"github.com/mkb-project/mkb/internal/vault"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a vault at --vault (default: current directory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := vault.Init(vaultRoot)
			if err != nil {
				return err
			}
			db, err := index.Open(v.IndexPath())
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Printf("initialized vault at %s\n", vaultRoot)
			return nil
		},
	}
}
