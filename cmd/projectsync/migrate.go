package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-blackswan/projectsync/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and seed brands",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, brands, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Printf("schema at version %d, %d brands seeded\n", store.SchemaVersion, len(brands))
		return nil
	},
}
