package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skillchisel/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := storage.RunMigrations(dbPath); err != nil {
			return err
		}
		version, dirty, err := storage.SchemaVersion(dbPath)
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("database %s is dirty at version %d", dbPath, version)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s is at schema version %d\n", dbPath, version)
		return nil
	},
}
