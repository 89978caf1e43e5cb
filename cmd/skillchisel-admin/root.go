package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skillchisel/internal/cli"
	"skillchisel/internal/config"
	"skillchisel/internal/storage"
)

var (
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "skillchisel-admin",
	Short: "Administrative tasks for a Skill Chisel database",
	Long: `skillchisel-admin works directly on the SQLite database used by the
skillchisel server: apply migrations, list accounts and print practice reports.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if dbPath == "" {
			dbPath = config.Load().SQLiteDBPath
		}
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite database (default $SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(reportCmd)
}

// openRepository opens the database, applying pending migrations.
func openRepository() (*storage.SQLiteRepository, error) {
	logger := cli.SetupLogger(logLevel, "text")
	repo, err := storage.NewSQLiteRepository(dbPath,
		storage.WithLogger(logger.Slog()))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return repo, nil
}
