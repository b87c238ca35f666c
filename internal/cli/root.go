// Package cli wires the application commands. Every command builds its own
// dependency graph from the environment so they can run independently.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"kakeibo/internal/config"
	"kakeibo/internal/log"
	"kakeibo/internal/storage"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kakeibo",
		Short: "Household ledger with CSV import and monthly reports",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newReportCommand())

	return rootCmd
}

// setup performs the initialization shared by every command: optional .env
// loading, logging, validated configuration, and an open repository.
func setup() (*config.Config, *log.Logger, *storage.Repository, error) {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, repo, nil
}
