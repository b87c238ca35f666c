package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kakeibo/internal/services"
)

func newImportCommand() *cobra.Command {
	var (
		filePath       string
		defaultAccount int64
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from a CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, filePath, defaultAccount)
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the CSV file (required)")
	cmd.Flags().Int64Var(&defaultAccount, "default-account", 0, "account id for rows without one")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, defaultAccount int64) error {
	_, _, repo, err := setup()
	if err != nil {
		return err
	}
	defer repo.Close()

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open CSV file: %w", err)
	}
	defer f.Close()

	var accountID *int64
	if defaultAccount > 0 {
		accountID = &defaultAccount
	}

	imports := services.NewImportService(repo, repo, repo, nil)
	_, result, err := imports.Import(cmd.Context(), f, accountID)
	if err != nil {
		return err
	}

	cmd.Printf("Imported %d of %d rows\n", result.ImportedCount, result.TotalRows)
	for _, msg := range result.ErrorStrings() {
		cmd.Printf("  error: %s\n", msg)
	}
	for _, note := range result.Notes {
		cmd.Printf("  note: %s\n", note)
	}
	return nil
}
