package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"kakeibo/internal/core"
	"kakeibo/internal/importer"
	"kakeibo/internal/log"
	"kakeibo/internal/storage"
)

// ImportService runs CSV files through the import engine and persists the
// surviving rows as one atomic batch.
type ImportService struct {
	transactions TransactionStore
	categories   CategoryStore
	accounts     AccountStore
	publisher    Publisher
}

func NewImportService(transactions TransactionStore, categories CategoryStore, accounts AccountStore, publisher Publisher) *ImportService {
	return &ImportService{
		transactions: transactions,
		categories:   categories,
		accounts:     accounts,
		publisher:    publisher,
	}
}

// Import parses r, saves every valid row and returns the saved transactions
// together with the per-row outcome. A non-nil error means the file as a
// whole was rejected and nothing was written.
func (s *ImportService) Import(ctx context.Context, r io.Reader, defaultAccountID *int64) ([]core.Transaction, importer.Result, error) {
	if defaultAccountID != nil {
		if _, err := s.accounts.GetAccount(ctx, *defaultAccountID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, importer.Result{}, fmt.Errorf("default account %d: %w", *defaultAccountID, core.ErrInvalidAccount)
			}
			return nil, importer.Result{}, fmt.Errorf("check default account: %w", err)
		}
	}

	// The category snapshot taken here is what the whole file is classified
	// against, so concurrent category edits cannot split one file's rows
	// across two rule sets.
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, importer.Result{}, fmt.Errorf("load categories: %w", err)
	}

	txns, result, err := importer.NewEngine(categories).Import(r, importer.Options{
		DefaultAccountID: defaultAccountID,
	})
	if err != nil {
		return nil, importer.Result{}, err
	}

	saved, err := s.transactions.CreateTransactions(ctx, txns)
	if err != nil {
		return nil, importer.Result{}, fmt.Errorf("save imported transactions: %w", err)
	}

	slog.InfoContext(ctx, "Import completed",
		log.FieldComponent, log.ComponentImporter,
		log.FieldTotalRows, result.TotalRows,
		log.FieldImportedCount, result.ImportedCount,
		log.FieldErrorCount, len(result.Errors))

	if s.publisher != nil {
		if err := s.publisher.PublishImportCompleted(ctx, result.TotalRows, result.ImportedCount, len(result.Errors)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish import completed event",
				log.FieldComponent, log.ComponentEvents,
				log.FieldError, err)
		}
	}

	return saved, result, nil
}
