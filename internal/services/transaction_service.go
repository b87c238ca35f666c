package services

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/match"
	"kakeibo/internal/storage"
)

// TransactionService handles single-transaction operations, including the
// automatic keyword classification applied when no category is given.
type TransactionService struct {
	transactions TransactionStore
	categories   CategoryStore
	publisher    Publisher
}

func NewTransactionService(transactions TransactionStore, categories CategoryStore, publisher Publisher) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		categories:   categories,
		publisher:    publisher,
	}
}

// Create normalizes, auto-categorizes and saves a transaction. An explicit
// category is respected as-is; classification only fills in a missing one.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	normalized, err := tx.Normalized()
	if err != nil {
		return core.Transaction{}, err
	}

	if normalized.CategoryID == nil {
		categories, err := s.categories.ListCategories(ctx)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("load categories: %w", err)
		}
		if id, ok := match.New(categories).Classify(normalized.Description, normalized.Type); ok {
			normalized.CategoryID = &id
		}
	}

	saved, err := s.transactions.CreateTransaction(ctx, normalized)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	// Publishing is best effort. The transaction is already saved locally
	// and the request must not fail on a broker outage.
	if s.publisher != nil {
		if err := s.publisher.PublishTransactionCreated(ctx, saved.ID, string(saved.Type)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction created event",
				log.FieldComponent, log.ComponentEvents,
				log.FieldTransactionID, saved.ID,
				log.FieldError, err)
		}
	}

	return saved, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.transactions.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.transactions.ListTransactions(ctx, f)
}

// Replace overwrites an existing transaction. No re-classification happens
// here; an update that clears the category means the user wants it cleared.
func (s *TransactionService) Replace(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	return s.transactions.ReplaceTransaction(ctx, tx)
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	return s.transactions.DeleteTransaction(ctx, id)
}
