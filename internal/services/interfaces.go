// Package services orchestrates the ledger operations across storage,
// classification and the event publisher.
package services

import (
	"context"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// TransactionStore is the persistence surface the services need for
// transactions. *storage.Repository satisfies it.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	CreateTransactions(ctx context.Context, txns []core.Transaction) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	ReplaceTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	TransactionsInRange(ctx context.Context, start, end time.Time) ([]core.Transaction, error)
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
}

type AccountStore interface {
	GetAccount(ctx context.Context, id int64) (core.Account, error)
}

// Publisher emits change events. Wiring must leave the field nil rather than
// storing a typed nil client in the interface.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, id int64, flowType string) error
	PublishImportCompleted(ctx context.Context, totalRows, importedCount, errorCount int) error
}
