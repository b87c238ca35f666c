package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

type fakeStore struct {
	categories   []core.Category
	accounts     map[int64]core.Account
	transactions []core.Transaction
	nextID       int64
	createErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[int64]core.Account)}
}

func (f *fakeStore) ListCategories(context.Context) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeStore) GetAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return core.Account{}, storage.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	normalized, err := tx.Normalized()
	if err != nil {
		return core.Transaction{}, err
	}
	f.nextID++
	normalized.ID = f.nextID
	f.transactions = append(f.transactions, normalized)
	return normalized, nil
}

func (f *fakeStore) CreateTransactions(ctx context.Context, txns []core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(txns))
	for _, tx := range txns {
		saved, err := f.CreateTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	for _, tx := range f.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, storage.ErrNotFound
}

func (f *fakeStore) ListTransactions(context.Context, storage.TransactionFilter) ([]core.Transaction, error) {
	return f.transactions, nil
}

func (f *fakeStore) ReplaceTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	for i, existing := range f.transactions {
		if existing.ID == tx.ID {
			normalized, err := tx.Normalized()
			if err != nil {
				return core.Transaction{}, err
			}
			normalized.ID = tx.ID
			f.transactions[i] = normalized
			return normalized, nil
		}
	}
	return core.Transaction{}, storage.ErrNotFound
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id int64) error {
	for i, tx := range f.transactions {
		if tx.ID == id {
			f.transactions = append(f.transactions[:i], f.transactions[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) TransactionsInRange(context.Context, time.Time, time.Time) ([]core.Transaction, error) {
	return f.transactions, nil
}

type fakePublisher struct {
	created    []int64
	imports    int
	publishErr error
}

func (p *fakePublisher) PublishTransactionCreated(_ context.Context, id int64, _ string) error {
	p.created = append(p.created, id)
	return p.publishErr
}

func (p *fakePublisher) PublishImportCompleted(context.Context, int, int, int) error {
	p.imports++
	return p.publishErr
}

func expenseCategories() []core.Category {
	return []core.Category{
		{ID: 1, Name: "食費", Type: core.Expense, Keywords: []string{"スーパー", "コンビニ"}},
		{ID: 2, Name: "交通費", Type: core.Expense, Keywords: []string{"電車", "タクシー"}},
		{ID: 3, Name: "給料", Type: core.Income, Keywords: []string{"給与"}},
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestTransactionServiceCreateAutoCategorizes(t *testing.T) {
	store := newFakeStore()
	store.categories = expenseCategories()
	pub := &fakePublisher{}
	svc := NewTransactionService(store, store, pub)

	saved, err := svc.Create(context.Background(), core.Transaction{
		Date:        mustDate(t, "2024-01-15"),
		Description: "スーパーマルエツ",
		Amount:      decimal.RequireFromString("-3400"),
	})
	require.NoError(t, err)
	require.NotNil(t, saved.CategoryID)
	assert.Equal(t, int64(1), *saved.CategoryID)
	assert.Equal(t, core.Expense, saved.Type)
	assert.Equal(t, []int64{saved.ID}, pub.created)
}

func TestTransactionServiceCreateKeepsExplicitCategory(t *testing.T) {
	store := newFakeStore()
	store.categories = expenseCategories()
	svc := NewTransactionService(store, store, nil)

	explicit := int64(2)
	saved, err := svc.Create(context.Background(), core.Transaction{
		Date:        mustDate(t, "2024-01-15"),
		Description: "スーパー銭湯", // keyword match would say 食費
		Amount:      decimal.RequireFromString("-900"),
		CategoryID:  &explicit,
	})
	require.NoError(t, err)
	require.NotNil(t, saved.CategoryID)
	assert.Equal(t, explicit, *saved.CategoryID)
}

func TestTransactionServiceCreateUnmatchedStaysUncategorized(t *testing.T) {
	store := newFakeStore()
	store.categories = expenseCategories()
	svc := NewTransactionService(store, store, nil)

	saved, err := svc.Create(context.Background(), core.Transaction{
		Date:        mustDate(t, "2024-01-15"),
		Description: "謎の出費",
		Amount:      decimal.RequireFromString("-100"),
	})
	require.NoError(t, err)
	assert.Nil(t, saved.CategoryID)
}

func TestTransactionServiceCreateRejectsZeroAmount(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, store, nil)

	_, err := svc.Create(context.Background(), core.Transaction{
		Date:        mustDate(t, "2024-01-15"),
		Description: "無料サンプル",
		Amount:      decimal.Zero,
	})
	assert.ErrorIs(t, err, core.ErrZeroAmount)
	assert.Empty(t, store.transactions)
}

func TestTransactionServiceCreateSurvivesPublishFailure(t *testing.T) {
	store := newFakeStore()
	store.categories = expenseCategories()
	pub := &fakePublisher{publishErr: assert.AnError}
	svc := NewTransactionService(store, store, pub)

	saved, err := svc.Create(context.Background(), core.Transaction{
		Date:        mustDate(t, "2024-01-15"),
		Description: "コンビニ",
		Amount:      decimal.RequireFromString("-500"),
	})
	require.NoError(t, err, "a broker outage must not fail the write")
	assert.NotZero(t, saved.ID)
}

const importCSV = `日付,内容,金額,カテゴリ,メモ
2024-01-15,スーパーマルエツ,-3500,,食材
2024-01-25,1月給与,280000,給料,
2024-01-26,タクシー深夜,-2400,,
`

func TestImportServiceImport(t *testing.T) {
	store := newFakeStore()
	store.categories = expenseCategories()
	pub := &fakePublisher{}
	svc := NewImportService(store, store, store, pub)

	saved, result, err := svc.Import(context.Background(), strings.NewReader(importCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 3, result.ImportedCount)
	assert.Empty(t, result.Errors)
	require.Len(t, saved, 3)
	assert.Equal(t, 1, pub.imports)

	require.NotNil(t, saved[0].CategoryID)
	assert.Equal(t, int64(1), *saved[0].CategoryID, "auto-classified from keyword")
	require.NotNil(t, saved[1].CategoryID)
	assert.Equal(t, int64(3), *saved[1].CategoryID, "explicit category resolved by name")
	require.NotNil(t, saved[2].CategoryID)
	assert.Equal(t, int64(2), *saved[2].CategoryID)
}

func TestImportServiceRejectsFatalFileWithoutWrites(t *testing.T) {
	store := newFakeStore()
	store.categories = expenseCategories()
	svc := NewImportService(store, store, store, &fakePublisher{})

	_, _, err := svc.Import(context.Background(), strings.NewReader("内容,金額\nランチ,-800\n"), nil)
	require.Error(t, err)
	assert.Empty(t, store.transactions, "a rejected file must write nothing")
}

func TestImportServiceChecksDefaultAccount(t *testing.T) {
	store := newFakeStore()
	store.categories = expenseCategories()
	store.accounts[5] = core.Account{ID: 5, Name: "現金", Type: core.AccountCash}
	svc := NewImportService(store, store, store, nil)

	missing := int64(99)
	_, _, err := svc.Import(context.Background(), strings.NewReader(importCSV), &missing)
	assert.ErrorIs(t, err, core.ErrInvalidAccount)

	ok := int64(5)
	saved, _, err := svc.Import(context.Background(), strings.NewReader(importCSV), &ok)
	require.NoError(t, err)
	for _, tx := range saved {
		require.NotNil(t, tx.AccountID)
		assert.Equal(t, ok, *tx.AccountID)
	}
}

func TestReportServiceMonthly(t *testing.T) {
	store := newFakeStore()
	store.categories = expenseCategories()
	one := int64(1)
	store.transactions = []core.Transaction{
		{ID: 1, Date: mustDate(t, "2024-01-10"), Description: "スーパー", Amount: decimal.RequireFromString("-3500"), Type: core.Expense, CategoryID: &one},
		{ID: 2, Date: mustDate(t, "2024-01-25"), Description: "給与", Amount: decimal.RequireFromString("250000"), Type: core.Income},
	}
	svc := NewReportService(store, store)

	rep, err := svc.Monthly(context.Background(), 2024, 1, core.Expense)
	require.NoError(t, err)
	assert.Equal(t, "3500", rep.TotalExpense.String())
	assert.Equal(t, "250000", rep.TotalIncome.String())
	assert.Equal(t, "246500", rep.Net.String())
	require.Len(t, rep.ByCategory, 1)
	assert.Equal(t, "食費", rep.ByCategory[0].CategoryName)
}

func TestReportServiceRejectsInvalidPeriod(t *testing.T) {
	svc := NewReportService(newFakeStore(), newFakeStore())

	_, err := svc.Monthly(context.Background(), 2024, 13, core.Expense)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = svc.Monthly(context.Background(), 0, 1, core.Expense)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestReportServiceCurrentMonth(t *testing.T) {
	store := newFakeStore()
	store.categories = expenseCategories()
	store.transactions = []core.Transaction{
		{ID: 1, Date: mustDate(t, "2024-06-03"), Description: "コンビニ", Amount: decimal.RequireFromString("-800"), Type: core.Expense},
	}
	svc := NewReportService(store, store)

	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	rep, err := svc.CurrentMonth(context.Background(), now, core.Expense)
	require.NoError(t, err)
	assert.Equal(t, "800", rep.TotalExpense.String())
}
