package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "kakeibo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestOpenSeedsDefaultCategories(t *testing.T) {
	repo := openTestRepository(t)

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, categories)

	names := make(map[string]core.FlowType)
	for i, c := range categories {
		names[c.Name] = c.Type
		if i > 0 {
			assert.Greater(t, c.ID, categories[i-1].ID, "categories must come back in creation order")
		}
	}
	assert.Equal(t, core.Expense, names["食費"])
	assert.Equal(t, core.Income, names["給料"])
}

func TestCategoryCRUD(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateCategory(ctx, core.Category{
		Name:     "旅行",
		Type:     core.Expense,
		Keywords: []string{"ホテル", "航空券"},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "📁", created.Icon)

	got, err := repo.GetCategory(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "旅行", got.Name)
	assert.Equal(t, []string{"ホテル", "航空券"}, got.Keywords)

	got.Keywords = append(got.Keywords, "温泉")
	updated, err := repo.UpdateCategory(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, []string{"ホテル", "航空券", "温泉"}, updated.Keywords)

	require.NoError(t, repo.DeleteCategory(ctx, created.ID))
	_, err = repo.GetCategory(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteCategory(ctx, created.ID), ErrNotFound)
}

func TestAccountCRUD(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateAccount(ctx, core.Account{
		Name: "メインバンク",
		Type: core.AccountBank,
	})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCurrency, created.Currency)
	assert.True(t, created.Balance.IsZero())

	created.Balance = decimal.RequireFromString("150000")
	updated, err := repo.UpdateAccount(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "150000", updated.Balance.String())

	require.NoError(t, repo.DeleteAccount(ctx, created.ID))
	_, err = repo.GetAccount(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionCRUD(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	category, err := repo.CreateCategory(ctx, core.Category{Name: "書籍", Type: core.Expense})
	require.NoError(t, err)

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Date:        mustDate(t, "2024-03-05"),
		Description: "技術書",
		Amount:      decimal.RequireFromString("-3200"),
		CategoryID:  &category.ID,
		Memo:        "新刊",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, core.Expense, created.Type)

	got, err := repo.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "-3200", got.Amount.String())
	assert.Equal(t, "新刊", got.Memo)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, category.ID, *got.CategoryID)

	got.Amount = decimal.RequireFromString("-2800")
	got.Memo = ""
	replaced, err := repo.ReplaceTransaction(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "-2800", replaced.Amount.String())
	assert.Empty(t, replaced.Memo)

	require.NoError(t, repo.DeleteTransaction(ctx, created.ID))
	_, err = repo.GetTransaction(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategoryDetachesTransactions(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	category, err := repo.CreateCategory(ctx, core.Category{Name: "趣味", Type: core.Expense})
	require.NoError(t, err)

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		Date:        mustDate(t, "2024-04-01"),
		Description: "プラモデル",
		Amount:      decimal.RequireFromString("-5400"),
		CategoryID:  &category.ID,
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteCategory(ctx, category.ID))

	got, err := repo.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID, "deleting a category must detach, not delete, its transactions")
}

func TestCreateTransactionsBatch(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	batch := []core.Transaction{
		{Date: mustDate(t, "2024-05-01"), Description: "給与", Amount: decimal.RequireFromString("280000")},
		{Date: mustDate(t, "2024-05-02"), Description: "スーパー", Amount: decimal.RequireFromString("-4300")},
		{Date: mustDate(t, "2024-05-03"), Description: "電気代", Amount: decimal.RequireFromString("-7800")},
	}
	saved, err := repo.CreateTransactions(ctx, batch)
	require.NoError(t, err)
	require.Len(t, saved, 3)
	for _, tx := range saved {
		assert.NotZero(t, tx.ID)
	}

	inRange, err := repo.TransactionsInRange(ctx, mustDate(t, "2024-05-01"), mustDate(t, "2024-05-31"))
	require.NoError(t, err)
	assert.Len(t, inRange, 3)

	empty, err := repo.CreateTransactions(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTransactionsInRangeBoundsAreInclusive(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	for _, day := range []string{"2024-06-30", "2024-07-01", "2024-07-31", "2024-08-01"} {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			Date:        mustDate(t, day),
			Description: "記録 " + day,
			Amount:      decimal.RequireFromString("-100"),
		})
		require.NoError(t, err)
	}

	txns, err := repo.TransactionsInRange(ctx, mustDate(t, "2024-07-01"), mustDate(t, "2024-07-31"))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "記録 2024-07-01", txns[0].Description)
	assert.Equal(t, "記録 2024-07-31", txns[1].Description)
}

func TestListTransactionsFilters(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	food, err := repo.CreateCategory(ctx, core.Category{Name: "弁当", Type: core.Expense})
	require.NoError(t, err)

	_, err = repo.CreateTransactions(ctx, []core.Transaction{
		{Date: mustDate(t, "2024-09-01"), Description: "昼食", Amount: decimal.RequireFromString("-800"), CategoryID: &food.ID},
		{Date: mustDate(t, "2024-09-02"), Description: "夕食", Amount: decimal.RequireFromString("-1200"), CategoryID: &food.ID},
		{Date: mustDate(t, "2024-09-03"), Description: "副業", Amount: decimal.RequireFromString("30000")},
	})
	require.NoError(t, err)

	all, err := repo.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "副業", all[0].Description, "listing is newest first")

	byCategory, err := repo.ListTransactions(ctx, TransactionFilter{CategoryID: &food.ID})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	income := core.Income
	byType, err := repo.ListTransactions(ctx, TransactionFilter{Type: &income})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "副業", byType[0].Description)

	from := mustDate(t, "2024-09-02")
	limited, err := repo.ListTransactions(ctx, TransactionFilter{From: &from, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "副業", limited[0].Description)
}
