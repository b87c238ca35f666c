// Package storage persists categories, accounts and transactions in SQLite.
// It is the owning side of all writes; the engine packages only ever see
// snapshots read from here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const timeLayout = time.RFC3339Nano

type Repository struct {
	db *sql.DB
}

// Open creates the database file if needed, runs migrations and returns a
// ready repository.
func Open(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- categories ---

const categoryColumns = "id, name, type, keywords, icon, color, created_at"

// ListCategories returns all categories in creation order. That order is
// load-bearing: it is the classification tie-break.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.Icon == "" {
		c.Icon = "📁"
	}
	if c.Color == "" {
		c.Color = "#6B7280"
	}
	c.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, type, keywords, icon, color, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		c.Name, string(c.Type), core.JoinKeywords(c.Keywords), c.Icon, c.Color, c.CreatedAt.Format(timeLayout))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, type = ?, keywords = ?, icon = ?, color = ? WHERE id = ?",
		c.Name, string(c.Type), core.JoinKeywords(c.Keywords), c.Icon, c.Color, c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, ErrNotFound
	}
	return r.GetCategory(ctx, c.ID)
}

// DeleteCategory removes a category. Transactions that referenced it keep
// existing; the foreign key sets their category to NULL.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- accounts ---

const accountColumns = "id, name, type, balance, currency, created_at, updated_at"

func (r *Repository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *Repository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

func (r *Repository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.Currency == "" {
		a.Currency = core.DefaultCurrency
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (name, type, balance, currency, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.Name, string(a.Type), a.Balance.String(), a.Currency, now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account insert id: %w", err)
	}
	return a, nil
}

func (r *Repository) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET name = ?, type = ?, balance = ?, currency = ?, updated_at = ? WHERE id = ?",
		a.Name, string(a.Type), a.Balance.String(), a.Currency, time.Now().UTC().Format(timeLayout), a.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account %d: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Account{}, ErrNotFound
	}
	return r.GetAccount(ctx, a.ID)
}

func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- transactions ---

const transactionColumns = "id, date, description, amount, type, category_id, account_id, memo, created_at"

const insertTransaction = "INSERT INTO transactions (date, description, amount, type, category_id, account_id, memo, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx, err := tx.Normalized()
	if err != nil {
		return core.Transaction{}, err
	}
	tx.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, insertTransaction, transactionArgs(tx)...)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	tx.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	return tx, nil
}

// CreateTransactions inserts a batch atomically. All rows were validated
// before this is called; either every row lands or none does.
func (r *Repository) CreateTransactions(ctx context.Context, txns []core.Transaction) ([]core.Transaction, error) {
	if len(txns) == 0 {
		return nil, nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, insertTransaction)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	out := make([]core.Transaction, 0, len(txns))
	for _, tx := range txns {
		tx, err := tx.Normalized()
		if err != nil {
			return nil, fmt.Errorf("normalize transaction: %w", err)
		}
		tx.CreatedAt = now
		res, err := stmt.ExecContext(ctx, transactionArgs(tx)...)
		if err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		tx.ID, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("transaction insert id: %w", err)
		}
		out = append(out, tx)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch saved",
		log.FieldComponent, log.ComponentStorage,
		log.FieldCount, len(out))
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// ReplaceTransaction swaps a transaction's content wholesale. Partial edits
// are out of scope; callers send the full replacement.
func (r *Repository) ReplaceTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	normalized, err := tx.Normalized()
	if err != nil {
		return core.Transaction{}, err
	}
	normalized.ID = tx.ID

	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET date = ?, description = ?, amount = ?, type = ?, category_id = ?, account_id = ?, memo = ? WHERE id = ?",
		normalized.Date.Format(core.DateLayout), normalized.Description, normalized.Amount.String(),
		string(normalized.Type), nullableID(normalized.CategoryID), nullableID(normalized.AccountID),
		normalized.Memo, normalized.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("replace transaction %d: %w", tx.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, ErrNotFound
	}
	return r.GetTransaction(ctx, normalized.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TransactionFilter narrows ListTransactions. Nil fields are ignored.
type TransactionFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *int64
	AccountID  *int64
	Type       *core.FlowType
	Limit      int
	Offset     int
}

// ListTransactions returns transactions newest first.
func (r *Repository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, core.DateOf(*f.From).Format(core.DateLayout))
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, core.DateOf(*f.To).Format(core.DateLayout))
	}
	if f.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.AccountID != nil {
		where = append(where, "account_id = ?")
		args = append(args, *f.AccountID)
	}
	if f.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*f.Type))
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, tx)
	}
	return txns, rows.Err()
}

// TransactionsInRange returns every transaction with date in [start, end]
// inclusive, oldest first. This is the report aggregator's snapshot.
func (r *Repository) TransactionsInRange(ctx context.Context, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE date >= ? AND date <= ? ORDER BY date, id",
		core.DateOf(start).Format(core.DateLayout), core.DateOf(end).Format(core.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("transactions in range: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, tx)
	}
	return txns, rows.Err()
}

// --- row mapping ---

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		c         core.Category
		flowType  string
		keywords  string
		createdAt string
	)
	if err := s.Scan(&c.ID, &c.Name, &flowType, &keywords, &c.Icon, &c.Color, &createdAt); err != nil {
		return core.Category{}, err
	}
	c.Type = core.FlowType(flowType)
	c.Keywords = core.ParseKeywords(keywords)
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

func scanAccount(s scanner) (core.Account, error) {
	var (
		a           core.Account
		accountType string
		balance     string
		createdAt   string
		updatedAt   string
	)
	if err := s.Scan(&a.ID, &a.Name, &accountType, &balance, &a.Currency, &createdAt, &updatedAt); err != nil {
		return core.Account{}, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	a.Type = core.AccountType(accountType)
	a.Balance = b
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx         core.Transaction
		date       string
		amount     string
		flowType   string
		categoryID sql.NullInt64
		accountID  sql.NullInt64
		createdAt  string
	)
	if err := s.Scan(&tx.ID, &date, &tx.Description, &amount, &flowType, &categoryID, &accountID, &tx.Memo, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	tx.Date = d
	tx.Amount = amt
	tx.Type = core.FlowType(flowType)
	tx.CategoryID = idPtr(categoryID)
	tx.AccountID = idPtr(accountID)
	tx.CreatedAt = parseTime(createdAt)
	return tx, nil
}

func transactionArgs(tx core.Transaction) []any {
	return []any{
		tx.Date.Format(core.DateLayout),
		tx.Description,
		tx.Amount.String(),
		string(tx.Type),
		nullableID(tx.CategoryID),
		nullableID(tx.AccountID),
		tx.Memo,
		tx.CreatedAt.Format(timeLayout),
	}
}

func nullableID(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
