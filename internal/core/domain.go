package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  FlowType = "income"
	Expense FlowType = "expense"
)

const (
	AccountBank       AccountType = "bank"
	AccountCreditCard AccountType = "credit_card"
	AccountCash       AccountType = "cash"
	AccountOther      AccountType = "other"
)

// DefaultCurrency is the only currency supported for now.
const DefaultCurrency = "JPY"

type (
	// FlowType tags money movement as income or expense. On a transaction it
	// is derived from the amount sign and is never authoritative on its own.
	FlowType string

	AccountType string

	// Category groups transactions and carries the keyword rules used for
	// automatic classification. Keywords keep their definition order.
	Category struct {
		ID        int64
		Name      string
		Type      FlowType
		Keywords  []string
		Icon      string
		Color     string
		CreatedAt time.Time
	}

	// Account is a bank account, card or cash wallet. It owns no
	// transactions; they reference it by id, nullable.
	Account struct {
		ID        int64
		Name      string
		Type      AccountType
		Balance   decimal.Decimal
		Currency  string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Transaction is a single dated money movement. The amount sign is the
	// single source of truth: negative = expense, positive = income.
	Transaction struct {
		ID          int64
		Date        time.Time // calendar date, UTC midnight
		Description string
		Amount      decimal.Decimal
		Type        FlowType
		CategoryID  *int64
		AccountID   *int64
		Memo        string
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrZeroAmount       = errors.New("zero amount not allowed")
	ErrTypeMismatch     = errors.New("transaction type does not match amount sign")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidFlowType  = errors.New("invalid type, must be income or expense")
	ErrInvalidAccount   = errors.New("invalid account type")
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// ParseDate parses a strict YYYY-MM-DD date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t.UTC(), nil
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TypeForAmount derives the flow type from the amount sign.
// A zero amount has no type and is rejected.
func TypeForAmount(amount decimal.Decimal) (FlowType, error) {
	switch amount.Sign() {
	case -1:
		return Expense, nil
	case 1:
		return Income, nil
	default:
		return "", ErrZeroAmount
	}
}

func (ft FlowType) Valid() bool {
	return ft == Income || ft == Expense
}

func (at AccountType) Valid() bool {
	switch at {
	case AccountBank, AccountCreditCard, AccountCash, AccountOther:
		return true
	}
	return false
}

// ParseKeywords splits a comma-joined keyword list, trimming whitespace and
// dropping empties while keeping definition order.
func ParseKeywords(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// JoinKeywords is the inverse of ParseKeywords, used by storage.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, ",")
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidFlowType
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidAccount
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	derived, err := TypeForAmount(t.Amount)
	if err != nil {
		return err
	}
	if t.Type != "" && t.Type != derived {
		return ErrTypeMismatch
	}
	return nil
}

// Normalized returns a copy with the date truncated to its calendar day, the
// description trimmed and the type tag re-derived from the amount sign.
func (t Transaction) Normalized() (Transaction, error) {
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	derived, _ := TypeForAmount(t.Amount)
	t.Date = DateOf(t.Date)
	t.Type = derived
	t.Description = strings.TrimSpace(t.Description)
	return t, nil
}
