package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
	"kakeibo/internal/match"
)

// ErrorKind identifies the validation rule a row broke.
type ErrorKind string

const (
	KindInvalidDate        ErrorKind = "invalid_date"
	KindMissingDescription ErrorKind = "missing_description"
	KindInvalidAmount      ErrorKind = "invalid_amount"
	KindZeroAmount         ErrorKind = "zero_amount"
)

// RowError is a recoverable, per-row validation failure. It excludes only
// its own row; the rest of the batch continues.
type RowError struct {
	Row     int
	Kind    ErrorKind
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// candidate is a validated row, ready to become a core.Transaction.
type candidate struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        core.FlowType
	CategoryID  *int64
	Memo        string
	// Note carries informational, non-error feedback such as an explicit
	// category name that resolved to nothing.
	Note string
}

// rowValidator normalizes one header-mapped CSV row. It is pure over the
// category snapshot held by the matcher.
type rowValidator struct {
	matcher *match.Matcher
}

// validate turns a raw row into a candidate or a row-level error. The
// returned error's Row field is filled in by the caller, which knows the
// row number.
func (v *rowValidator) validate(row map[string]string) (candidate, *RowError) {
	date, err := core.ParseDate(row[colDate])
	if err != nil {
		return candidate{}, &RowError{
			Kind:    KindInvalidDate,
			Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", row[colDate]),
		}
	}

	desc := strings.TrimSpace(row[colDescription])
	if desc == "" {
		return candidate{}, &RowError{
			Kind:    KindMissingDescription,
			Message: "missing description",
		}
	}

	rawAmount := strings.TrimSpace(row[colAmount])
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return candidate{}, &RowError{
			Kind:    KindInvalidAmount,
			Message: fmt.Sprintf("invalid amount %q", rawAmount),
		}
	}
	txType, err := core.TypeForAmount(amount)
	if err != nil {
		return candidate{}, &RowError{
			Kind:    KindZeroAmount,
			Message: "zero amount not allowed",
		}
	}

	c := candidate{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        txType,
		Memo:        strings.TrimSpace(row[colMemo]),
	}

	// An explicit category name is resolved exactly and case-sensitively
	// against categories of the matching type. Bank exports routinely carry
	// junk here, so an unresolvable name keeps the row and only leaves a
	// note; the row falls through to keyword classification.
	if name := strings.TrimSpace(row[colCategory]); name != "" {
		if id, ok := v.matcher.Resolve(name, txType); ok {
			c.CategoryID = &id
		} else {
			c.Note = fmt.Sprintf("category %q not found, left uncategorized", name)
		}
	}

	return c, nil
}
