package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.January || d.Day() != 15 {
		t.Fatalf("wrong date: %v", d)
	}
	if d.Hour() != 0 || d.Location() != time.UTC {
		t.Fatalf("expected UTC midnight, got %v", d)
	}

	bads := []string{"", "15/01/2024", "2024-1-15", "2024-13-01", "notadate", "2024-01-15T10:00:00Z"}
	for _, s := range bads {
		if _, err := ParseDate(s); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", s, err)
		}
	}
}

func TestTypeForAmount(t *testing.T) {
	cases := []struct {
		amount string
		want   FlowType
		err    error
	}{
		{"-3500", Expense, nil},
		{"250000", Income, nil},
		{"-0.5", Expense, nil},
		{"0", "", ErrZeroAmount},
		{"0.00", "", ErrZeroAmount},
	}
	for i, tc := range cases {
		got, err := TypeForAmount(decimal.RequireFromString(tc.amount))
		if !errors.Is(err, tc.err) {
			t.Fatalf("case %d: expected err %v, got %v", i, tc.err, err)
		}
		if got != tc.want {
			t.Fatalf("case %d: expected %q, got %q", i, tc.want, got)
		}
	}
}

func TestParseKeywords(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"スーパー,コンビニ, 食料", []string{"スーパー", "コンビニ", "食料"}},
		{"a,,b,  ,c", []string{"a", "b", "c"}},
	}
	for i, tc := range cases {
		got := ParseKeywords(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, got)
		}
		for j := range got {
			if got[j] != tc.want[j] {
				t.Fatalf("case %d: expected %v, got %v", i, tc.want, got)
			}
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "スーパーマーケット",
		Amount:      decimal.NewFromInt(-3500),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		tx  Transaction
		err error
	}{
		{Transaction{Description: "a", Amount: decimal.NewFromInt(1)}, ErrInvalidDate},
		{Transaction{Date: good.Date, Description: "  ", Amount: decimal.NewFromInt(1)}, ErrEmptyDescription},
		{Transaction{Date: good.Date, Description: "a", Amount: decimal.Zero}, ErrZeroAmount},
		{Transaction{Date: good.Date, Description: "a", Amount: decimal.NewFromInt(-1), Type: Income}, ErrTypeMismatch},
		{Transaction{Date: good.Date, Description: "a", Amount: decimal.NewFromInt(1), Type: Expense}, ErrTypeMismatch},
	}
	for i, tc := range cases {
		if err := tc.tx.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestTransactionNormalized(t *testing.T) {
	tx := Transaction{
		Date:        time.Date(2024, 1, 15, 18, 30, 0, 0, time.FixedZone("JST", 9*3600)),
		Description: "  給料  ",
		Amount:      decimal.NewFromInt(250000),
	}
	n, err := tx.Normalized()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if n.Type != Income {
		t.Fatalf("expected derived income, got %q", n.Type)
	}
	if n.Description != "給料" {
		t.Fatalf("expected trimmed description, got %q", n.Description)
	}
	if n.Date.Hour() != 0 || n.Date.Location() != time.UTC {
		t.Fatalf("expected UTC midnight, got %v", n.Date)
	}
}
