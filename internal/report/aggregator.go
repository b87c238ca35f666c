// Package report computes monthly (or arbitrary-range) summaries over a
// transaction snapshot. Everything here is pure: the same snapshot and
// period always produce bit-identical output.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// UncategorizedName labels the bucket for transactions with no resolved
// category. It is an explicit line, never silently dropped.
const UncategorizedName = "未分類"

var oneHundred = decimal.NewFromInt(100)

// Line is one category's share of the reporting period.
type Line struct {
	CategoryID   *int64
	CategoryName string
	Total        decimal.Decimal // sum of absolute amounts
	Count        int
	Percentage   decimal.Decimal // unrounded; display rounding is the caller's job
}

// Report is the aggregate for one period.
type Report struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal
	ByCategory   []Line
}

// Aggregate filters txns to [start, end] inclusive and sums them up. The
// byCategory breakdown covers transactions of the focus type (expense for
// the standard dashboard; income is the symmetric variant). Percentages are
// shares of the focus total, defined as zero when that total is zero.
// Category ids that resolve to no known category fold into the
// uncategorized bucket, so deleted categories never produce phantom lines.
func Aggregate(txns []core.Transaction, categories []core.Category, start, end time.Time, focus core.FlowType) Report {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	rep := Report{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Net:          decimal.Zero,
	}

	type bucket struct {
		id    *int64
		name  string
		total decimal.Decimal
		count int
	}
	buckets := make(map[int64]*bucket) // keyed by category id, 0 = uncategorized

	for _, tx := range txns {
		d := core.DateOf(tx.Date)
		if d.Before(start) || d.After(end) {
			continue
		}

		txType, err := core.TypeForAmount(tx.Amount)
		if err != nil {
			continue // zero amounts cannot exist past validation
		}
		abs := tx.Amount.Abs()
		if txType == core.Income {
			rep.TotalIncome = rep.TotalIncome.Add(abs)
		} else {
			rep.TotalExpense = rep.TotalExpense.Add(abs)
		}

		if txType != focus {
			continue
		}
		key := int64(0)
		name := UncategorizedName
		var id *int64
		if tx.CategoryID != nil {
			if n, ok := names[*tx.CategoryID]; ok {
				key = *tx.CategoryID
				name = n
				id = tx.CategoryID
			}
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{id: id, name: name, total: decimal.Zero}
			buckets[key] = b
		}
		b.total = b.total.Add(abs)
		b.count++
	}

	rep.Net = rep.TotalIncome.Sub(rep.TotalExpense)

	focusTotal := rep.TotalExpense
	if focus == core.Income {
		focusTotal = rep.TotalIncome
	}

	for _, b := range buckets {
		pct := decimal.Zero
		if focusTotal.Sign() > 0 {
			pct = b.total.Mul(oneHundred).Div(focusTotal)
		}
		rep.ByCategory = append(rep.ByCategory, Line{
			CategoryID:   b.id,
			CategoryName: b.name,
			Total:        b.total,
			Count:        b.count,
			Percentage:   pct,
		})
	}

	// Deterministic order: biggest spender first, name breaks ties.
	sort.Slice(rep.ByCategory, func(i, j int) bool {
		cmp := rep.ByCategory[i].Total.Cmp(rep.ByCategory[j].Total)
		if cmp != 0 {
			return cmp > 0
		}
		return rep.ByCategory[i].CategoryName < rep.ByCategory[j].CategoryName
	})

	return rep
}

// MonthRange returns the inclusive [first, last] calendar-day bounds of a
// month, UTC.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}
