// Package importer turns bank-exported CSV files into transactions.
//
// A file is processed in one pass: structural problems (bad encoding, no
// header, missing required columns) fail the whole import before any row is
// touched, while per-row problems are collected and never abort the batch.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"kakeibo/internal/core"
	"kakeibo/internal/match"
)

// File-level fatal errors. When one of these is returned nothing has been
// accepted; there is no reliable row boundary to trust.
var (
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
	ErrNoHeader        = errors.New("csv file has no header row")
	ErrMalformedCSV    = errors.New("malformed csv")
	ErrUnknownColumn   = errors.New("unrecognized column")
	ErrMissingColumn   = errors.New("missing required column")
)

// Canonical column names. The header may use either these or the localized
// labels produced by the bank-export UI.
const (
	colDate        = "date"
	colDescription = "description"
	colAmount      = "amount"
	colCategory    = "category"
	colMemo        = "memo"
)

var headerAliases = map[string]string{
	colDate:        colDate,
	"日付":          colDate,
	colDescription: colDescription,
	"内容":          colDescription,
	colAmount:      colAmount,
	"金額":          colAmount,
	colCategory:    colCategory,
	"カテゴリ":        colCategory,
	colMemo:        colMemo,
	"メモ":          colMemo,
}

var requiredColumns = []string{colDate, colDescription, colAmount}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result summarizes one import run. It is ephemeral and never persisted.
type Result struct {
	TotalRows     int
	ImportedCount int
	Errors        []RowError
	Notes         []string
}

// ErrorStrings renders the row errors as "row N: reason" strings, in row
// order, for the caller-facing summary.
func (r Result) ErrorStrings() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// Options tweak a single import run.
type Options struct {
	// DefaultAccountID is attached to rows that specify no account.
	DefaultAccountID *int64
}

// Engine validates and classifies CSV rows against a category snapshot.
// Build one per import so each run sees a consistent rule set.
type Engine struct {
	validator rowValidator
	matcher   *match.Matcher
}

// NewEngine builds an engine over the given category snapshot. Slice order
// is creation order and drives classification tie-breaks.
func NewEngine(categories []core.Category) *Engine {
	m := match.New(categories)
	return &Engine{
		validator: rowValidator{matcher: m},
		matcher:   m,
	}
}

// Import reads the whole CSV, validates every data row and returns the
// accepted transactions together with a per-row summary. The transactions
// are not persisted here; the caller writes them only after the full file
// has been scanned. A non-nil error means a file-level failure and an empty
// acceptance set.
func (e *Engine) Import(r io.Reader, opts Options) ([]core.Transaction, Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Result{}, fmt.Errorf("read csv file: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, Result{}, ErrInvalidEncoding
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1 // short rows fail row validation, not the file

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, Result{}, ErrNoHeader
		}
		return nil, Result{}, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	columns, err := mapHeader(header)
	if err != nil {
		return nil, Result{}, err
	}

	var (
		accepted []core.Transaction
		result   Result
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A quoting error mid-file leaves no trustworthy row boundary.
			return nil, Result{}, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		result.TotalRows++
		rowNum := result.TotalRows // 1-indexed, header excluded

		row := make(map[string]string, len(columns))
		for i, name := range columns {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}

		cand, rowErr := e.validator.validate(row)
		if rowErr != nil {
			rowErr.Row = rowNum
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		if cand.Note != "" {
			result.Notes = append(result.Notes, fmt.Sprintf("row %d: %s", rowNum, cand.Note))
		}
		if cand.CategoryID == nil {
			if id, ok := e.matcher.Classify(cand.Description, cand.Type); ok {
				cand.CategoryID = &id
			}
		}

		tx := core.Transaction{
			Date:        cand.Date,
			Description: cand.Description,
			Amount:      cand.Amount,
			Type:        cand.Type,
			CategoryID:  cand.CategoryID,
			Memo:        cand.Memo,
		}
		if tx.AccountID == nil {
			tx.AccountID = opts.DefaultAccountID
		}
		accepted = append(accepted, tx)
	}

	result.ImportedCount = len(accepted)
	return accepted, result, nil
}

// mapHeader resolves each header label to its canonical column name. Every
// label must be recognized and the required columns must all be present;
// anything else is a file-level error.
func mapHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, label := range header {
		label = strings.TrimSpace(label)
		canonical, ok := headerAliases[label]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, label)
		}
		if seen[canonical] {
			return nil, fmt.Errorf("%w: column %q appears twice", ErrMalformedCSV, label)
		}
		seen[canonical] = true
		columns[i] = canonical
	}
	for _, req := range requiredColumns {
		if !seen[req] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}
	return columns, nil
}
