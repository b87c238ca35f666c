package importer

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
)

func testCategories() []core.Category {
	return []core.Category{
		{ID: 1, Name: "食費", Type: core.Expense, Keywords: []string{"スーパー", "コンビニ"}},
		{ID: 2, Name: "水道光熱費", Type: core.Expense, Keywords: []string{"電気", "ガス", "水道"}},
		{ID: 3, Name: "給料", Type: core.Income, Keywords: []string{"給料"}},
	}
}

func TestImport_LocalizedHeaders(t *testing.T) {
	csv := "日付,内容,金額,カテゴリ,メモ\n" +
		"2024-01-15,スーパーマーケット,-3500,食費,\n" +
		"2024-01-20,給料,250000,給料,\n"

	accepted, res, err := NewEngine(testCategories()).Import(strings.NewReader(csv), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 2, res.ImportedCount)
	assert.Empty(t, res.Errors)
	require.Len(t, accepted, 2)

	first := accepted[0]
	assert.Equal(t, "スーパーマーケット", first.Description)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(-3500)))
	assert.Equal(t, core.Expense, first.Type)
	require.NotNil(t, first.CategoryID)
	assert.Equal(t, int64(1), *first.CategoryID)

	second := accepted[1]
	assert.Equal(t, core.Income, second.Type)
	require.NotNil(t, second.CategoryID)
	assert.Equal(t, int64(3), *second.CategoryID)
}

func TestImport_ZeroAmountRowSkipped(t *testing.T) {
	csv := "date,description,amount\n" +
		"2024-01-01,first,-100\n" +
		"2024-01-02,second,0\n" +
		"2024-01-03,third,300\n"

	accepted, res, err := NewEngine(nil).Import(strings.NewReader(csv), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRows)
	assert.Equal(t, 2, res.ImportedCount)
	require.Len(t, accepted, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "row 2: zero amount not allowed", res.Errors[0].Error())
	assert.Equal(t, KindZeroAmount, res.Errors[0].Kind)
}

func TestImport_BadRowsNeverAbortBatch(t *testing.T) {
	csv := "date,description,amount\n" +
		"2024-02-01,ok one,-100\n" +
		"not-a-date,bad date,-200\n" +
		"2024-02-03,,-300\n" +
		"2024-02-04,bad amount,abc\n" +
		"2024-02-05,ok two,500\n"

	accepted, res, err := NewEngine(nil).Import(strings.NewReader(csv), Options{})
	require.NoError(t, err)

	// N total rows, K invalid: totalRows == N, imported == N-K, errors == K.
	assert.Equal(t, 5, res.TotalRows)
	assert.Equal(t, 2, res.ImportedCount)
	require.Len(t, res.Errors, 3)
	assert.Len(t, accepted, 2)

	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Equal(t, KindInvalidDate, res.Errors[0].Kind)
	assert.Equal(t, 3, res.Errors[1].Row)
	assert.Equal(t, KindMissingDescription, res.Errors[1].Kind)
	assert.Equal(t, 4, res.Errors[2].Row)
	assert.Equal(t, KindInvalidAmount, res.Errors[2].Kind)
}

func TestImport_UnresolvableCategoryIsANote(t *testing.T) {
	csv := "date,description,amount,category\n" +
		"2024-01-15,謎の店,-900,存在しないカテゴリ\n"

	accepted, res, err := NewEngine(testCategories()).Import(strings.NewReader(csv), Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.ImportedCount)
	require.Len(t, accepted, 1)
	assert.Nil(t, accepted[0].CategoryID)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "存在しないカテゴリ")
}

func TestImport_CategoryNameLookupIsCaseSensitiveAndTyped(t *testing.T) {
	cats := []core.Category{
		{ID: 7, Name: "Dining", Type: core.Expense, Keywords: nil},
	}
	csv := "date,description,amount,category\n" +
		"2024-01-15,dinner,-900,dining\n" + // wrong case: note, not a match
		"2024-01-16,refund,900,Dining\n" // income row cannot use an expense category

	accepted, res, err := NewEngine(cats).Import(strings.NewReader(csv), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ImportedCount)
	assert.Nil(t, accepted[0].CategoryID)
	assert.Nil(t, accepted[1].CategoryID)
	assert.Len(t, res.Notes, 2)
}

func TestImport_AutoClassifyWhenNoCategoryGiven(t *testing.T) {
	csv := "date,description,amount\n" +
		"2024-01-15,コンビニ おにぎり,-320\n" +
		"2024-01-16,現金引き出し,-10000\n"

	accepted, res, err := NewEngine(testCategories()).Import(strings.NewReader(csv), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ImportedCount)
	require.NotNil(t, accepted[0].CategoryID)
	assert.Equal(t, int64(1), *accepted[0].CategoryID)
	// No keyword matches: uncategorized, still accepted.
	assert.Nil(t, accepted[1].CategoryID)
	assert.Empty(t, res.Errors)
}

func TestImport_DefaultAccountAttached(t *testing.T) {
	accountID := int64(42)
	csv := "date,description,amount\n2024-01-15,lunch,-800\n"

	accepted, _, err := NewEngine(nil).Import(strings.NewReader(csv), Options{DefaultAccountID: &accountID})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	require.NotNil(t, accepted[0].AccountID)
	assert.Equal(t, int64(42), *accepted[0].AccountID)
}

func TestImport_MissingRequiredColumnIsFatal(t *testing.T) {
	csv := "date,description\n2024-01-15,lunch\n"

	accepted, _, err := NewEngine(nil).Import(strings.NewReader(csv), Options{})
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Nil(t, accepted)
}

func TestImport_UnknownColumnIsFatal(t *testing.T) {
	csv := "date,description,amount,balance\n2024-01-15,lunch,-800,1000\n"

	_, _, err := NewEngine(nil).Import(strings.NewReader(csv), Options{})
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestImport_EmptyFileIsFatal(t *testing.T) {
	_, _, err := NewEngine(nil).Import(strings.NewReader(""), Options{})
	require.ErrorIs(t, err, ErrNoHeader)
}

func TestImport_InvalidEncodingIsFatal(t *testing.T) {
	_, _, err := NewEngine(nil).Import(strings.NewReader("date,desc\xff\xfe,amount\n"), Options{})
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestImport_ByteOrderMarkTolerated(t *testing.T) {
	csv := "\ufeffdate,description,amount\n2024-01-15,lunch,-800\n"

	_, res, err := NewEngine(nil).Import(strings.NewReader(csv), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImportedCount)
}

func TestImport_ShortRowFailsRowValidation(t *testing.T) {
	csv := "date,description,amount\n2024-01-15\n2024-01-16,ok,-100\n"

	_, res, err := NewEngine(nil).Import(strings.NewReader(csv), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 1, res.ImportedCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Row)
}

func TestResult_ErrorStrings(t *testing.T) {
	res := Result{Errors: []RowError{
		{Row: 2, Kind: KindZeroAmount, Message: "zero amount not allowed"},
		{Row: 5, Kind: KindInvalidDate, Message: `invalid date "x", expected YYYY-MM-DD`},
	}}
	assert.Equal(t, []string{
		"row 2: zero amount not allowed",
		`row 5: invalid date "x", expected YYYY-MM-DD`,
	}, res.ErrorStrings())

	assert.Nil(t, Result{}.ErrorStrings())
}
