package http

import (
	"time"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
	"kakeibo/internal/report"
)

// Wire types. Amounts travel as decimal strings; dates as YYYY-MM-DD.

type categoryDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Keywords  []string  `json:"keywords"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

type categoryRequest struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Keywords []string `json:"keywords"`
	Icon     string   `json:"icon"`
	Color    string   `json:"color"`
}

func toCategoryDTO(c core.Category) categoryDTO {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return categoryDTO{
		ID:        c.ID,
		Name:      c.Name,
		Type:      string(c.Type),
		Keywords:  keywords,
		Icon:      c.Icon,
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
	}
}

func (req categoryRequest) toCore() core.Category {
	return core.Category{
		Name:     req.Name,
		Type:     core.FlowType(req.Type),
		Keywords: req.Keywords,
		Icon:     req.Icon,
		Color:    req.Color,
	}
}

type accountDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Balance   string    `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type accountRequest struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

func toAccountDTO(a core.Account) accountDTO {
	return accountDTO{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance.String(),
		Currency:  a.Currency,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (req accountRequest) toCore() core.Account {
	return core.Account{
		Name:     req.Name,
		Type:     core.AccountType(req.Type),
		Balance:  req.Balance,
		Currency: req.Currency,
	}
}

type transactionDTO struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Type        string    `json:"type"`
	CategoryID  *int64    `json:"categoryId"`
	AccountID   *int64    `json:"accountId"`
	Memo        string    `json:"memo"`
	CreatedAt   time.Time `json:"createdAt"`
}

type transactionRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  *int64          `json:"categoryId"`
	AccountID   *int64          `json:"accountId"`
	Memo        string          `json:"memo"`
}

func toTransactionDTO(tx core.Transaction) transactionDTO {
	return transactionDTO{
		ID:          tx.ID,
		Date:        tx.Date.Format(core.DateLayout),
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		Type:        string(tx.Type),
		CategoryID:  tx.CategoryID,
		AccountID:   tx.AccountID,
		Memo:        tx.Memo,
		CreatedAt:   tx.CreatedAt,
	}
}

func (req transactionRequest) toCore() (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		Memo:        req.Memo,
	}, nil
}

func toTransactionDTOs(txns []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(txns))
	for _, tx := range txns {
		out = append(out, toTransactionDTO(tx))
	}
	return out
}

type reportLineDTO struct {
	CategoryID   *int64 `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Total        string `json:"total"`
	Count        int    `json:"count"`
	Percentage   string `json:"percentage"`
}

type reportDTO struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	Focus        string          `json:"focus"`
	TotalIncome  string          `json:"totalIncome"`
	TotalExpense string          `json:"totalExpense"`
	Net          string          `json:"net"`
	ByCategory   []reportLineDTO `json:"byCategory"`
}

func toReportDTO(rep report.Report, year, month int, focus core.FlowType) reportDTO {
	lines := make([]reportLineDTO, 0, len(rep.ByCategory))
	for _, l := range rep.ByCategory {
		lines = append(lines, reportLineDTO{
			CategoryID:   l.CategoryID,
			CategoryName: l.CategoryName,
			Total:        l.Total.String(),
			Count:        l.Count,
			Percentage:   l.Percentage.String(),
		})
	}
	return reportDTO{
		Year:         year,
		Month:        month,
		Focus:        string(focus),
		TotalIncome:  rep.TotalIncome.String(),
		TotalExpense: rep.TotalExpense.String(),
		Net:          rep.Net.String(),
		ByCategory:   lines,
	}
}

type importResponse struct {
	Success       bool     `json:"success"`
	TotalRows     int      `json:"totalRows"`
	ImportedCount int      `json:"importedCount"`
	Errors        []string `json:"errors"`
	Notes         []string `json:"notes"`
}
