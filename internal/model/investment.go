package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage and wire format of calendar dates.
const DateLayout = "2006-01-02"

// Product is a purchasable income-generating plan from the catalog.
type Product struct {
	ID           string          `json:"id" toml:"id"`
	Name         string          `json:"name" toml:"name"`
	Price        decimal.Decimal `json:"price" toml:"price"`
	DailyIncome  decimal.Decimal `json:"dailyIncome" toml:"daily_income"`
	DurationDays int             `json:"durationDays" toml:"duration_days"`
}

// Investment is a purchased position. It is never closed explicitly,
// it simply stops accruing once DurationDays have elapsed.
type Investment struct {
	ID                   string          `json:"id"`
	Account              string          `json:"account"`
	ProductID            string          `json:"productId"`
	PurchasePrice        decimal.Decimal `json:"purchasePrice"`
	PurchaseDate         time.Time       `json:"purchaseDate"`
	FundingTransactionID string          `json:"fundingTransactionId"`
	CreatedAt            time.Time       `json:"createdAt"`
}

// DaysElapsed returns the number of calendar days between the purchase date and day.
// Both dates are compared as plain calendar dates.
func (i Investment) DaysElapsed(day time.Time) int {
	return DaysBetween(i.PurchaseDate, day)
}

// IsActive reports whether the investment still accrues on day.
func (i Investment) IsActive(day time.Time, product Product) bool {
	elapsed := i.DaysElapsed(day)
	return elapsed >= 0 && elapsed < product.DurationDays
}

// InvestmentView is an investment enriched with its derived state for API responses.
type InvestmentView struct {
	Investment
	ProductName  string          `json:"productName,omitempty"`
	DailyIncome  decimal.Decimal `json:"dailyIncome"`
	DurationDays int             `json:"durationDays"`
	DaysElapsed  int             `json:"daysElapsed"`
	Active       bool            `json:"active"`
	GrantsPaid   int             `json:"grantsPaid"`
}

// IncomeGrant is the idempotency record of one accrual payment.
// At most one exists per (InvestmentID, GrantDate).
type IncomeGrant struct {
	ID            string          `json:"id"`
	Account       string          `json:"account"`
	InvestmentID  string          `json:"investmentId"`
	GrantDate     time.Time       `json:"grantDate"`
	DayNumber     int             `json:"dayNumber"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CalendarDate truncates t to midnight of its calendar day in loc.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween returns the whole calendar days from a to b, ignoring time of day and DST.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
