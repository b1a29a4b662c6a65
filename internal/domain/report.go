package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TypeCount struct {
	Type  ResourceType
	Count int
}

// Window is a half-open [From, To) range.
type Window struct {
	From time.Time
	To   time.Time
}

func DayWindow(day time.Time) Window {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return Window{From: from, To: from.AddDate(0, 0, 1)}
}

type ResourceTotals struct {
	Total          int
	Free           int
	Issued         int
	Closed         int
	IssuedInWindow int
	ClosedInWindow int
}

type PurchaseTotals struct {
	Count int
	Spent decimal.Decimal
}

func (p PurchaseTotals) AveragePrice() decimal.Decimal {
	if p.Count == 0 {
		return decimal.Zero
	}
	return p.Spent.Div(decimal.NewFromInt(int64(p.Count))).Round(2)
}

type DailyReport struct {
	Window       Window
	Totals       ResourceTotals
	Purchases    PurchaseTotals
	IssuedByType []TypeCount
	FreeByType   []TypeCount
}
