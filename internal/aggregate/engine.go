// Package aggregate derives the dashboard views of a transaction list:
// filtered subsets, income/expense summary, a dense monthly series,
// per-category expense totals, the category picker options and the CSV
// export. Every operation is pure and never fails; corrupt records simply
// contribute nothing.
package aggregate

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	DateModeAll    DateMode = "all"
	DateModeMonth  DateMode = "month"
	DateModeYear   DateMode = "year"
	DateModeCustom DateMode = "custom"

	// AllCategories disables the category filter and is always the first
	// category option.
	AllCategories = "all"
)

type (
	// DateMode selects the date window applied by Filter.
	DateMode string

	// Params are the dashboard filter controls. Bounds are only read in
	// DateModeCustom and accept YYYY-MM-DD or RFC 3339.
	Params struct {
		DateMode  DateMode `json:"dateMode"`
		StartDate string   `json:"startDate,omitempty"`
		EndDate   string   `json:"endDate,omitempty"`
		Category  string   `json:"category"`
	}

	Summary struct {
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Balance decimal.Decimal `json:"balance"`
	}

	MonthlySeries struct {
		Year        int                 `json:"year"`
		IncomeData  [12]decimal.Decimal `json:"incomeData"`
		ExpenseData [12]decimal.Decimal `json:"expenseData"`
	}

	// CategoryTotals maps a category label to its summed absolute expense.
	CategoryTotals map[string]decimal.Decimal

	Dashboard struct {
		Transactions    []core.Transaction `json:"transactions"`
		Summary         Summary            `json:"summary"`
		Monthly         MonthlySeries      `json:"monthly"`
		Categories      CategoryTotals     `json:"categories"`
		CategoryOptions []string           `json:"categoryOptions"`
	}

	// Engine evaluates the views against a reference clock and location.
	// The zero value is not usable; use New.
	Engine struct {
		now func() time.Time
		loc *time.Location
	}

	Option func(*Engine)
)

// WithClock sets the reference clock used by the month and year modes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the location used for calendar math and CSV dates.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock in the engine location.
func (e *Engine) Now() time.Time { return e.now().In(e.loc) }

// Filter returns the transactions matching p, preserving input order.
// The input slice is never modified.
func (e *Engine) Filter(txs []core.Transaction, p Params) []core.Transaction {
	keepDate := e.dateMatcher(p)
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if keepDate != nil && !keepDate(tx.Date) {
			continue
		}
		if p.Category != "" && p.Category != AllCategories && tx.Category != p.Category {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// dateMatcher returns nil when no date filtering applies.
func (e *Engine) dateMatcher(p Params) func(time.Time) bool {
	switch p.DateMode {
	case DateModeMonth:
		now := e.Now()
		return func(d time.Time) bool {
			if d.IsZero() {
				return false
			}
			d = d.In(e.loc)
			return d.Year() == now.Year() && d.Month() == now.Month()
		}
	case DateModeYear:
		year := e.Now().Year()
		return func(d time.Time) bool {
			return !d.IsZero() && d.In(e.loc).Year() == year
		}
	case DateModeCustom:
		start, end, ok := e.customRange(p.StartDate, p.EndDate)
		if !ok {
			return nil
		}
		return func(d time.Time) bool {
			return !d.IsZero() && !d.Before(start) && !d.After(end)
		}
	default:
		return nil
	}
}

// customRange resolves an inclusive [start, end] window. The end bound is
// moved to the last millisecond of its calendar day. Both bounds must parse.
func (e *Engine) customRange(startStr, endStr string) (time.Time, time.Time, bool) {
	start, ok := e.parseBound(startStr)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := e.parseBound(endStr)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), e.loc)
	return start, end, true
}

func (e *Engine) parseBound(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation("2006-01-02", s, e.loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(e.loc), true
	}
	return time.Time{}, false
}

// Summarize sums absolute amounts per type. Balance is income minus expense.
func (e *Engine) Summarize(txs []core.Transaction) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			s.Income = s.Income.Add(tx.Amount.Abs())
		case core.Expense:
			s.Expense = s.Expense.Add(tx.Amount.Abs())
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}

// MonthlySeries buckets the absolute amounts of year's transactions by month.
// Both arrays always hold twelve entries.
func (e *Engine) MonthlySeries(txs []core.Transaction, year int) MonthlySeries {
	ms := MonthlySeries{Year: year}
	for i := range ms.IncomeData {
		ms.IncomeData[i] = decimal.Zero
		ms.ExpenseData[i] = decimal.Zero
	}
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		d := tx.Date.In(e.loc)
		if d.Year() != year {
			continue
		}
		m := int(d.Month()) - 1
		switch tx.Type {
		case core.Income:
			ms.IncomeData[m] = ms.IncomeData[m].Add(tx.Amount.Abs())
		case core.Expense:
			ms.ExpenseData[m] = ms.ExpenseData[m].Add(tx.Amount.Abs())
		}
	}
	return ms
}

// CategoryTotals sums absolute expense amounts per exact category label.
// Income is ignored and categories without expenses are absent.
func (e *Engine) CategoryTotals(txs []core.Transaction) CategoryTotals {
	totals := make(CategoryTotals)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount.Abs())
	}
	return totals
}

// DistinctCategories returns "all" followed by each category in first-seen
// order.
func (e *Engine) DistinctCategories(txs []core.Transaction) []string {
	seen := make(map[string]struct{}, len(txs))
	out := []string{AllCategories}
	for _, tx := range txs {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		out = append(out, tx.Category)
	}
	return out
}

// Dashboard computes every view of the dashboard page at once. Summary and
// category totals follow the filter; the monthly series covers the whole
// list for year.
func (e *Engine) Dashboard(txs []core.Transaction, p Params, year int) Dashboard {
	filtered := e.Filter(txs, p)
	return Dashboard{
		Transactions:    filtered,
		Summary:         e.Summarize(filtered),
		Monthly:         e.MonthlySeries(txs, year),
		Categories:      e.CategoryTotals(filtered),
		CategoryOptions: e.DistinctCategories(txs),
	}
}
