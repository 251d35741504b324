package core

import "time"

// CategoryAmount represents an amount aggregated by category id.
type CategoryAmount struct {
	CategoryID string
	Amount     Money
}

// Overview is a compact summary for a specific year+month.
type Overview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount
}

// PeriodComparison holds totals of two adjacent periods and the
// percentage change between them.
type PeriodComparison struct {
	Current       Money
	Previous      Money
	ChangePercent float64
}

// MonthlyTotal sums expenses whose date falls in the calendar month of
// ref. Future-dated expenses inside the month count.
func MonthlyTotal(expenses []Expense, ref time.Time) Money {
	var total int64
	year, month, _ := ref.UTC().Date()
	for _, e := range expenses {
		ey, em, _ := e.Date.UTC().Date()
		if ey == year && em == month {
			total += e.Amount.Cents
		}
	}
	return Money{Cents: total}
}

// CategoryTotal sums expenses belonging to the given category.
func CategoryTotal(expenses []Expense, categoryID string) Money {
	var total int64
	for _, e := range expenses {
		if e.CategoryID == categoryID {
			total += e.Amount.Cents
		}
	}
	return Money{Cents: total}
}

// MonthOverview folds expenses of a year+month into a total and a
// per-category breakdown. Breakdown order follows first appearance in
// the expense list.
func MonthOverview(expenses []Expense, year, month int) Overview {
	ov := Overview{Year: year, Month: month}
	index := make(map[string]int)
	for _, e := range expenses {
		ey, em, _ := e.Date.UTC().Date()
		if ey != year || int(em) != month {
			continue
		}
		ov.Total.Cents += e.Amount.Cents
		if i, ok := index[e.CategoryID]; ok {
			ov.ByCategory[i].Amount.Cents += e.Amount.Cents
			continue
		}
		index[e.CategoryID] = len(ov.ByCategory)
		ov.ByCategory = append(ov.ByCategory, CategoryAmount{
			CategoryID: e.CategoryID,
			Amount:     e.Amount,
		})
	}
	return ov
}

// ComparePeriods computes the percentage change between two period
// totals. A zero previous period counts as a 100% increase when the
// current one is nonzero, and 0% when both are zero.
func ComparePeriods(current, previous Money) PeriodComparison {
	c := PeriodComparison{Current: current, Previous: previous}
	switch {
	case previous.Cents == 0 && current.Cents == 0:
		c.ChangePercent = 0
	case previous.Cents == 0:
		c.ChangePercent = 100
	default:
		c.ChangePercent = float64(current.Cents-previous.Cents) / float64(previous.Cents) * 100
	}
	return c
}
