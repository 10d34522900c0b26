// Package reporting computes derived views over entity collections:
// expense rollups, budget comparison, task ordering, and file tallies.
package reporting

import (
	"time"

	"github.com/backlot-app/backlot/internal/database"
)

// CategoryTotals maps each of the five fixed expense categories to its
// summed amount. Keys are always present, possibly zero.
type CategoryTotals map[string]float64

// ExpensesByCategory accumulates amounts per category. Rows with a category
// outside the fixed set are dropped, not folded into other; the bucket set
// stays fixed and typed.
func ExpensesByCategory(expenses []database.Expense) CategoryTotals {
	totals := make(CategoryTotals, len(database.ExpenseCategories))
	for _, c := range database.ExpenseCategories {
		totals[c] = 0
	}
	for _, e := range expenses {
		if _, ok := totals[e.Category]; !ok {
			continue
		}
		totals[e.Category] += e.Amount
	}
	return totals
}

// TotalSpent sums every expense whose category is one of the fixed five.
func TotalSpent(expenses []database.Expense) float64 {
	var total float64
	for _, amount := range ExpensesByCategory(expenses) {
		total += amount
	}
	return total
}

// BudgetComparison relates a project budget to its spend. Remaining and
// PercentageUsed are nil when the project has no budget, which also avoids
// dividing by zero.
type BudgetComparison struct {
	Budget         *float64 `json:"budget"`
	Spent          float64  `json:"spent"`
	Remaining      *float64 `json:"remaining"`
	PercentageUsed *float64 `json:"percentage_used"`
}

// CompareBudget computes spend against the project's budget.
func CompareBudget(budget *float64, expenses []database.Expense) BudgetComparison {
	spent := TotalSpent(expenses)
	cmp := BudgetComparison{Budget: budget, Spent: spent}
	if budget == nil {
		return cmp
	}
	remaining := *budget - spent
	cmp.Remaining = &remaining
	if *budget > 0 {
		pct := spent / *budget * 100
		cmp.PercentageUsed = &pct
	}
	return cmp
}

// MonthBucket is one calendar month's expense rollup.
type MonthBucket struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// ExpensesByMonth buckets expenses into exactly months consecutive calendar
// months ending at now's month, most recent last. Expenses match a bucket
// when their date string has the bucket's month as a prefix; months with no
// matches report zero rather than being omitted.
func ExpensesByMonth(expenses []database.Expense, months int, now time.Time) []MonthBucket {
	if months <= 0 {
		months = 6
	}
	buckets := make([]MonthBucket, 0, months)
	for i := months - 1; i >= 0; i-- {
		m := now.AddDate(0, -i, -now.Day()+1) // first of the month, i months back
		prefix := m.Format("2006-01")
		bucket := MonthBucket{Month: prefix}
		for _, e := range expenses {
			if len(e.ExpenseDate) >= len(prefix) && e.ExpenseDate[:len(prefix)] == prefix {
				bucket.Total += e.Amount
				bucket.Count++
			}
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}
