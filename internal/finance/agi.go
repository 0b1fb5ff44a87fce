// Package finance derives the summaries shown on the dashboard: agency gross
// income, per-project economics, the thirteen-week cash forecast and the
// software ROI view. Every function here is pure and cheap; callers recompute
// on each request.
package finance

import (
	"sort"

	"budget/internal/core"
)

// AGI returns agency gross income: all positive amounts minus the magnitude of
// pass-through expenses. Non pass-through expenses do not reduce it.
func AGI(txs []core.Transaction) core.Money {
	var agi core.Money
	for _, tx := range txs {
		switch {
		case tx.IsIncome():
			agi = agi.Add(tx.Amount)
		case tx.Amount.IsNegative() && tx.PassThrough:
			agi = agi.Sub(tx.Amount.Abs())
		}
	}
	return agi
}

// Totals breaks a transaction set down for the summary cards.
func Totals(txs []core.Transaction) core.Totals {
	var t core.Totals
	byCategory := make(map[string]core.Money)
	for _, tx := range txs {
		if tx.IsIncome() {
			t.Income = t.Income.Add(tx.Amount)
			continue
		}
		mag := tx.Amount.Abs()
		t.Expenses = t.Expenses.Add(mag)
		if tx.PassThrough {
			t.PassThrough = t.PassThrough.Add(mag)
		}
		name := tx.Category
		if name == "" {
			name = "Uncategorized"
		}
		byCategory[name] = byCategory[name].Add(mag)
	}
	t.Net = t.Income.Sub(t.Expenses)
	for name, amount := range byCategory {
		t.ByCategory = append(t.ByCategory, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(t.ByCategory, func(i, j int) bool {
		if t.ByCategory[i].Amount.Cents != t.ByCategory[j].Amount.Cents {
			return t.ByCategory[i].Amount.Cents > t.ByCategory[j].Amount.Cents
		}
		return t.ByCategory[i].Name < t.ByCategory[j].Name
	})
	return t
}
