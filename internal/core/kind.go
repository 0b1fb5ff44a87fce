package core

import "strings"

// Kind tags a ledger entry as income or expense. The stored amount sign is
// derived from it at write time and trusted everywhere else.
type Kind int

const (
	Expense Kind = iota
	Income
)

// IncomeCategories are the categories that imply Income when a form does not
// say which kind it is submitting.
var IncomeCategories = []string{"Income", "Retainer", "Project Income", "Other Income"}

// ExpenseCategories are offered as suggestions next to IncomeCategories.
var ExpenseCategories = []string{"Software", "Contractor", "Advertising", "Office", "Travel", "Taxes", "Pass-Through", "Other Expense"}

// ParseKind maps "income"/"expense" (any case) to a Kind. Anything else
// falls back to the category.
func ParseKind(s, category string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income
	case "expense":
		return Expense
	}
	return KindForCategory(category)
}

// KindForCategory classifies a free-text category.
func KindForCategory(category string) Kind {
	c := strings.TrimSpace(category)
	for _, ic := range IncomeCategories {
		if strings.EqualFold(ic, c) {
			return Income
		}
	}
	return Expense
}

// Normalize forces the sign of m to match the kind.
func (k Kind) Normalize(m Money) Money {
	if k == Income {
		return m.Abs()
	}
	return m.Abs().Neg()
}

func (k Kind) String() string {
	if k == Income {
		return "income"
	}
	return "expense"
}
