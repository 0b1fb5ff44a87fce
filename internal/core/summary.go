package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Totals summarises a set of transactions.
type Totals struct {
	Income      Money // sum of positive amounts
	Expenses    Money // magnitude of negative amounts
	PassThrough Money // magnitude of pass-through expenses
	Net         Money
	ByCategory  []CategoryAmount // expense magnitude per category, largest first
}
