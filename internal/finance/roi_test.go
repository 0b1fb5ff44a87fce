package finance

import (
	"testing"
	"time"

	"budget/internal/core"
)

func TestSoftwareEfficiency(t *testing.T) {
	projects := map[int64]core.Project{
		1: {ID: 1, MonthlyRetainer: core.Money{Cents: 300000}},
		2: {ID: 2, MonthlyRetainer: core.Money{Cents: 100000}},
	}
	items := []core.RecurringTransaction{
		{ID: 10, Description: "Figma", Category: "Software", Amount: core.Money{Cents: -5000}, ProjectIDs: []int64{1, 2}},
		{ID: 11, Description: "Unused", Category: "software", Amount: core.Money{Cents: -2000}},
		{ID: 12, Description: "Free tier", Category: "Software", Amount: core.Money{}, ProjectIDs: []int64{1}},
		{ID: 13, Description: "Rent", Category: "Office", Amount: core.Money{Cents: -100000}, ProjectIDs: []int64{1}},
		{ID: 14, Description: "Ghost link", Category: "Software", Amount: core.Money{Cents: -1000}, ProjectIDs: []int64{99}},
	}
	got := SoftwareEfficiency(items, projects)
	if len(got) != 4 {
		t.Fatalf("expected 4 software items, got %d", len(got))
	}
	first := got[0]
	if first.Item.ID != 10 || first.SupportedRetainer.Cents != 400000 || first.Efficiency.String() != "80" {
		t.Fatalf("unexpected first row %+v (eff %s)", first, first.Efficiency)
	}
	for _, r := range got[1:] {
		if !r.Efficiency.IsZero() {
			t.Fatalf("item %d should have zero efficiency, got %s", r.Item.ID, r.Efficiency)
		}
	}
}

func TestTaxDeadlines(t *testing.T) {
	d := TaxDeadlines()
	if len(d) != 4 || d[0].Label() != "Jan 31" || d[3].Event != "Kansas State Tax" {
		t.Fatalf("unexpected deadlines %+v", d)
	}
	next := d[0].Next(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	if next.Year() != 2026 {
		t.Fatalf("expected next year, got %v", next)
	}
	if same := d[0].Next(time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)); same.Year() != 2025 {
		t.Fatalf("deadline on the day should stay this year, got %v", same)
	}
}
