package finance

import (
	"testing"
	"time"

	"budget/internal/core"
)

var forecastToday = time.Date(2025, time.January, 6, 15, 30, 0, 0, time.UTC)

func recurring(freq core.Frequency, cents int64, next core.Date) core.RecurringTransaction {
	return core.RecurringTransaction{Description: "r", Amount: core.Money{Cents: cents}, Frequency: freq, NextDate: next}
}

func TestForecastAlwaysThirteenBuckets(t *testing.T) {
	cases := [][]core.RecurringTransaction{
		nil,
		{recurring(core.Weekly, -100, core.NewDate(2025, 1, 1))},
		{recurring(core.Monthly, 500, core.NewDate(2025, 1, 9)), recurring(core.Annual, -900, core.NewDate(2025, 3, 1))},
	}
	for i, items := range cases {
		got := Forecast(forecastToday, nil, items)
		if len(got) != ForecastWeeks {
			t.Fatalf("case %d: got %d buckets", i, len(got))
		}
	}
}

func TestForecastBucketStarts(t *testing.T) {
	got := Forecast(forecastToday, nil, nil)
	if got[0].Start != core.NewDate(2025, 1, 6) || got[0].Label != "Jan 6" {
		t.Fatalf("first bucket = %v %q", got[0].Start, got[0].Label)
	}
	if got[1].Start != core.NewDate(2025, 1, 13) {
		t.Fatalf("second bucket starts %v", got[1].Start)
	}
	if got[12].Start != core.NewDate(2025, 3, 31) {
		t.Fatalf("last bucket starts %v", got[12].Start)
	}
}

func TestForecastWeeklyExpense(t *testing.T) {
	items := []core.RecurringTransaction{recurring(core.Weekly, -10000, core.NewDate(2030, 1, 1))}
	for i, b := range Forecast(forecastToday, nil, items) {
		if b.Expense.Cents != 10000 || b.Income.Cents != 0 {
			t.Fatalf("bucket %d: income=%d expense=%d", i, b.Income.Cents, b.Expense.Cents)
		}
	}
}

func TestForecastMonthlyAtMostOncePerBucket(t *testing.T) {
	items := []core.RecurringTransaction{recurring(core.Monthly, -2500, core.NewDate(2025, 6, 15))}
	got := Forecast(forecastToday, nil, items)
	hits := 0
	for i, b := range got {
		switch b.Expense.Cents {
		case 0:
		case 2500:
			hits++
		default:
			t.Fatalf("bucket %d double counted: %d", i, b.Expense.Cents)
		}
	}
	// Jan 15, Feb 15, Mar 15 fall inside the horizon even though the anchor is in June.
	if hits != 3 {
		t.Fatalf("expected 3 monthly hits, got %d", hits)
	}
}

func TestForecastAnnual(t *testing.T) {
	items := []core.RecurringTransaction{
		recurring(core.Annual, 120000, core.NewDate(2025, 2, 20)),
		recurring(core.Annual, -5000, core.NewDate(2024, 2, 20)),
	}
	got := Forecast(forecastToday, nil, items)
	for i, b := range got {
		want := int64(0)
		if i == 6 { // Feb 17 - Feb 23
			want = 120000
		}
		if b.Income.Cents != want {
			t.Fatalf("bucket %d income=%d want %d", i, b.Income.Cents, want)
		}
		if b.Expense.Cents != 0 {
			t.Fatalf("bucket %d: last year's annual item should not project forward", i)
		}
	}
}

func TestForecastRetainerOnFirstOfMonth(t *testing.T) {
	projects := []core.Project{
		{ID: 1, MonthlyRetainer: core.Money{Cents: 300000}, Status: core.StatusActive},
		{ID: 2, MonthlyRetainer: core.Money{Cents: 999999}, Status: core.StatusCompleted},
	}
	got := Forecast(forecastToday, projects, nil)
	var total int64
	for _, b := range got {
		total += b.Income.Cents
	}
	// Feb 1, Mar 1 and Apr 1 fall in the horizon.
	if total != 900000 {
		t.Fatalf("retainer income = %d, want 900000", total)
	}
	if got[3].Income.Cents != 300000 { // Jan 27 - Feb 2
		t.Fatalf("week of Feb 1 income = %d", got[3].Income.Cents)
	}
}

func TestForecastUnknownFrequencyIgnored(t *testing.T) {
	items := []core.RecurringTransaction{recurring("DAILY", -100, core.NewDate(2025, 1, 1))}
	for _, b := range Forecast(forecastToday, nil, items) {
		if b.Expense.Cents != 0 {
			t.Fatalf("unexpected expense %d", b.Expense.Cents)
		}
	}
}
