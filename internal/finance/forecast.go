package finance

import (
	"time"

	"budget/internal/core"
)

// ForecastWeeks is the forecast horizon.
const ForecastWeeks = 13

const daysPerWeek = 7

// WeekBucket is one week of projected cash flow. Expense holds a magnitude.
type WeekBucket struct {
	Label   string
	Start   core.Date
	Income  core.Money
	Expense core.Money
}

// Net is income minus expense for the week.
func (b WeekBucket) Net() core.Money {
	return b.Income.Sub(b.Expense)
}

// occurrenceCounter reports how many times a recurring item falls within the
// seven days starting at start.
type occurrenceCounter interface {
	Occurrences(item core.RecurringTransaction, start core.Date) int
}

type weeklyCounter struct{}

// Occurrences is always one: weekly items hit every bucket regardless of anchor.
func (weeklyCounter) Occurrences(core.RecurringTransaction, core.Date) int {
	return 1
}

type monthlyCounter struct{}

// Occurrences matches on day-of-month only. Dates before the anchor count too.
func (monthlyCounter) Occurrences(item core.RecurringTransaction, start core.Date) int {
	n := 0
	for i := 0; i < daysPerWeek; i++ {
		if start.AddDays(i).Day() == item.NextDate.Day() {
			n++
		}
	}
	return n
}

type annualCounter struct{}

// Occurrences matches the literal anchor date; there is no projection into
// later years.
func (annualCounter) Occurrences(item core.RecurringTransaction, start core.Date) int {
	end := start.AddDays(daysPerWeek - 1)
	if item.NextDate.Before(start.Time) || item.NextDate.After(end.Time) {
		return 0
	}
	return 1
}

var occurrenceCounters = map[core.Frequency]occurrenceCounter{
	core.Weekly:  weeklyCounter{},
	core.Monthly: monthlyCounter{},
	core.Annual:  annualCounter{},
}

// Forecast projects thirteen weekly buckets starting today. Active project
// retainers land on the first of each month; recurring items are matched by
// their frequency's counter.
func Forecast(today time.Time, projects []core.Project, recurring []core.RecurringTransaction) []WeekBucket {
	start := core.DateOf(today)
	buckets := make([]WeekBucket, ForecastWeeks)

	for w := range buckets {
		b := WeekBucket{Start: start}
		b.Label = start.Format("Jan 2")

		for i := 0; i < daysPerWeek; i++ {
			if start.AddDays(i).Day() != 1 {
				continue
			}
			for _, p := range projects {
				if p.Status == core.StatusActive {
					b.Income = b.Income.Add(p.MonthlyRetainer)
				}
			}
		}

		for _, item := range recurring {
			counter, ok := occurrenceCounters[item.Frequency]
			if !ok {
				continue
			}
			n := int64(counter.Occurrences(item, start))
			if n == 0 {
				continue
			}
			amount := core.Money{Cents: item.Amount.Abs().Cents * n}
			if item.Amount.IsPositive() {
				b.Income = b.Income.Add(amount)
			} else {
				b.Expense = b.Expense.Add(amount)
			}
		}

		buckets[w] = b
		start = start.AddDays(daysPerWeek)
	}
	return buckets
}
