package finance

import (
	"github.com/shopspring/decimal"

	"budget/internal/core"
)

var hundred = decimal.NewFromInt(100)

// ProjectStats are the derived economics of one project.
type ProjectStats struct {
	TotalHours          decimal.Decimal
	EffectiveHourlyRate core.Money
	MarginPercent       decimal.Decimal
	PlannedUsedPercent  decimal.Decimal
}

// ComputeProjectStats sums the entries and derives the project's rates.
func ComputeProjectStats(p core.Project, entries []core.TimeEntry) ProjectStats {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Hours)
	}
	return StatsForHours(p, total)
}

// StatsForHours derives the project's rates from an already summed hour total.
// Zero denominators yield zero rather than an error.
func StatsForHours(p core.Project, totalHours decimal.Decimal) ProjectStats {
	s := ProjectStats{
		TotalHours:          totalHours,
		EffectiveHourlyRate: core.Money{},
		MarginPercent:       decimal.Zero,
		PlannedUsedPercent:  decimal.Zero,
	}
	retainer := p.MonthlyRetainer.Decimal()

	if !totalHours.IsZero() {
		s.EffectiveHourlyRate = core.MoneyFromDecimal(retainer.Div(totalHours))
	}
	if !retainer.IsZero() {
		cost := totalHours.Mul(p.CostRate.Decimal())
		s.MarginPercent = retainer.Sub(cost).Div(retainer).Mul(hundred).Round(2)
	}
	if !p.PlannedHours.IsZero() {
		s.PlannedUsedPercent = totalHours.Div(p.PlannedHours).Mul(hundred).Round(2)
	}
	return s
}

// StatsByProject keys stats by project id. Projects missing from hours get
// zero hours.
func StatsByProject(projects []core.Project, hours map[int64]decimal.Decimal) map[int64]ProjectStats {
	out := make(map[int64]ProjectStats, len(projects))
	for _, p := range projects {
		h, ok := hours[p.ID]
		if !ok {
			h = decimal.Zero
		}
		out[p.ID] = StatsForHours(p, h)
	}
	return out
}
