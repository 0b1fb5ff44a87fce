package finance

import (
	"testing"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func hours(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeProjectStats(t *testing.T) {
	p := core.Project{ID: 1, Name: "Acme", MonthlyRetainer: core.Money{Cents: 300000}, CostRate: core.Money{Cents: 5000}, Status: core.StatusActive}
	entries := []core.TimeEntry{
		{ProjectID: 1, Hours: hours("12.5")},
		{ProjectID: 1, Hours: hours("7.5")},
	}
	s := ComputeProjectStats(p, entries)
	if !s.TotalHours.Equal(hours("20")) {
		t.Fatalf("total hours = %s", s.TotalHours)
	}
	if s.EffectiveHourlyRate.Cents != 15000 {
		t.Fatalf("AHR = %d cents, want 15000", s.EffectiveHourlyRate.Cents)
	}
	if !s.MarginPercent.Equal(hours("66.67")) {
		t.Fatalf("margin = %s, want 66.67", s.MarginPercent)
	}
}

func TestStatsZeroDenominators(t *testing.T) {
	tests := []struct {
		name       string
		project    core.Project
		hours      decimal.Decimal
		wantRate   int64
		wantMargin string
	}{
		{"no hours", core.Project{MonthlyRetainer: core.Money{Cents: 300000}, CostRate: core.Money{Cents: 5000}}, decimal.Zero, 0, "100"},
		{"no retainer", core.Project{CostRate: core.Money{Cents: 5000}}, hours("10"), 0, "0"},
		{"nothing at all", core.Project{}, decimal.Zero, 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := StatsForHours(tt.project, tt.hours)
			if s.EffectiveHourlyRate.Cents != tt.wantRate {
				t.Errorf("rate = %d, want %d", s.EffectiveHourlyRate.Cents, tt.wantRate)
			}
			if !s.MarginPercent.Equal(hours(tt.wantMargin)) {
				t.Errorf("margin = %s, want %s", s.MarginPercent, tt.wantMargin)
			}
		})
	}
}

func TestPlannedUsedPercent(t *testing.T) {
	p := core.Project{MonthlyRetainer: core.Money{Cents: 100000}, PlannedHours: hours("40")}
	s := StatsForHours(p, hours("10"))
	if !s.PlannedUsedPercent.Equal(hours("25")) {
		t.Fatalf("planned used = %s", s.PlannedUsedPercent)
	}
}

func TestStatsByProject(t *testing.T) {
	projects := []core.Project{
		{ID: 1, MonthlyRetainer: core.Money{Cents: 100000}},
		{ID: 2, MonthlyRetainer: core.Money{Cents: 50000}},
	}
	got := StatsByProject(projects, map[int64]decimal.Decimal{1: hours("10")})
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[1].EffectiveHourlyRate.Cents != 10000 {
		t.Fatalf("project 1 rate = %d", got[1].EffectiveHourlyRate.Cents)
	}
	if !got[2].TotalHours.IsZero() || got[2].EffectiveHourlyRate.Cents != 0 {
		t.Fatalf("project 2 should have zero hours: %+v", got[2])
	}
}
