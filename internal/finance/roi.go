package finance

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// SoftwareCategory is the recurring category evaluated by SoftwareEfficiency.
const SoftwareCategory = "Software"

// SoftwareROI relates a software subscription to the retainers it supports.
type SoftwareROI struct {
	Item              core.RecurringTransaction
	Projects          []core.Project
	SupportedRetainer core.Money
	Efficiency        decimal.Decimal // supported retainer per unit of cost
}

// IsSoftware reports whether a recurring item belongs in the ROI view.
func IsSoftware(item core.RecurringTransaction) bool {
	return strings.EqualFold(strings.TrimSpace(item.Category), SoftwareCategory)
}

// SoftwareEfficiency evaluates every software item in recurring. Links to ids
// missing from projects are ignored. Results are ordered by efficiency, best
// first.
func SoftwareEfficiency(recurring []core.RecurringTransaction, projects map[int64]core.Project) []SoftwareROI {
	var out []SoftwareROI
	for _, item := range recurring {
		if !IsSoftware(item) {
			continue
		}
		roi := SoftwareROI{Item: item, Efficiency: decimal.Zero}
		for _, id := range item.ProjectIDs {
			p, ok := projects[id]
			if !ok {
				continue
			}
			roi.Projects = append(roi.Projects, p)
			roi.SupportedRetainer = roi.SupportedRetainer.Add(p.MonthlyRetainer)
		}
		cost := item.Amount.Abs()
		if len(roi.Projects) > 0 && !cost.IsZero() {
			roi.Efficiency = roi.SupportedRetainer.Decimal().Div(cost.Decimal()).Round(2)
		}
		out = append(out, roi)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Efficiency.GreaterThan(out[j].Efficiency)
	})
	return out
}
