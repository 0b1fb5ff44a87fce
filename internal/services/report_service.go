package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budget/internal/core"
	"budget/internal/finance"
	"budget/internal/storage"
)

// ReportService is the read path. Each call loads a fresh snapshot, fanning
// independent queries out with an errgroup, and runs the finance engine over
// it. Nothing is cached between calls.
type ReportService struct {
	store *storage.Store
	now   func() time.Time
}

func NewReportService(store *storage.Store) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// Today is the date the reports are computed for.
func (s *ReportService) Today() core.Date {
	return core.DateOf(s.now())
}

// ProjectSummary pairs a project with its derived stats.
type ProjectSummary struct {
	Project core.Project
	Stats   finance.ProjectStats
}

// DeadlineView is a tax deadline with its next occurrence.
type DeadlineView struct {
	finance.Deadline
	Next core.Date
}

// Ledger is the transaction list with its AGI, as rendered by the
// transaction_list and agi_gauge fragments.
type Ledger struct {
	Transactions []core.Transaction
	AGI          core.Money
	Totals       core.Totals
	ProjectNames map[int64]string // every project, for rendering links
}

type Dashboard struct {
	Ledger
	Today     core.Date
	Deadlines []DeadlineView
	Projects  []ProjectSummary
	Forecast  []finance.WeekBucket
}

func (s *ReportService) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		txs       []core.Transaction
		projects  []core.Project
		recurring []core.RecurringTransaction
		hours     map[int64]decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.store.ListProjects(gctx)
		return err
	})
	g.Go(func() (err error) {
		recurring, err = s.store.ListRecurring(gctx)
		return err
	})
	g.Go(func() (err error) {
		hours, err = s.store.SumHoursByProject(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	active := activeOnly(projects)
	today := s.now()
	d := Dashboard{
		Ledger:   newLedger(txs, projects),
		Today:    core.DateOf(today),
		Projects: summarize(active, hours),
		Forecast: finance.Forecast(today, active, recurring),
	}
	for _, dl := range finance.TaxDeadlines() {
		d.Deadlines = append(d.Deadlines, DeadlineView{Deadline: dl, Next: core.DateOf(dl.Next(today))})
	}
	return d, nil
}

// Ledger loads every transaction, newest first, with the AGI over them.
func (s *ReportService) Ledger(ctx context.Context) (Ledger, error) {
	var (
		txs      []core.Transaction
		projects []core.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.store.ListProjects(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Ledger{}, fmt.Errorf("load ledger: %w", err)
	}
	return newLedger(txs, projects), nil
}

func newLedger(txs []core.Transaction, projects []core.Project) Ledger {
	names := make(map[int64]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return Ledger{
		Transactions: txs,
		AGI:          finance.AGI(txs),
		Totals:       finance.Totals(txs),
		ProjectNames: names,
	}
}

func activeOnly(projects []core.Project) []core.Project {
	var out []core.Project
	for _, p := range projects {
		if p.Status == core.StatusActive {
			out = append(out, p)
		}
	}
	return out
}

// Forecast runs the thirteen-week forecast over the active projects and all
// recurring items.
func (s *ReportService) Forecast(ctx context.Context) ([]finance.WeekBucket, error) {
	var (
		projects  []core.Project
		recurring []core.RecurringTransaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		projects, err = s.store.ListProjectsByStatus(gctx, core.StatusActive)
		return err
	})
	g.Go(func() (err error) {
		recurring, err = s.store.ListRecurring(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load forecast: %w", err)
	}
	return finance.Forecast(s.now(), projects, recurring), nil
}

// Projects lists every project with its stats.
func (s *ReportService) Projects(ctx context.Context) ([]ProjectSummary, error) {
	var (
		projects []core.Project
		hours    map[int64]decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		projects, err = s.store.ListProjects(gctx)
		return err
	})
	g.Go(func() (err error) {
		hours, err = s.store.SumHoursByProject(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	return summarize(projects, hours), nil
}

func summarize(projects []core.Project, hours map[int64]decimal.Decimal) []ProjectSummary {
	stats := finance.StatsByProject(projects, hours)
	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectSummary{Project: p, Stats: stats[p.ID]})
	}
	return out
}

type ProjectDetail struct {
	ProjectSummary
	Entries []core.TimeEntry
}

func (s *ReportService) ProjectDetail(ctx context.Context, id int64) (ProjectDetail, error) {
	var (
		p       core.Project
		entries []core.TimeEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p, err = s.store.GetProject(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		entries, err = s.store.ListTimeEntries(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return ProjectDetail{}, fmt.Errorf("load project %d: %w", id, err)
	}
	return ProjectDetail{
		ProjectSummary: ProjectSummary{Project: p, Stats: finance.ComputeProjectStats(p, entries)},
		Entries:        entries,
	}, nil
}

// SoftwareROI evaluates the software subscriptions against the retainers they
// are linked to.
func (s *ReportService) SoftwareROI(ctx context.Context) ([]finance.SoftwareROI, error) {
	var (
		software []core.RecurringTransaction
		projects []core.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		software, err = s.store.ListRecurringByCategory(gctx, finance.SoftwareCategory)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.store.ListProjects(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load roi: %w", err)
	}
	byID := make(map[int64]core.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}
	return finance.SoftwareEfficiency(software, byID), nil
}

// AssetSummary is the asset register with its tax totals.
type AssetSummary struct {
	Assets        []core.Asset
	Total         core.Money
	TaxableTotal  core.Money
	AssessedTotal core.Money
}

func (s *ReportService) Assets(ctx context.Context) (AssetSummary, error) {
	assets, err := s.store.ListAssets(ctx)
	if err != nil {
		return AssetSummary{}, err
	}
	sum := AssetSummary{Assets: assets}
	for _, a := range assets {
		sum.Total = sum.Total.Add(a.Value)
		if a.IsTaxable() {
			sum.TaxableTotal = sum.TaxableTotal.Add(a.Value)
			sum.AssessedTotal = sum.AssessedTotal.Add(a.AssessedValue())
		}
	}
	return sum, nil
}

// Recurring lists the recurring items together with every project so forms can
// offer links.
func (s *ReportService) Recurring(ctx context.Context) ([]core.RecurringTransaction, []core.Project, error) {
	var (
		recurring []core.RecurringTransaction
		projects  []core.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		recurring, err = s.store.ListRecurring(gctx)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.store.ListProjects(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load recurring: %w", err)
	}
	return recurring, projects, nil
}
