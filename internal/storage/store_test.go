package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		dialect Dialect
		path    string
		wantErr bool
	}{
		{in: "./data/budget.db", dialect: SQLite, path: "./data/budget.db"},
		{in: "sqlite:///budget.db", dialect: SQLite, path: "budget.db"},
		{in: "sqlite:////var/lib/budget.db", dialect: SQLite, path: "/var/lib/budget.db"},
		{in: "postgres://u:p@localhost/budget?sslmode=disable", dialect: Postgres},
		{in: "postgresql://localhost/budget", dialect: Postgres},
		{in: "", wantErr: true},
		{in: "sqlite:///", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Dialect != tt.dialect || got.Path != tt.path {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	if got := pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("postgres rebind: %q", got)
	}
	lite := &Store{dialect: SQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind: %q", got)
	}
}

func TestProjectsAndHours(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acme := core.Project{Name: "Acme", MonthlyRetainer: core.Money{Cents: 300000}, CostRate: core.Money{Cents: 5000}, Status: core.StatusActive, PlannedHours: decimal.RequireFromString("40")}
	id, err := s.CreateProject(ctx, acme)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	done := core.Project{Name: "Old", Status: core.StatusCompleted}
	if _, err := s.CreateProject(ctx, done); err != nil {
		t.Fatalf("create project: %v", err)
	}

	got, err := s.GetProject(ctx, id)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Name != "Acme" || got.MonthlyRetainer.Cents != 300000 || !got.PlannedHours.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected project %+v", got)
	}

	active, err := s.ListProjectsByStatus(ctx, core.StatusActive)
	if err != nil || len(active) != 1 || active[0].ID != id {
		t.Fatalf("active projects = %+v, err %v", active, err)
	}

	for _, h := range []string{"12.25", "7.75"} {
		te := core.TimeEntry{ProjectID: id, Date: core.NewDate(2025, 1, 2), Hours: decimal.RequireFromString(h), Description: "work"}
		if _, err := s.CreateTimeEntry(ctx, te); err != nil {
			t.Fatalf("create time entry: %v", err)
		}
	}
	sums, err := s.SumHoursByProject(ctx)
	if err != nil {
		t.Fatalf("sum hours: %v", err)
	}
	if !sums[id].Equal(decimal.NewFromInt(20)) {
		t.Fatalf("hours = %s, want 20", sums[id])
	}

	if _, err := s.CreateTimeEntry(ctx, core.TimeEntry{ProjectID: 999, Date: core.NewDate(2025, 1, 2), Hours: decimal.NewFromInt(1)}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown project, got %v", err)
	}

	acme.ID = id
	acme.Status = core.StatusCancelled
	if err := s.UpdateProject(ctx, acme); err != nil {
		t.Fatalf("update project: %v", err)
	}
	if err := s.DeleteProject(ctx, id); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	entries, err := s.ListTimeEntries(ctx, id)
	if err != nil || len(entries) != 0 {
		t.Fatalf("time entries should cascade, got %d (err %v)", len(entries), err)
	}
	if _, err := s.GetProject(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	pid, err := s.CreateProject(ctx, core.Project{Name: "Acme", Status: core.StatusActive})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	older := core.Transaction{Date: core.NewDate(2025, 1, 1), Description: "Retainer", Amount: core.Money{Cents: 300000}, Category: "Retainer", ProjectIDs: []int64{pid, pid}}
	newer := core.Transaction{Date: core.NewDate(2025, 2, 1), Description: "Ads", Amount: core.Money{Cents: -20000}, Category: "Advertising", PassThrough: true}
	oldID, err := s.CreateTransaction(ctx, older)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateTransaction(ctx, newer); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Description != "Ads" || !list[0].PassThrough {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if len(list[1].ProjectIDs) != 1 || list[1].ProjectIDs[0] != pid {
		t.Fatalf("expected deduplicated project link, got %v", list[1].ProjectIDs)
	}

	between, err := s.ListTransactionsBetween(ctx, core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	if err != nil || len(between) != 1 || between[0].ID != oldID {
		t.Fatalf("between = %+v, err %v", between, err)
	}

	if err := s.DeleteTransaction(ctx, oldID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, oldID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestCreateTransactionRollsBackOnUnknownProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bad := core.Transaction{Date: core.NewDate(2025, 1, 1), Description: "x", Amount: core.Money{Cents: 100}, ProjectIDs: []int64{42}}
	if _, err := s.CreateTransaction(ctx, bad); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("transaction row should have been rolled back, found %d", len(list))
	}
}

func TestCreateTransactionsBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	batch := []core.Transaction{
		{Date: core.NewDate(2025, 1, 1), Description: "a", Amount: core.Money{Cents: 100}},
		{Date: core.NewDate(2025, 1, 2), Description: "b", Amount: core.Money{Cents: -100}, ProjectIDs: []int64{7}},
	}
	if _, err := s.CreateTransactions(ctx, batch); err == nil {
		t.Fatalf("expected error")
	}
	list, _ := s.ListTransactions(ctx)
	if len(list) != 0 {
		t.Fatalf("batch should be all-or-nothing, found %d rows", len(list))
	}

	ids, err := s.CreateTransactions(ctx, batch[:1])
	if err != nil || len(ids) != 1 {
		t.Fatalf("ids = %v, err %v", ids, err)
	}
}

func TestRecurringRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	pid, _ := s.CreateProject(ctx, core.Project{Name: "Acme", Status: core.StatusActive})
	rt := core.RecurringTransaction{Description: "Figma", Amount: core.Money{Cents: -1500}, Category: "Software", Frequency: core.Monthly, NextDate: core.NewDate(2025, 2, 15), ProjectIDs: []int64{pid}}
	id, err := s.CreateRecurring(ctx, rt)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateRecurring(ctx, core.RecurringTransaction{Description: "Rent", Amount: core.Money{Cents: -90000}, Category: "Office", Frequency: core.Monthly, NextDate: core.NewDate(2025, 2, 1)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	software, err := s.ListRecurringByCategory(ctx, "software")
	if err != nil || len(software) != 1 || software[0].ID != id || len(software[0].ProjectIDs) != 1 {
		t.Fatalf("software = %+v, err %v", software, err)
	}

	rt.ID = id
	rt.Frequency = core.Annual
	rt.ProjectIDs = nil
	if err := s.UpdateRecurring(ctx, rt); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetRecurring(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Frequency != core.Annual || len(got.ProjectIDs) != 0 || got.NextDate != core.NewDate(2025, 2, 15) {
		t.Fatalf("unexpected recurring %+v", got)
	}
	if err := s.UpdateRecurring(ctx, core.RecurringTransaction{ID: 999, Description: "x", Frequency: core.Weekly, NextDate: core.NewDate(2025, 1, 1)}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateAsset(ctx, core.Asset{Name: "Laptop", Value: core.Money{Cents: 249900}, PurchaseDate: core.NewDate(2024, 11, 3)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assets, err := s.ListAssets(ctx)
	if err != nil || len(assets) != 1 || !assets[0].IsTaxable() {
		t.Fatalf("assets = %+v, err %v", assets, err)
	}
	if err := s.DeleteAsset(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetAsset(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	live := core.Session{ID: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := core.Session{ID: "stale", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	for _, sess := range []core.Session{live, stale} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}
	got, err := s.GetSession(ctx, "live")
	if err != nil || !got.ExpiresAt.Equal(live.ExpiresAt) {
		t.Fatalf("got %+v, err %v", got, err)
	}
	n, err := s.DeleteExpiredSessions(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("purged %d, err %v", n, err)
	}
	if err := s.DeleteSession(ctx, "live"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSession(ctx, "live"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
