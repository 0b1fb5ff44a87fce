package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

const projectColumns = "id, name, monthly_retainer_cents, cost_rate_cents, status, planned_hours_hundredths"

func hoursToHundredths(h decimal.Decimal) int64 {
	return h.Round(2).Shift(2).IntPart()
}

func hundredthsToHours(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

func scanProject(sc scanner) (core.Project, error) {
	var (
		p       core.Project
		status  string
		planned int64
	)
	if err := sc.Scan(&p.ID, &p.Name, &p.MonthlyRetainer.Cents, &p.CostRate.Cents, &status, &planned); err != nil {
		return core.Project{}, err
	}
	p.Status = core.ProjectStatus(status)
	p.PlannedHours = hundredthsToHours(planned)
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, p core.Project) (int64, error) {
	id, err := s.insertReturningID(ctx, s.db,
		"INSERT INTO projects (name, monthly_retainer_cents, cost_rate_cents, status, planned_hours_hundredths) VALUES (?, ?, ?, ?, ?)",
		p.Name, p.MonthlyRetainer.Cents, p.CostRate.Cents, string(p.Status), hoursToHundredths(p.PlannedHours))
	if err != nil {
		return 0, fmt.Errorf("create project: %w", err)
	}
	slog.InfoContext(ctx, "Project saved", "id", id, "name", p.Name, "status", p.Status)
	return id, nil
}

func (s *Store) UpdateProject(ctx context.Context, p core.Project) error {
	err := s.execAffecting(ctx, s.db,
		"UPDATE projects SET name = ?, monthly_retainer_cents = ?, cost_rate_cents = ?, status = ?, planned_hours_hundredths = ? WHERE id = ?",
		p.Name, p.MonthlyRetainer.Cents, p.CostRate.Cents, string(p.Status), hoursToHundredths(p.PlannedHours), p.ID)
	if err != nil {
		return fmt.Errorf("update project %d: %w", p.ID, err)
	}
	return nil
}

// DeleteProject removes the project along with its time entries and links.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	if err := s.execAffecting(ctx, s.db, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id int64) (core.Project, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+projectColumns+" FROM projects WHERE id = ?"), id)
	p, err := scanProject(row)
	if err != nil {
		return core.Project{}, fmt.Errorf("get project %d: %w", id, notFound(err))
	}
	return p, nil
}

// ListProjects returns all projects ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	return s.queryProjects(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY name, id")
}

func (s *Store) ListProjectsByStatus(ctx context.Context, status core.ProjectStatus) ([]core.Project, error) {
	return s.queryProjects(ctx, "SELECT "+projectColumns+" FROM projects WHERE status = ? ORDER BY name, id", string(status))
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]core.Project, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SumHoursByProject returns tracked hours per project. Projects without
// entries are absent from the map.
func (s *Store) SumHoursByProject(ctx context.Context) (map[int64]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT project_id, COALESCE(SUM(hours_hundredths), 0) FROM time_entries GROUP BY project_id")
	if err != nil {
		return nil, fmt.Errorf("sum hours: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var id, total int64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("scan hours: %w", err)
		}
		out[id] = hundredthsToHours(total)
	}
	return out, rows.Err()
}

func (s *Store) projectExists(ctx context.Context, q queryer, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, s.rebind("SELECT 1 FROM projects WHERE id = ?"), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("project %d: %w", id, core.ErrNotFound)
	}
	return err
}
