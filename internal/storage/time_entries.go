package storage

import (
	"context"
	"fmt"

	"budget/internal/core"
)

const timeEntryColumns = "id, project_id, date, hours_hundredths, description"

func scanTimeEntry(sc scanner) (core.TimeEntry, error) {
	var (
		te    core.TimeEntry
		date  string
		hours int64
	)
	if err := sc.Scan(&te.ID, &te.ProjectID, &date, &hours, &te.Description); err != nil {
		return core.TimeEntry{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("time entry %d date %q: %w", te.ID, date, err)
	}
	te.Date = d
	te.Hours = hundredthsToHours(hours)
	return te, nil
}

// CreateTimeEntry logs hours against an existing project.
func (s *Store) CreateTimeEntry(ctx context.Context, te core.TimeEntry) (int64, error) {
	if err := s.projectExists(ctx, s.db, te.ProjectID); err != nil {
		return 0, fmt.Errorf("create time entry: %w", err)
	}
	id, err := s.insertReturningID(ctx, s.db,
		"INSERT INTO time_entries (project_id, date, hours_hundredths, description) VALUES (?, ?, ?, ?)",
		te.ProjectID, te.Date.String(), hoursToHundredths(te.Hours), te.Description)
	if err != nil {
		return 0, fmt.Errorf("create time entry: %w", err)
	}
	return id, nil
}

func (s *Store) GetTimeEntry(ctx context.Context, id int64) (core.TimeEntry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+timeEntryColumns+" FROM time_entries WHERE id = ?"), id)
	te, err := scanTimeEntry(row)
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("get time entry %d: %w", id, notFound(err))
	}
	return te, nil
}

func (s *Store) DeleteTimeEntry(ctx context.Context, id int64) error {
	if err := s.execAffecting(ctx, s.db, "DELETE FROM time_entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete time entry %d: %w", id, err)
	}
	return nil
}

// ListTimeEntries returns a project's entries, newest first.
func (s *Store) ListTimeEntries(ctx context.Context, projectID int64) ([]core.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT "+timeEntryColumns+" FROM time_entries WHERE project_id = ? ORDER BY date DESC, id DESC"), projectID)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	var out []core.TimeEntry
	for rows.Next() {
		te, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		out = append(out, te)
	}
	return out, rows.Err()
}
