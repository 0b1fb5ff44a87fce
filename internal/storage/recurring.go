package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

const recurringColumns = "id, description, amount_cents, category, frequency, next_date, is_pass_through"

func scanRecurring(sc scanner) (core.RecurringTransaction, error) {
	var (
		rt          core.RecurringTransaction
		freq, next  string
		passThrough int64
	)
	if err := sc.Scan(&rt.ID, &rt.Description, &rt.Amount.Cents, &rt.Category, &freq, &next, &passThrough); err != nil {
		return core.RecurringTransaction{}, err
	}
	d, err := core.ParseDate(next)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("recurring %d next date %q: %w", rt.ID, next, err)
	}
	rt.Frequency = core.Frequency(freq)
	rt.NextDate = d
	rt.PassThrough = passThrough != 0
	return rt, nil
}

func (s *Store) CreateRecurring(ctx context.Context, rt core.RecurringTransaction) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.insertReturningID(ctx, tx,
			"INSERT INTO recurring_transactions (description, amount_cents, category, frequency, next_date, is_pass_through) VALUES (?, ?, ?, ?, ?, ?)",
			rt.Description, rt.Amount.Cents, rt.Category, string(rt.Frequency), rt.NextDate.String(), boolToInt(rt.PassThrough))
		if err != nil {
			return err
		}
		return s.replaceLinks(ctx, tx, recurringLinks, id, rt.ProjectIDs)
	})
	if err != nil {
		return 0, fmt.Errorf("create recurring transaction: %w", err)
	}
	slog.InfoContext(ctx, "Recurring transaction saved",
		"id", id,
		"description", rt.Description,
		"amount_cents", rt.Amount.Cents,
		"frequency", rt.Frequency)
	return id, nil
}

func (s *Store) UpdateRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := s.execAffecting(ctx, tx,
			"UPDATE recurring_transactions SET description = ?, amount_cents = ?, category = ?, frequency = ?, next_date = ?, is_pass_through = ? WHERE id = ?",
			rt.Description, rt.Amount.Cents, rt.Category, string(rt.Frequency), rt.NextDate.String(), boolToInt(rt.PassThrough), rt.ID)
		if err != nil {
			return err
		}
		return s.replaceLinks(ctx, tx, recurringLinks, rt.ID, rt.ProjectIDs)
	})
	if err != nil {
		return fmt.Errorf("update recurring transaction %d: %w", rt.ID, err)
	}
	return nil
}

func (s *Store) DeleteRecurring(ctx context.Context, id int64) error {
	if err := s.execAffecting(ctx, s.db, "DELETE FROM recurring_transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete recurring transaction %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetRecurring(ctx context.Context, id int64) (core.RecurringTransaction, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+recurringColumns+" FROM recurring_transactions WHERE id = ?"), id)
	rt, err := scanRecurring(row)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("get recurring transaction %d: %w", id, notFound(err))
	}
	links, err := s.loadLinks(ctx, s.db, recurringLinks, id)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.ProjectIDs = links[id]
	return rt, nil
}

// ListRecurring returns all recurring items ordered by next date.
func (s *Store) ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	return s.queryRecurring(ctx, "SELECT "+recurringColumns+" FROM recurring_transactions ORDER BY next_date, id")
}

// ListRecurringByCategory matches the category case-insensitively.
func (s *Store) ListRecurringByCategory(ctx context.Context, category string) ([]core.RecurringTransaction, error) {
	return s.queryRecurring(ctx,
		"SELECT "+recurringColumns+" FROM recurring_transactions WHERE LOWER(category) = LOWER(?) ORDER BY next_date, id",
		category)
}

func (s *Store) queryRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringTransaction, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := s.loadLinks(ctx, s.db, recurringLinks, 0)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ProjectIDs = links[out[i].ID]
	}
	return out, nil
}
