package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

const transactionColumns = "id, date, description, amount_cents, category, is_pass_through"

func scanTransaction(sc scanner) (core.Transaction, error) {
	var (
		t           core.Transaction
		date        string
		passThrough int64
	)
	if err := sc.Scan(&t.ID, &date, &t.Description, &t.Amount.Cents, &t.Category, &passThrough); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d date %q: %w", t.ID, date, err)
	}
	t.Date = d
	t.PassThrough = passThrough != 0
	return t, nil
}

func (s *Store) insertTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction) (int64, error) {
	id, err := s.insertReturningID(ctx, tx,
		"INSERT INTO transactions (date, description, amount_cents, category, is_pass_through) VALUES (?, ?, ?, ?, ?)",
		t.Date.String(), t.Description, t.Amount.Cents, t.Category, boolToInt(t.PassThrough))
	if err != nil {
		return 0, err
	}
	if err := s.replaceLinks(ctx, tx, transactionLinks, id, t.ProjectIDs); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateTransaction stores the transaction and its project links atomically.
func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.insertTransaction(ctx, tx, t)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"category", t.Category,
		"pass_through", t.PassThrough)
	return id, nil
}

// CreateTransactions stores a batch in one transaction; either all rows are
// written or none are.
func (s *Store) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]int64, error) {
	ids := make([]int64, 0, len(txs))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i, t := range txs {
			id, err := s.insertTransaction(ctx, tx, t)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}
	slog.InfoContext(ctx, "Transactions imported", "count", len(ids))
	return ids, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.execAffecting(ctx, s.db, "DELETE FROM transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+transactionColumns+" FROM transactions WHERE id = ?"), id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, notFound(err))
	}
	links, err := s.loadLinks(ctx, s.db, transactionLinks, id)
	if err != nil {
		return core.Transaction{}, err
	}
	t.ProjectIDs = links[id]
	return t, nil
}

// ListTransactions returns every transaction, newest first.
func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.queryTransactions(ctx, "SELECT "+transactionColumns+" FROM transactions ORDER BY date DESC, id DESC")
}

// ListTransactionsBetween returns transactions dated within [from, to],
// newest first.
func (s *Store) ListTransactionsBetween(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	return s.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE date >= ? AND date <= ? ORDER BY date DESC, id DESC",
		from.String(), to.String())
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := s.loadLinks(ctx, s.db, transactionLinks, 0)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ProjectIDs = links[out[i].ID]
	}
	return out, nil
}
