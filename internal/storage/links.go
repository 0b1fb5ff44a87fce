package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// linkTable describes a many-to-many table between an owner and projects.
type linkTable struct {
	table    string
	ownerCol string
}

var (
	transactionLinks = linkTable{table: "transaction_projects", ownerCol: "transaction_id"}
	recurringLinks   = linkTable{table: "recurring_transaction_projects", ownerCol: "recurring_transaction_id"}
)

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// replaceLinks rewrites the owner's project links. Unknown project ids fail
// with core.ErrNotFound, which aborts the surrounding transaction.
func (s *Store) replaceLinks(ctx context.Context, tx *sql.Tx, lt linkTable, ownerID int64, projectIDs []int64) error {
	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM "+lt.table+" WHERE "+lt.ownerCol+" = ?"), ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", lt.table, err)
	}
	for _, pid := range uniqueIDs(projectIDs) {
		if err := s.projectExists(ctx, tx, pid); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO "+lt.table+" ("+lt.ownerCol+", project_id) VALUES (?, ?)"), ownerID, pid); err != nil {
			return fmt.Errorf("link project %d: %w", pid, err)
		}
	}
	return nil
}

// loadLinks returns project ids per owner. ownerID 0 loads every owner.
func (s *Store) loadLinks(ctx context.Context, q queryer, lt linkTable, ownerID int64) (map[int64][]int64, error) {
	query := "SELECT " + lt.ownerCol + ", project_id FROM " + lt.table
	var args []any
	if ownerID != 0 {
		query += " WHERE " + lt.ownerCol + " = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY project_id"

	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", lt.table, err)
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var owner, pid int64
		if err := rows.Scan(&owner, &pid); err != nil {
			return nil, fmt.Errorf("scan %s: %w", lt.table, err)
		}
		out[owner] = append(out[owner], pid)
	}
	return out, rows.Err()
}
