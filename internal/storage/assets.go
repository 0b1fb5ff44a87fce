package storage

import (
	"context"
	"fmt"

	"budget/internal/core"
)

const assetColumns = "id, name, value_cents, purchase_date"

func scanAsset(sc scanner) (core.Asset, error) {
	var (
		a    core.Asset
		date string
	)
	if err := sc.Scan(&a.ID, &a.Name, &a.Value.Cents, &date); err != nil {
		return core.Asset{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Asset{}, fmt.Errorf("asset %d purchase date %q: %w", a.ID, date, err)
	}
	a.PurchaseDate = d
	return a, nil
}

func (s *Store) CreateAsset(ctx context.Context, a core.Asset) (int64, error) {
	id, err := s.insertReturningID(ctx, s.db,
		"INSERT INTO assets (name, value_cents, purchase_date) VALUES (?, ?, ?)",
		a.Name, a.Value.Cents, a.PurchaseDate.String())
	if err != nil {
		return 0, fmt.Errorf("create asset: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateAsset(ctx context.Context, a core.Asset) error {
	err := s.execAffecting(ctx, s.db,
		"UPDATE assets SET name = ?, value_cents = ?, purchase_date = ? WHERE id = ?",
		a.Name, a.Value.Cents, a.PurchaseDate.String(), a.ID)
	if err != nil {
		return fmt.Errorf("update asset %d: %w", a.ID, err)
	}
	return nil
}

func (s *Store) DeleteAsset(ctx context.Context, id int64) error {
	if err := s.execAffecting(ctx, s.db, "DELETE FROM assets WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete asset %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetAsset(ctx context.Context, id int64) (core.Asset, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+assetColumns+" FROM assets WHERE id = ?"), id)
	a, err := scanAsset(row)
	if err != nil {
		return core.Asset{}, fmt.Errorf("get asset %d: %w", id, notFound(err))
	}
	return a, nil
}

// ListAssets returns assets, most recently purchased first.
func (s *Store) ListAssets(ctx context.Context) ([]core.Asset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+assetColumns+" FROM assets ORDER BY purchase_date DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []core.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
