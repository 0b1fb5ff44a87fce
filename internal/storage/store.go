// Package storage persists the ledger in a relational database.
//
// SQLite (modernc.org/sqlite) is the default backend; a postgres:// DSN
// switches to PostgreSQL through lib/pq. Queries are written with '?'
// placeholders and rebound per dialect. Every write runs in its own
// transaction and is rolled back on any error.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"budget/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// Target is a parsed DATABASE_URL.
type Target struct {
	Dialect Dialect
	DSN     string // driver-ready connection string
	Path    string // sqlite file path, empty for postgres
}

// ParseTarget accepts a postgres:// or postgresql:// URL, a sqlite:// URL in
// the SQLAlchemy style (sqlite:///relative.db, sqlite:////abs.db), or a bare
// file path.
func ParseTarget(databaseURL string) (Target, error) {
	u := strings.TrimSpace(databaseURL)
	if u == "" {
		return Target{}, errors.New("empty database url")
	}
	if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") {
		return Target{Dialect: Postgres, DSN: u}, nil
	}
	path := u
	if strings.HasPrefix(u, "sqlite://") {
		path = strings.TrimPrefix(u, "sqlite:///")
		if path == u {
			path = strings.TrimPrefix(u, "sqlite://")
		}
	}
	if path == "" {
		return Target{}, fmt.Errorf("database url %q has no path", databaseURL)
	}
	return Target{Dialect: SQLite, DSN: path + "?" + sqlitePragmas, Path: path}, nil
}

func (t Target) driverName() string {
	if t.Dialect == Postgres {
		return "postgres"
	}
	return "sqlite"
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects, migrates the schema and returns a ready store.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	target, err := ParseTarget(databaseURL)
	if err != nil {
		return nil, err
	}
	if target.Path != "" {
		if err := os.MkdirAll(filepath.Dir(target.Path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(target.driverName(), target.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", target.Dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(target); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, dialect: target.Dialect}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Dialect() Dialect { return s.dialect }

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// rebind rewrites '?' placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) insertReturningID(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// execAffecting runs a statement that must touch at least one row.
func (s *Store) execAffecting(ctx context.Context, q queryer, query string, args ...any) error {
	res, err := q.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}
