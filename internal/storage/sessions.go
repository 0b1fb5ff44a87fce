package storage

import (
	"context"
	"fmt"
	"time"

	"budget/internal/core"
)

func (s *Store) CreateSession(ctx context.Context, sess core.Session) error {
	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO sessions (id, created_at, expires_at) VALUES (?, ?, ?)"),
		sess.ID, sess.CreatedAt.Unix(), sess.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (core.Session, error) {
	var (
		sess               core.Session
		created, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, created_at, expires_at FROM sessions WHERE id = ?"), id).
		Scan(&sess.ID, &created, &expiresAt)
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", notFound(err))
	}
	sess.CreatedAt = time.Unix(created, 0).UTC()
	sess.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions purges sessions that expired before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE expires_at <= ?"), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
