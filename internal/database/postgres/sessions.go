package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/missing-persons/internal/web/middleware"
)

// SessionRepository keeps operator sessions across restarts. Session IDs are
// bearer tokens, so only their SHA-256 is written to the table.
type SessionRepository struct {
	pool *Pool
}

func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func sessionKey(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Save upserts the session, so refreshing an expiry reuses the row.
func (r *SessionRepository) Save(ctx context.Context, id, username string, createdAt, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, username, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, expires_at = EXCLUDED.expires_at
	`, sessionKey(id), username, createdAt, expiresAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get returns nil, nil for unknown and expired sessions.
func (r *SessionRepository) Get(ctx context.Context, id string) (*middleware.StoredSession, error) {
	s := middleware.StoredSession{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT username, created_at, expires_at FROM sessions WHERE id = $1 AND expires_at > NOW()`,
		sessionKey(id),
	).Scan(&s.Username, &s.CreatedAt, &s.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionKey(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges expired rows and reports how many went.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

var _ middleware.SessionStore = (*SessionRepository)(nil)
