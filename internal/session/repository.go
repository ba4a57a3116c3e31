package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Owner of the session used by the command line client.
const CLIOwner = "cli"

// Repository stores one session per owner (the CLI, or a Telegram user id).
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save stores s as the session of owner, replacing any previous one.
func (r *Repository) Save(ctx context.Context, owner string, s *Session) error {
	var expiresAt int64
	if !s.ExpiresAt.IsZero() {
		expiresAt = s.ExpiresAt.Unix()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (owner, token, user_id, username, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			username = excluded.username,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		owner, s.Token, s.UserID, s.Username, expiresAt, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save session for %s: %w", owner, err)
	}
	return nil
}

// Get returns the session of owner, or nil when there is none.
func (r *Repository) Get(ctx context.Context, owner string) (*Session, error) {
	var (
		s         Session
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, username, expires_at FROM sessions WHERE owner = ?`, owner,
	).Scan(&s.Token, &s.UserID, &s.Username, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session for %s: %w", owner, err)
	}
	if expiresAt > 0 {
		s.ExpiresAt = time.Unix(expiresAt, 0)
	}
	return &s, nil
}

// Delete removes the session of owner.
func (r *Repository) Delete(ctx context.Context, owner string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("failed to delete session for %s: %w", owner, err)
	}
	return nil
}

// CleanupExpired removes sessions whose token expired before now.
func (r *Repository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return res.RowsAffected()
}
