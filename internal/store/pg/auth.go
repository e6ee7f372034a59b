package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/devflow-project/devflow/internal/auth"
)

// Create inserts a user record. Duplicate emails map to auth.ErrConflict.
func (s *Store) Create(ctx context.Context, u *auth.User) error {
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, email, name, password_hash)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, u.ID, u.Email, u.Name, u.PasswordHash)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail looks a user up by their unique email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, email, name, password_hash, created_at, updated_at
		from users
		where email = $1
	`, email))
}

// FindByID looks a user up by primary key.
func (s *Store) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, email, name, password_hash, created_at, updated_at
		from users
		where id = $1
	`, id))
}

func (s *Store) scanUser(row *sql.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// Insert persists a refresh token. Re-inserting the same token string
// is a no-op, which makes the operation idempotent by token.
func (s *Store) Insert(ctx context.Context, t *auth.RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		insert into refresh_tokens (token, user_id, expires_at)
		values ($1, $2, $3)
		on conflict (token) do nothing
	`, t.Token, t.UserID, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Find returns the refresh token record, or auth.ErrNotFound.
func (s *Store) Find(ctx context.Context, token string) (*auth.RefreshToken, error) {
	var t auth.RefreshToken
	err := s.db.QueryRowContext(ctx, `
		select token, user_id, expires_at, created_at
		from refresh_tokens
		where token = $1
	`, token).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &t, nil
}

// Delete revokes a refresh token. No-op when the token is absent.
func (s *Store) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `
		delete from refresh_tokens
		where token = $1
	`, token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// PurgeExpiredTokens removes refresh tokens past their expiry. Intended
// for a periodic maintenance call; correctness never depends on it
// because the codec rejects expired tokens regardless.
func (s *Store) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		delete from refresh_tokens
		where expires_at < now()
	`)
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
