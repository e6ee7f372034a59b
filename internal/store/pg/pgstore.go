// Package pg implements the auth and workspace store contracts over
// PostgreSQL, via database/sql with the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/devflow-project/devflow/internal/auth"
	"github.com/devflow-project/devflow/internal/workspace"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var (
	_ auth.UserStore         = (*Store)(nil)
	_ auth.RefreshTokenStore = (*Store)(nil)
	_ workspace.Store        = (*Store)(nil)
)

// Store holds the shared connection pool. One Store serves both the
// credential/session side and the workspace side; the auth core only
// ever sees the narrow interfaces it asked for.
type Store struct {
	db *sql.DB
}

// New constructs a Store over an open database handle.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("pg: database handle is required")
	}
	return &Store{db: db}, nil
}

// Ping verifies connectivity, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
