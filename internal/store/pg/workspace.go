package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/devflow-project/devflow/internal/auth"
	"github.com/devflow-project/devflow/internal/workspace"
)

// CreateWorkspace inserts the workspace and the owner membership in one
// transaction. This is the only multi-record write in the system.
func (s *Store) CreateWorkspace(ctx context.Context, ws *workspace.Workspace, owner *workspace.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		insert into workspaces (id, name, slug, owner_id)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, ws.ID, ws.Name, ws.Slug, ws.OwnerID)
	if err := row.Scan(&ws.CreatedAt, &ws.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return workspace.ErrConflict
		}
		return fmt.Errorf("insert workspace: %w", err)
	}

	row = tx.QueryRowContext(ctx, `
		insert into members (user_id, workspace_id, role)
		values ($1, $2, $3)
		returning created_at
	`, owner.UserID, owner.WorkspaceID, string(owner.Role))
	if err := row.Scan(&owner.CreatedAt); err != nil {
		return fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit workspace: %w", err)
	}
	return nil
}

// GetWorkspace fetches one workspace by primary key.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*workspace.Workspace, error) {
	var ws workspace.Workspace
	err := s.db.QueryRowContext(ctx, `
		select id, name, slug, owner_id, created_at, updated_at
		from workspaces
		where id = $1
	`, id).Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workspace.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return &ws, nil
}

// ListWorkspacesForUser returns workspaces the user holds a membership in.
func (s *Store) ListWorkspacesForUser(ctx context.Context, userID string) ([]*workspace.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		select w.id, w.name, w.slug, w.owner_id, w.created_at, w.updated_at
		from workspaces w
		join members m on m.workspace_id = w.id
		where m.user_id = $1
		order by w.created_at asc
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var result []*workspace.Workspace
	for rows.Next() {
		var ws workspace.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		result = append(result, &ws)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateWorkspaceName renames a workspace and returns the updated row.
func (s *Store) UpdateWorkspaceName(ctx context.Context, id, name string) (*workspace.Workspace, error) {
	var ws workspace.Workspace
	err := s.db.QueryRowContext(ctx, `
		update workspaces
		set name = $2, updated_at = now()
		where id = $1
		returning id, name, slug, owner_id, created_at, updated_at
	`, id, name).Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workspace.ErrNotFound
	}
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return nil, workspace.ErrConflict
		}
		return nil, fmt.Errorf("update workspace: %w", err)
	}
	return &ws, nil
}

// DeleteWorkspace removes a workspace; members and projects cascade.
func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `
		delete from workspaces
		where id = $1
	`, id); err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return nil
}

// WorkspaceStats counts projects and members in one round trip.
func (s *Store) WorkspaceStats(ctx context.Context, workspaceID string) (workspace.Stats, error) {
	var stats workspace.Stats
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from projects where workspace_id = $1),
			(select count(*) from members where workspace_id = $1)
	`, workspaceID).Scan(&stats.ProjectsCount, &stats.MembersCount)
	if err != nil {
		return workspace.Stats{}, fmt.Errorf("workspace stats: %w", err)
	}
	return stats, nil
}

// FindMember returns the membership for (userID, workspaceID).
func (s *Store) FindMember(ctx context.Context, userID, workspaceID string) (*workspace.Member, error) {
	var (
		m    workspace.Member
		role string
	)
	err := s.db.QueryRowContext(ctx, `
		select user_id, workspace_id, role, created_at
		from members
		where user_id = $1 and workspace_id = $2
	`, userID, workspaceID).Scan(&m.UserID, &m.WorkspaceID, &role, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workspace.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	m.Role = auth.Role(role)
	return &m, nil
}

// ListMembers returns every membership in the workspace.
func (s *Store) ListMembers(ctx context.Context, workspaceID string) ([]*workspace.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		select user_id, workspace_id, role, created_at
		from members
		where workspace_id = $1
		order by created_at asc
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var result []*workspace.Member
	for rows.Next() {
		var (
			m    workspace.Member
			role string
		)
		if err := rows.Scan(&m.UserID, &m.WorkspaceID, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Role = auth.Role(role)
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateProject inserts a project. A duplicate name within the
// workspace maps to workspace.ErrConflict; a missing workspace maps to
// ErrInvalidInput via the foreign key.
func (s *Store) CreateProject(ctx context.Context, p *workspace.Project) error {
	row := s.db.QueryRowContext(ctx, `
		insert into projects (id, workspace_id, name, description, key, creator_id)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, p.ID, p.WorkspaceID, p.Name, p.Description, p.Key, p.CreatorID)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return workspace.ErrConflict
			case pgErrForeignKeyViolation:
				return workspace.ErrInvalidInput
			}
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject fetches one project by primary key.
func (s *Store) GetProject(ctx context.Context, id string) (*workspace.Project, error) {
	var p workspace.Project
	err := s.db.QueryRowContext(ctx, `
		select id, workspace_id, name, description, key, creator_id, created_at, updated_at
		from projects
		where id = $1
	`, id).Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Key, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workspace.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns all projects in the workspace.
func (s *Store) ListProjects(ctx context.Context, workspaceID string) ([]*workspace.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, workspace_id, name, description, key, creator_id, created_at, updated_at
		from projects
		where workspace_id = $1
		order by created_at asc
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var result []*workspace.Project
	for rows.Next() {
		var p workspace.Project
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Key, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateProject writes name and description back.
func (s *Store) UpdateProject(ctx context.Context, p *workspace.Project) error {
	res, err := s.db.ExecContext(ctx, `
		update projects
		set name = $2, description = $3, updated_at = now()
		where id = $1
	`, p.ID, p.Name, p.Description)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return workspace.ErrConflict
		}
		return fmt.Errorf("update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// DeleteProject removes a project. No-op when absent.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `
		delete from projects
		where id = $1
	`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}
