package workspace

import "context"

// Store describes the persistence operations the workspace service
// needs. Implementations map storage failures onto the package
// sentinels: unique violations become ErrConflict, missing rows
// ErrNotFound. CreateWorkspace inserts the workspace and its owner
// membership atomically; everything else is a single-record operation.
type Store interface {
	CreateWorkspace(ctx context.Context, ws *Workspace, owner *Member) error
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)
	ListWorkspacesForUser(ctx context.Context, userID string) ([]*Workspace, error)
	UpdateWorkspaceName(ctx context.Context, id, name string) (*Workspace, error)
	DeleteWorkspace(ctx context.Context, id string) error
	WorkspaceStats(ctx context.Context, workspaceID string) (Stats, error)

	FindMember(ctx context.Context, userID, workspaceID string) (*Member, error)
	ListMembers(ctx context.Context, workspaceID string) ([]*Member, error)

	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, workspaceID string) ([]*Project, error)
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error
}
