package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/devflow-project/devflow/internal/auth"
	"github.com/devflow-project/devflow/internal/ids"
)

// Service implements workspace, member and project operations. It also
// serves as the membership resolver behind the auth guard.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("workspace: store is required")
	}
	return &Service{store: store}, nil
}

var _ auth.MemberResolver = (*Service)(nil)

// CreateWorkspace creates a workspace owned by userID, together with
// the owner's OWNER membership, in one transaction. The slug is derived
// from the name with a random suffix so that equal names never collide.
func (s *Service) CreateWorkspace(ctx context.Context, userID, name string) (*Workspace, error) {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: workspace name is required", ErrInvalidInput)
	}
	ws := &Workspace{
		ID:      ids.New(),
		Name:    name,
		Slug:    slugify(name) + "-" + uuid.NewString()[:4],
		OwnerID: userID,
	}
	owner := &Member{
		UserID:      userID,
		WorkspaceID: ws.ID,
		Role:        auth.RoleOwner,
	}
	if err := s.store.CreateWorkspace(ctx, ws, owner); err != nil {
		return nil, err
	}
	return ws, nil
}

// ListWorkspaces returns the workspaces the user is a member of.
func (s *Service) ListWorkspaces(ctx context.Context, userID string) ([]*Workspace, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.ListWorkspacesForUser(ctx, userID)
}

// GetWorkspace fetches one workspace by id.
func (s *Service) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: workspace id is required", ErrInvalidInput)
	}
	return s.store.GetWorkspace(ctx, id)
}

// UpdateWorkspace renames a workspace. Owner only, and the new name
// must not collide with another workspace the same owner already has.
// Slugs are unique globally, names only per owner.
func (s *Service) UpdateWorkspace(ctx context.Context, id, userID, name string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: workspace name is required", ErrInvalidInput)
	}
	ws, err := s.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID != userID {
		return nil, fmt.Errorf("%w: you do not own this workspace", ErrForbidden)
	}
	owned, err := s.store.ListWorkspacesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, other := range owned {
		if other.ID != id && other.OwnerID == userID && other.Name == name {
			return nil, fmt.Errorf("%w: workspace with this name already exists", ErrConflict)
		}
	}
	return s.store.UpdateWorkspaceName(ctx, id, name)
}

// DeleteWorkspace removes a workspace and everything in it. Owner only.
func (s *Service) DeleteWorkspace(ctx context.Context, id, userID string) error {
	ws, err := s.GetWorkspace(ctx, id)
	if err != nil {
		return err
	}
	if ws.OwnerID != userID {
		return fmt.Errorf("%w: you do not own this workspace", ErrForbidden)
	}
	return s.store.DeleteWorkspace(ctx, id)
}

// WorkspaceStats summarizes a workspace for its dashboard.
func (s *Service) WorkspaceStats(ctx context.Context, workspaceID string) (Stats, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return Stats{}, fmt.Errorf("%w: workspace id is required", ErrInvalidInput)
	}
	return s.store.WorkspaceStats(ctx, workspaceID)
}

// FindMember returns the membership record for (userID, workspaceID),
// or ErrNotFound when none exists.
func (s *Service) FindMember(ctx context.Context, userID, workspaceID string) (*Member, error) {
	userID = strings.TrimSpace(userID)
	workspaceID = strings.TrimSpace(workspaceID)
	if userID == "" || workspaceID == "" {
		return nil, fmt.Errorf("%w: user and workspace ids are required", ErrInvalidInput)
	}
	return s.store.FindMember(ctx, userID, workspaceID)
}

// Resolve adapts FindMember to the auth guard's resolver contract,
// translating the package sentinels.
func (s *Service) Resolve(ctx context.Context, userID, workspaceID string) (*auth.Membership, error) {
	member, err := s.FindMember(ctx, userID, workspaceID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			return nil, fmt.Errorf("%w: user and workspace ids are required", auth.ErrInvalidInput)
		case errors.Is(err, ErrNotFound):
			return nil, auth.ErrNotFound
		default:
			return nil, err
		}
	}
	return &auth.Membership{
		UserID:      member.UserID,
		WorkspaceID: member.WorkspaceID,
		Role:        member.Role,
	}, nil
}

// ListMembers returns all members of a workspace.
func (s *Service) ListMembers(ctx context.Context, workspaceID string) ([]*Member, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace id is required", ErrInvalidInput)
	}
	return s.store.ListMembers(ctx, workspaceID)
}

// CreateProjectInput carries the user-supplied project fields.
type CreateProjectInput struct {
	Name        string
	Description string
	Key         string
}

// UpdateProjectInput applies partial project changes.
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// CreateProject adds a project to the workspace. The caller must be a
// member; the role requirement on top of that is enforced by the guard
// at the transport layer.
func (s *Service) CreateProject(ctx context.Context, userID, workspaceID string, in CreateProjectInput) (*Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Key = strings.ToUpper(strings.TrimSpace(in.Key))
	if in.Name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	if in.Key == "" {
		return nil, fmt.Errorf("%w: project key is required", ErrInvalidInput)
	}
	member, err := s.FindMember(ctx, userID, workspaceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: not a member of this workspace", ErrForbidden)
		}
		return nil, err
	}
	p := &Project{
		ID:          ids.New(),
		WorkspaceID: workspaceID,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Key:         in.Key,
		CreatorID:   member.UserID,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: project with this name already exists in this workspace", ErrConflict)
		}
		return nil, err
	}
	return p, nil
}

// ListProjects returns all projects in the workspace.
func (s *Service) ListProjects(ctx context.Context, workspaceID string) ([]*Project, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace id is required", ErrInvalidInput)
	}
	return s.store.ListProjects(ctx, workspaceID)
}

// GetProject fetches one project, checking it belongs to the workspace
// named in the request path.
func (s *Service) GetProject(ctx context.Context, workspaceID, projectID string) (*Project, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return p, nil
}

// UpdateProject applies a partial update.
func (s *Service) UpdateProject(ctx context.Context, workspaceID, projectID string, in UpdateProjectInput) (*Project, error) {
	p, err := s.GetProject(ctx, workspaceID, projectID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProject removes a project from the workspace.
func (s *Service) DeleteProject(ctx context.Context, workspaceID, projectID string) error {
	if _, err := s.GetProject(ctx, workspaceID, projectID); err != nil {
		return err
	}
	return s.store.DeleteProject(ctx, projectID)
}

// slugify lowers the name and collapses every run of non-alphanumeric
// characters into a single dash.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
