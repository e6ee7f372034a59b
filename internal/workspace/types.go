package workspace

import (
	"time"

	"github.com/devflow-project/devflow/internal/auth"
)

// Workspace is a tenant. The owner keeps a distinguished position on
// top of their OWNER membership: only the owner may rename or delete
// the workspace.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Member associates a user with a workspace under a role. Unique per
// (user, workspace).
type Member struct {
	UserID      string    `json:"userId"`
	WorkspaceID string    `json:"workspaceId"`
	Role        auth.Role `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Project belongs to exactly one workspace. Name is unique within the
// workspace.
type Project struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Key         string    `json:"key"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Stats is the per-workspace dashboard summary.
type Stats struct {
	ProjectsCount int `json:"projectsCount"`
	MembersCount  int `json:"membersCount"`
}
