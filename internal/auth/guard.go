package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role is a member's role within one workspace.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// ParseRole normalizes a raw role string.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

// RoleSet is a set of acceptable roles for one operation. Any single
// matching role admits the caller; there is no implied hierarchy, so a
// set of {OWNER, ADMIN} does not admit a MEMBER.
type RoleSet map[Role]struct{}

// Roles builds a RoleSet from its arguments.
func Roles(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports whether the role is in the set.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

// Membership is a (user, workspace, role) triple granting tenant-scoped
// permissions. Read-only from this package's perspective.
type Membership struct {
	UserID      string
	WorkspaceID string
	Role        Role
}

// Guard decides whether an already-authenticated caller may perform a
// tenant-scoped operation, by resolving the caller's effective role
// within the target workspace.
type Guard struct {
	members MemberResolver
}

// NewGuard constructs a Guard over the given resolver.
func NewGuard(members MemberResolver) (*Guard, error) {
	if members == nil {
		return nil, errors.New("auth: member resolver is required")
	}
	return &Guard{members: members}, nil
}

// Allow reports whether the user may perform an operation requiring one
// of the given roles within the workspace. An empty requirement admits
// any authenticated caller. A missing workspace id is ErrForbidden: the
// request is malformed for a tenant-scoped route. A missing membership
// record is a plain denial (false, nil), not an error, so handlers can
// distinguish the two. Resolver failures propagate unmodified.
func (g *Guard) Allow(ctx context.Context, userID, workspaceID string, required RoleSet) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}
	if strings.TrimSpace(workspaceID) == "" {
		return false, fmt.Errorf("%w: workspace id not provided", ErrForbidden)
	}
	member, err := g.members.Resolve(ctx, userID, workspaceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if member == nil {
		return false, nil
	}
	return required.Contains(member.Role), nil
}
