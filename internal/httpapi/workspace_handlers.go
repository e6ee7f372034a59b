package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/devflow-project/devflow/internal/audit"
	"github.com/devflow-project/devflow/internal/auth"
	"github.com/devflow-project/devflow/internal/obs"
	"github.com/devflow-project/devflow/internal/workspace"
)

// Role requirements per tenant-scoped operation. A missing entry means
// any authenticated caller; membership checks below that level belong
// to the services themselves.
var (
	anyMemberRoles = auth.Roles(auth.RoleOwner, auth.RoleAdmin, auth.RoleMember)
	elevatedRoles  = auth.Roles(auth.RoleOwner, auth.RoleAdmin)
)

type workspaceRequest struct {
	Name string `json:"name"`
}

func (a *API) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req workspaceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		ws, err := a.workspaces.CreateWorkspace(r.Context(), ident.UserID, req.Name)
		if err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "workspace.created", map[string]any{
			"workspace_id": ws.ID,
		})
		writeJSON(w, http.StatusCreated, ws)

	case http.MethodGet:
		list, err := a.workspaces.ListWorkspaces(r.Context(), ident.UserID)
		if err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		if list == nil {
			list = []*workspace.Workspace{}
		}
		writeJSON(w, http.StatusOK, list)

	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

// handleWorkspaceScoped dispatches everything under /v1/workspaces/.
// The workspace id always comes from the path; a body workspaceId is
// never consulted on these routes.
func (a *API) handleWorkspaceScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/workspaces/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	workspaceID := parts[0]

	switch {
	case len(parts) == 1:
		a.handleWorkspaceByID(w, r, workspaceID)
	case len(parts) == 2 && parts[1] == "stats":
		a.handleWorkspaceStats(w, r, workspaceID)
	case len(parts) == 2 && parts[1] == "members":
		a.handleWorkspaceMembers(w, r, workspaceID)
	case len(parts) == 2 && parts[1] == "projects":
		a.handleProjects(w, r, workspaceID)
	case len(parts) == 3 && parts[1] == "projects":
		a.handleProjectByID(w, r, workspaceID, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func (a *API) handleWorkspaceByID(w http.ResponseWriter, r *http.Request, workspaceID string) {
	ident, ok := a.authorize(w, r, workspaceID, anyMemberRoles)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		ws, err := a.workspaces.GetWorkspace(r.Context(), workspaceID)
		if err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ws)

	case http.MethodPatch:
		var req workspaceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		ws, err := a.workspaces.UpdateWorkspace(r.Context(), workspaceID, ident.UserID, req.Name)
		if err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "workspace.renamed", map[string]any{
			"workspace_id": ws.ID,
		})
		writeJSON(w, http.StatusOK, ws)

	case http.MethodDelete:
		if err := a.workspaces.DeleteWorkspace(r.Context(), workspaceID, ident.UserID); err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "workspace.deleted", map[string]any{
			"workspace_id": workspaceID,
		})
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleWorkspaceStats(w http.ResponseWriter, r *http.Request, workspaceID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.authorize(w, r, workspaceID, anyMemberRoles); !ok {
		return
	}
	stats, err := a.workspaces.WorkspaceStats(r.Context(), workspaceID)
	if err != nil {
		a.handleWorkspaceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleWorkspaceMembers(w http.ResponseWriter, r *http.Request, workspaceID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.authorize(w, r, workspaceID, anyMemberRoles); !ok {
		return
	}
	members, err := a.workspaces.ListMembers(r.Context(), workspaceID)
	if err != nil {
		a.handleWorkspaceError(w, r, err)
		return
	}
	if members == nil {
		members = []*workspace.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

// authorize runs the access guard for a tenant-scoped request and
// writes the error response itself when the caller is not admitted.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, workspaceID string, required auth.RoleSet) (auth.Identity, bool) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Identity{}, false
	}
	allowed, err := a.guard.Allow(r.Context(), ident.UserID, workspaceID, required)
	if err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			obs.ObserveGuard("denied")
			writeError(w, r, http.StatusForbidden, "workspace id not provided")
			return auth.Identity{}, false
		}
		writeError(w, r, http.StatusInternalServerError, "authorization error")
		return auth.Identity{}, false
	}
	if !allowed {
		obs.ObserveGuard("denied")
		_ = audit.LogEvent(r.Context(), "guard.denied", map[string]any{
			"workspace_id": workspaceID,
			"path":         r.URL.Path,
		})
		writeError(w, r, http.StatusForbidden, "insufficient role in this workspace")
		return auth.Identity{}, false
	}
	obs.ObserveGuard("allowed")
	return ident, true
}

func (a *API) handleWorkspaceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workspace.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, workspace.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, workspace.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, workspace.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
