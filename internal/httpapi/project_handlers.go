package httpapi

import (
	"net/http"

	"github.com/devflow-project/devflow/internal/audit"
	"github.com/devflow-project/devflow/internal/workspace"
)

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Key         string `json:"key"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Project writes require an elevated role; reads admit any member.
func (a *API) handleProjects(w http.ResponseWriter, r *http.Request, workspaceID string) {
	switch r.Method {
	case http.MethodPost:
		ident, ok := a.authorize(w, r, workspaceID, elevatedRoles)
		if !ok {
			return
		}
		var req createProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.workspaces.CreateProject(r.Context(), ident.UserID, workspaceID, workspace.CreateProjectInput{
			Name:        req.Name,
			Description: req.Description,
			Key:         req.Key,
		})
		if err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "project.created", map[string]any{
			"workspace_id": workspaceID,
			"project_id":   p.ID,
		})
		writeJSON(w, http.StatusCreated, p)

	case http.MethodGet:
		if _, ok := a.authorize(w, r, workspaceID, anyMemberRoles); !ok {
			return
		}
		list, err := a.workspaces.ListProjects(r.Context(), workspaceID)
		if err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		if list == nil {
			list = []*workspace.Project{}
		}
		writeJSON(w, http.StatusOK, list)

	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleProjectByID(w http.ResponseWriter, r *http.Request, workspaceID, projectID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.authorize(w, r, workspaceID, anyMemberRoles); !ok {
			return
		}
		p, err := a.workspaces.GetProject(r.Context(), workspaceID, projectID)
		if err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodPatch:
		if _, ok := a.authorize(w, r, workspaceID, elevatedRoles); !ok {
			return
		}
		var req updateProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.workspaces.UpdateProject(r.Context(), workspaceID, projectID, workspace.UpdateProjectInput{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "project.updated", map[string]any{
			"workspace_id": workspaceID,
			"project_id":   p.ID,
		})
		writeJSON(w, http.StatusOK, p)

	case http.MethodDelete:
		if _, ok := a.authorize(w, r, workspaceID, elevatedRoles); !ok {
			return
		}
		if err := a.workspaces.DeleteProject(r.Context(), workspaceID, projectID); err != nil {
			a.handleWorkspaceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "project.deleted", map[string]any{
			"workspace_id": workspaceID,
			"project_id":   projectID,
		})
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
