package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/errors"
	"github.com/backlot-app/backlot/internal/httputil"
)

// handleListProjects returns every project for admins and the accessible
// subset (owned or member-of) for everyone else.
func (a *API) handleListProjects(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	if caller.IsAdmin() {
		projects, err := a.repo.ListProjects(r.Context())
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, projects)
		return
	}
	ids, err := a.repo.AccessibleProjectIDs(r.Context(), caller.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	projects, err := a.repo.ListProjectsByID(r.Context(), ids)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, projects)
}

// handleCreateProject creates a project owned by the caller. Any
// authenticated user can start one.
func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	var create database.ProjectCreate
	if !httputil.DecodeJSON(w, r, &create) {
		return
	}
	create.CreatedBy = caller.UserID
	project, err := a.repo.CreateProject(r.Context(), create)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, project)
}

func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, projectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	project, err := a.repo.GetProject(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (a *API) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	project, err := a.repo.GetProject(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, project.CreatedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	var update database.ProjectUpdate
	if !httputil.DecodeJSON(w, r, &update) {
		return
	}
	updated, err := a.repo.UpdateProject(r.Context(), projectID, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// handleDeleteProject removes a project and everything under it. Deletion
// cascades tasks, expenses, files, and schedules, so it stays admin-only
// even for the project's creator.
func (a *API) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	if err := a.auth.RequireAdmin(caller); err != nil {
		a.writeError(w, r, err)
		return
	}
	projectID := mux.Vars(r)["id"]
	if _, err := a.repo.GetProject(r.Context(), projectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.deleteProjectObjects(r, projectID)
	if err := a.repo.DeleteProject(r.Context(), projectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// deleteProjectObjects best-effort removes the project's stored files before
// the rows cascade away. Failures are logged, never surfaced.
func (a *API) deleteProjectObjects(r *http.Request, projectID string) {
	files, err := a.repo.ListProjectFiles(r.Context(), projectID)
	if err != nil {
		a.logger.WithContext(r.Context()).Warn().
			Err(err).
			Str("project_id", projectID).
			Msg("could not list files for storage cleanup")
		return
	}
	if len(files) == 0 {
		return
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.StoragePath)
	}
	if err := a.supa.Storage().From(a.filesBucket).Delete(r.Context(), paths); err != nil {
		a.logger.WithContext(r.Context()).Warn().
			Err(err).
			Str("project_id", projectID).
			Int("count", len(paths)).
			Msg("storage cleanup failed")
	}
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, projectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	members, err := a.repo.ListProjectMembers(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, members)
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

func (a *API) handleAddMember(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	project, err := a.repo.GetProject(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, project.CreatedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	var req addMemberRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httputil.BadRequest(w, "user_id is required")
		return
	}
	member, err := a.repo.AddProjectMember(r.Context(), projectID, req.UserID, req.Role)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, member)
}

func (a *API) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	projectID, userID := vars["id"], vars["userId"]
	project, err := a.repo.GetProject(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, project.CreatedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	if userID == project.CreatedBy {
		a.writeError(w, r, errors.InvalidOperation("the project creator cannot be removed"))
		return
	}
	if err := a.repo.RemoveProjectMember(r.Context(), projectID, userID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
