package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/httputil"
	"github.com/backlot-app/backlot/internal/reporting"
)

// handleListTasks returns the caller's visible tasks: everything on
// accessible projects plus tasks assigned to them elsewhere, merged,
// sorted by due date, and filtered by the optional query parameters.
func (a *API) handleListTasks(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}

	var projectIDs []string
	var err error
	if caller.IsAdmin() {
		projects, perr := a.repo.ListProjects(r.Context())
		if perr != nil {
			a.writeError(w, r, perr)
			return
		}
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ID)
		}
	} else {
		projectIDs, err = a.repo.AccessibleProjectIDs(r.Context(), caller.UserID)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
	}

	projectTasks, err := a.repo.ListTasksForProjects(r.Context(), projectIDs)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	assignedTasks, err := a.repo.ListTasksAssignedTo(r.Context(), caller.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	tasks := reporting.MergeTasks(projectTasks, assignedTasks)
	reporting.SortTasks(tasks)

	q := r.URL.Query()
	tasks = reporting.FilterTasks(tasks, reporting.TaskFilter{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		AssignedTo: q.Get("assigned_to"),
		ProjectID:  q.Get("project_id"),
	})
	httputil.WriteJSON(w, http.StatusOK, tasks)
}

func (a *API) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	var create database.TaskCreate
	if !httputil.DecodeJSON(w, r, &create) {
		return
	}
	if create.ProjectID == "" {
		httputil.BadRequest(w, "project_id is required")
		return
	}
	project, err := a.repo.GetProject(r.Context(), create.ProjectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !caller.IsAdmin() && !caller.IsDepartmentHead() && caller.UserID != project.CreatedBy {
		httputil.Forbidden(w, "only admins, department heads, and project owners can create tasks")
		return
	}
	create.CreatedBy = caller.UserID
	task, err := a.repo.CreateTask(r.Context(), create)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, task)
}

func (a *API) handleGetTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	task, err := a.repo.GetTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeTaskAccess(r.Context(), caller, task); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

// handleUpdateTask lets the assignee move their own task through statuses;
// broader edits require elevated roles or ownership.
func (a *API) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	task, err := a.repo.GetTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	isAssignee := task.AssignedTo != nil && *task.AssignedTo == caller.UserID
	if !caller.IsAdmin() && !caller.IsDepartmentHead() && caller.UserID != task.CreatedBy && !isAssignee {
		httputil.Forbidden(w, "not allowed to modify this task")
		return
	}
	var update database.TaskUpdate
	if !httputil.DecodeJSON(w, r, &update) {
		return
	}
	if isAssignee && !caller.IsAdmin() && !caller.IsDepartmentHead() && caller.UserID != task.CreatedBy {
		// Assignees can update progress but not reshape or reassign the task.
		update = database.TaskUpdate{Status: update.Status, Priority: update.Priority}
	}
	updated, err := a.repo.UpdateTask(r.Context(), task.ID, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	task, err := a.repo.GetTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, task.CreatedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.repo.DeleteTask(r.Context(), task.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
