package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/httputil"
)

func (a *API) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, projectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	schedules, err := a.repo.ListSchedulesByProject(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, schedules)
}

func (a *API) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
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
	if !caller.IsAdmin() && !caller.IsDepartmentHead() && caller.UserID != project.CreatedBy {
		httputil.Forbidden(w, "only admins, department heads, and project owners can create schedules")
		return
	}
	var create database.ScheduleCreate
	if !httputil.DecodeJSON(w, r, &create) {
		return
	}
	create.ProjectID = projectID
	create.CreatedBy = caller.UserID
	schedule, err := a.repo.CreateSchedule(r.Context(), create)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, schedule)
}

func (a *API) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	schedule, err := a.repo.GetSchedule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, schedule.CreatedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	var update database.ScheduleUpdate
	if !httputil.DecodeJSON(w, r, &update) {
		return
	}
	updated, err := a.repo.UpdateSchedule(r.Context(), schedule.ID, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	schedule, err := a.repo.GetSchedule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, schedule.CreatedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.repo.DeleteSchedule(r.Context(), schedule.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
