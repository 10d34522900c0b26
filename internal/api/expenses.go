package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/httputil"
)

func (a *API) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, projectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	expenses, err := a.repo.ListExpensesByProject(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, expenses)
}

func (a *API) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, projectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	var create database.ExpenseCreate
	if !httputil.DecodeJSON(w, r, &create) {
		return
	}
	create.ProjectID = projectID
	create.CreatedBy = caller.UserID
	expense, err := a.repo.CreateExpense(r.Context(), create)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, expense)
}

// handleUpdateExpense lets any member of the expense's project correct the
// row, not just whoever entered it.
func (a *API) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	expense, err := a.repo.GetExpense(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, expense.ProjectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	var update database.ExpenseUpdate
	if !httputil.DecodeJSON(w, r, &update) {
		return
	}
	updated, err := a.repo.UpdateExpense(r.Context(), expense.ID, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	expense, err := a.repo.GetExpense(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, expense.ProjectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.repo.DeleteExpense(r.Context(), expense.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
