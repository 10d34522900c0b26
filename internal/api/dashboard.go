package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/httputil"
	"github.com/backlot-app/backlot/internal/reporting"
)

// handleProjectBudget compares the project's budget against its recorded
// spend.
func (a *API) handleProjectBudget(w http.ResponseWriter, r *http.Request) {
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
	expenses, err := a.repo.ListExpensesByProject(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reporting.CompareBudget(project.Budget, expenses))
}

// handleMonthlyExpenses returns per-month spend buckets for the trailing
// window ending this month. The window defaults to six months; ?months=N
// overrides it within 1..24.
func (a *API) handleMonthlyExpenses(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, projectID); err != nil {
		a.writeError(w, r, err)
		return
	}

	months := 6
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 24 {
			httputil.BadRequest(w, "months must be between 1 and 24")
			return
		}
		months = n
	}

	expenses, err := a.repo.ListExpensesByProject(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reporting.ExpensesByMonth(expenses, months, time.Now()))
}

func (a *API) handleExpenseCategories(w http.ResponseWriter, r *http.Request) {
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
	httputil.WriteJSON(w, http.StatusOK, reporting.ExpensesByCategory(expenses))
}

func (a *API) handleFileSummary(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, projectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	files, err := a.repo.ListProjectFiles(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reporting.SummarizeFiles(files))
}
