package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/reporting"
)

func expenseBackend(t *testing.T) http.HandlerFunc {
	budget := 10000.0
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/projects"):
			json.NewEncoder(w).Encode([]database.Project{{ID: projectID, Title: "Feature", Budget: &budget, CreatedBy: adminID}})
		case strings.HasSuffix(r.URL.Path, "/expenses"):
			json.NewEncoder(w).Encode([]database.Expense{
				{ID: "e1", ProjectID: projectID, Category: database.ExpenseCategoryCrew, Amount: 2500, ExpenseDate: "2026-08-10"},
				{ID: "e2", ProjectID: projectID, Category: database.ExpenseCategoryEquipment, Amount: 500, ExpenseDate: "2026-08-12"},
			})
		default:
			writeProfiles(w, r, map[string]string{adminID: database.RoleAdmin})
		}
	}
}

func TestProjectBudgetComparison(t *testing.T) {
	router := newTestRouter(t, expenseBackend(t))

	rr := doAs(router, adminID, http.MethodGet, "/api/dashboard/projects/"+projectID+"/budget", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var cmp reporting.BudgetComparison
	json.Unmarshal(rr.Body.Bytes(), &cmp)
	if cmp.Spent != 3000 {
		t.Errorf("spent = %v", cmp.Spent)
	}
	if cmp.Remaining == nil || *cmp.Remaining != 7000 {
		t.Errorf("remaining = %v", cmp.Remaining)
	}
}

func TestMonthlyExpensesValidatesWindow(t *testing.T) {
	router := newTestRouter(t, expenseBackend(t))

	for _, months := range []string{"0", "-3", "25", "six"} {
		rr := doAs(router, adminID, http.MethodGet, "/api/dashboard/projects/"+projectID+"/expenses/monthly?months="+months, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("months=%s: status = %d, want 400", months, rr.Code)
		}
	}
}

func TestMonthlyExpensesDefaultWindow(t *testing.T) {
	router := newTestRouter(t, expenseBackend(t))

	rr := doAs(router, adminID, http.MethodGet, "/api/dashboard/projects/"+projectID+"/expenses/monthly", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var buckets []reporting.MonthBucket
	json.Unmarshal(rr.Body.Bytes(), &buckets)
	if len(buckets) != 6 {
		t.Errorf("buckets = %d, want the default 6", len(buckets))
	}
}

func TestExpenseCategoriesKeepAllBuckets(t *testing.T) {
	router := newTestRouter(t, expenseBackend(t))

	rr := doAs(router, adminID, http.MethodGet, "/api/dashboard/projects/"+projectID+"/expenses/categories", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var totals map[string]float64
	json.Unmarshal(rr.Body.Bytes(), &totals)
	if len(totals) != 5 {
		t.Errorf("categories = %d, want 5", len(totals))
	}
	if totals[database.ExpenseCategoryCrew] != 2500 {
		t.Errorf("crew total = %v", totals[database.ExpenseCategoryCrew])
	}
	if totals[database.ExpenseCategoryLocation] != 0 {
		t.Errorf("location total = %v, want zero bucket", totals[database.ExpenseCategoryLocation])
	}
}

func TestDashboardRequiresProjectAccess(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/projects"):
			json.NewEncoder(w).Encode([]database.Project{{ID: projectID, CreatedBy: adminID}})
		case strings.HasSuffix(r.URL.Path, "/project_members"):
			w.Write([]byte("[]"))
		default:
			writeProfiles(w, r, map[string]string{crewID: database.RoleCrew})
		}
	})

	rr := doAs(router, crewID, http.MethodGet, "/api/dashboard/projects/"+projectID+"/budget", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}
