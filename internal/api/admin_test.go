package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/backlot-app/backlot/internal/database"
)

func TestAdminCreateUserRejectsMissingFields(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		writeProfiles(w, r, map[string]string{adminID: database.RoleAdmin})
	})

	body := strings.NewReader(`{"email":"new@example.com","password":"secret"}`)
	rr := doAs(router, adminID, http.MethodPost, "/api/admin/users", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if msg := errorBody(t, rr); !strings.Contains(msg, "required") {
		t.Errorf("error = %q", msg)
	}
}

func TestAdminCreateUserRejectsInvalidRole(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/auth/") {
			t.Error("identity must not be created for an invalid role")
		}
		writeProfiles(w, r, map[string]string{adminID: database.RoleAdmin})
	})

	body := strings.NewReader(`{"email":"new@example.com","password":"secret","full_name":"New Crew","role":"producer"}`)
	rr := doAs(router, adminID, http.MethodPost, "/api/admin/users", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if msg := errorBody(t, rr); !strings.Contains(msg, "invalid role") {
		t.Errorf("error = %q", msg)
	}
}

func TestAdminCreateUserRequiresAdmin(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		writeProfiles(w, r, map[string]string{crewID: database.RoleCrew})
	})

	body := strings.NewReader(`{"email":"new@example.com","password":"secret","full_name":"New","role":"crew"}`)
	rr := doAs(router, crewID, http.MethodPost, "/api/admin/users", body)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestAdminCreateUserProvisionsIdentityAndProfile(t *testing.T) {
	const newID = "99999999-9999-9999-9999-999999999999"
	var patched map[string]any
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/auth/v1/admin/users"):
			json.NewEncoder(w).Encode(map[string]string{"id": newID, "email": "new@example.com"})
		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/profiles"):
			json.NewDecoder(r.Body).Decode(&patched)
			json.NewEncoder(w).Encode([]database.Profile{{ID: newID, FullName: "New Head", Role: database.RoleDepartmentHead}})
		default:
			writeProfiles(w, r, map[string]string{adminID: database.RoleAdmin})
		}
	})

	body := strings.NewReader(`{"email":"new@example.com","password":"secret","full_name":"New Head","role":"department_head","department":"Camera"}`)
	rr := doAs(router, adminID, http.MethodPost, "/api/admin/users", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if patched["role"] != database.RoleDepartmentHead {
		t.Errorf("patched role = %v", patched["role"])
	}
	if patched["department"] != "Camera" {
		t.Errorf("patched department = %v", patched["department"])
	}
}

func TestAdminDeleteUserDeniesSelf(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/auth/") {
			t.Error("identity deletion must not happen")
		}
		writeProfiles(w, r, map[string]string{adminID: database.RoleAdmin})
	})

	rr := doAs(router, adminID, http.MethodDelete, "/api/admin/users/"+adminID, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if msg := errorBody(t, rr); !strings.Contains(msg, "own account") {
		t.Errorf("error = %q", msg)
	}
}

func TestAdminDeleteUserProtectsLastAdmin(t *testing.T) {
	// The caller was demoted out of the admin role set between resolving
	// their session and the count, leaving the target as the only admin.
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/auth/") {
			t.Error("identity deletion must not happen")
		}
		q := r.URL.Query()
		if idFilter := q.Get("id"); len(idFilter) > 3 {
			id := idFilter[3:]
			json.NewEncoder(w).Encode([]database.Profile{{ID: id, Role: database.RoleAdmin}})
			return
		}
		json.NewEncoder(w).Encode([]database.Profile{{ID: adminID, Role: database.RoleAdmin}})
	})

	rr := doAs(router, admin2ID, http.MethodDelete, "/api/admin/users/"+adminID, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if msg := errorBody(t, rr); !strings.Contains(msg, "last admin") {
		t.Errorf("error = %q", msg)
	}
}

func TestAdminDeleteUserSucceeds(t *testing.T) {
	identityDeleted := false
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && strings.Contains(r.URL.Path, "/auth/v1/admin/users/") {
			identityDeleted = true
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("{}"))
			return
		}
		writeProfiles(w, r, map[string]string{
			adminID:  database.RoleAdmin,
			admin2ID: database.RoleAdmin,
			crewID:   database.RoleCrew,
		})
	})

	rr := doAs(router, adminID, http.MethodDelete, "/api/admin/users/"+crewID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !identityDeleted {
		t.Error("identity was not deleted")
	}
}

func TestUpdateOwnProfileCannotEscalate(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		writeProfiles(w, r, map[string]string{crewID: database.RoleCrew})
	})

	body := strings.NewReader(`{"role":"admin"}`)
	rr := doAs(router, crewID, http.MethodPatch, "/api/profile", body)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestUnauthenticatedRequest(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no backend call expected")
	})
	rr := doAs(router, "", http.MethodGet, "/api/profile", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
