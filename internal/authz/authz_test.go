package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/errors"
	"github.com/backlot-app/backlot/internal/supabase"
)

const (
	adminID       = "11111111-1111-1111-1111-111111111111"
	secondAdminID = "22222222-2222-2222-2222-222222222222"
	crewID        = "33333333-3333-3333-3333-333333333333"
)

// profileServer stubs the profiles table from a fixed id -> role map.
func profileServer(t *testing.T, roles map[string]string) *Authorizer {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if idFilter := q.Get("id"); idFilter != "" {
			id := strings.TrimPrefix(idFilter, "eq.")
			role, ok := roles[id]
			if !ok {
				w.Write([]byte("[]"))
				return
			}
			json.NewEncoder(w).Encode([]database.Profile{{ID: id, Role: role}})
			return
		}
		if roleFilter := q.Get("role"); roleFilter != "" {
			role := strings.TrimPrefix(roleFilter, "eq.")
			out := []database.Profile{}
			for id, have := range roles {
				if have == role {
					out = append(out, database.Profile{ID: id, Role: have})
				}
			}
			json.NewEncoder(w).Encode(out)
			return
		}
		w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{URL: srv.URL, ServiceKey: "service-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return New(database.NewRepository(client))
}

func admin(id string) *Caller {
	return &Caller{UserID: id, Profile: &database.Profile{ID: id, Role: database.RoleAdmin}}
}

func TestResolveCallerUnauthenticated(t *testing.T) {
	auth := profileServer(t, nil)

	if _, err := auth.ResolveCaller(context.Background(), ""); errors.GetServiceError(err).Code != errors.CodeUnauthenticated {
		t.Errorf("empty user id: err = %v, want unauthenticated", err)
	}
	if _, err := auth.ResolveCaller(context.Background(), crewID); errors.GetServiceError(err).Code != errors.CodeUnauthenticated {
		t.Errorf("missing profile: err = %v, want unauthenticated", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	auth := profileServer(t, nil)

	if err := auth.RequireAdmin(admin(adminID)); err != nil {
		t.Errorf("admin: err = %v", err)
	}
	crew := &Caller{UserID: crewID, Profile: &database.Profile{ID: crewID, Role: database.RoleCrew}}
	if err := auth.RequireAdmin(crew); errors.GetServiceError(err).Code != errors.CodeForbidden {
		t.Errorf("crew: err = %v, want forbidden", err)
	}
}

func TestUserDeleteDeniesSelf(t *testing.T) {
	auth := profileServer(t, map[string]string{adminID: database.RoleAdmin})

	err := auth.AuthorizeUserDelete(context.Background(), admin(adminID), adminID)
	se := errors.GetServiceError(err)
	if se == nil || se.Code != errors.CodeInvalidOperation {
		t.Fatalf("err = %v, want invalid operation", err)
	}
	if se.HTTPStatus != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", se.HTTPStatus)
	}
}

func TestUserDeleteProtectsLastAdmin(t *testing.T) {
	auth := profileServer(t, map[string]string{
		adminID:       database.RoleAdmin,
		secondAdminID: database.RoleAdmin,
		crewID:        database.RoleCrew,
	})

	// Two admins exist, so deleting one is allowed.
	if err := auth.AuthorizeUserDelete(context.Background(), admin(adminID), secondAdminID); err != nil {
		t.Errorf("two admins: err = %v", err)
	}

	sole := profileServer(t, map[string]string{
		secondAdminID: database.RoleAdmin,
		crewID:        database.RoleCrew,
	})
	err := sole.AuthorizeUserDelete(context.Background(), admin(adminID), secondAdminID)
	if se := errors.GetServiceError(err); se == nil || se.Code != errors.CodeInvalidOperation {
		t.Errorf("last admin: err = %v, want invalid operation", err)
	}

	// Deleting a non-admin never consults the admin count.
	if err := sole.AuthorizeUserDelete(context.Background(), admin(adminID), crewID); err != nil {
		t.Errorf("crew target: err = %v", err)
	}
}

func TestAuthorizeOwnerOrAdmin(t *testing.T) {
	auth := profileServer(t, nil)

	crew := &Caller{UserID: crewID, Profile: &database.Profile{ID: crewID, Role: database.RoleCrew}}
	if err := auth.AuthorizeOwnerOrAdmin(crew, crewID); err != nil {
		t.Errorf("owner: err = %v", err)
	}
	if err := auth.AuthorizeOwnerOrAdmin(crew, adminID); errors.GetServiceError(err).Code != errors.CodeForbidden {
		t.Errorf("non-owner: err = %v, want forbidden", err)
	}
	if err := auth.AuthorizeOwnerOrAdmin(admin(adminID), crewID); err != nil {
		t.Errorf("admin: err = %v", err)
	}
}

func TestAuthorizeTaskAccessAssignee(t *testing.T) {
	auth := profileServer(t, nil)

	crew := &Caller{UserID: crewID, Profile: &database.Profile{ID: crewID, Role: database.RoleCrew}}
	assignee := crewID
	task := &database.Task{ID: "t", ProjectID: adminID, AssignedTo: &assignee}
	if err := auth.AuthorizeTaskAccess(context.Background(), crew, task); err != nil {
		t.Errorf("assignee: err = %v", err)
	}
}
