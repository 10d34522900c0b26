package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/authz"
	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/logging"
	"github.com/backlot-app/backlot/internal/metrics"
	"github.com/backlot-app/backlot/internal/notify"
	"github.com/backlot-app/backlot/internal/supabase"
)

const (
	adminID  = "11111111-1111-1111-1111-111111111111"
	admin2ID = "22222222-2222-2222-2222-222222222222"
	crewID   = "33333333-3333-3333-3333-333333333333"
	headID   = "44444444-4444-4444-4444-444444444444"
)

// newTestRouter builds the full route table over a stubbed backend.
func newTestRouter(t *testing.T, backend http.HandlerFunc) *mux.Router {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{URL: srv.URL, ServiceKey: "service-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	repo := database.NewRepository(client)

	app := New(Config{
		Repo:              repo,
		Authorizer:        authz.New(repo),
		Supabase:          client,
		Notifier:          notify.New(repo, logging.Nop()),
		Logger:            logging.Nop(),
		Metrics:           metrics.New(),
		FilesBucket:       "project-files",
		AttachmentsBucket: "report-attachments",
	})
	router := mux.NewRouter()
	app.Routes(router)
	return router
}

// doAs performs a request with the authenticated user id already resolved,
// the way the auth middleware leaves it.
func doAs(router *mux.Router, userID, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req = req.WithContext(logging.WithUserID(req.Context(), userID))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// errorBody extracts the message from the {"error": ...} envelope.
func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response %q is not an error envelope: %v", rr.Body.String(), err)
	}
	return body["error"]
}

// writeProfiles serves a profiles query from a fixed role map.
func writeProfiles(w http.ResponseWriter, r *http.Request, roles map[string]string) {
	q := r.URL.Query()
	if idFilter := q.Get("id"); len(idFilter) > 3 {
		id := idFilter[3:]
		role, ok := roles[id]
		if !ok {
			w.Write([]byte("[]"))
			return
		}
		json.NewEncoder(w).Encode([]database.Profile{{ID: id, Email: id + "@example.com", Role: role}})
		return
	}
	if roleFilter := q.Get("role"); len(roleFilter) > 3 {
		want := roleFilter[3:]
		out := []database.Profile{}
		for id, role := range roles {
			if role == want {
				out = append(out, database.Profile{ID: id, Role: role})
			}
		}
		json.NewEncoder(w).Encode(out)
		return
	}
	out := []database.Profile{}
	for id, role := range roles {
		out = append(out, database.Profile{ID: id, Role: role})
	}
	json.NewEncoder(w).Encode(out)
}
