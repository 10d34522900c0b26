package database

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/backlot-app/backlot/internal/supabase"
)

// newTestRepo returns a repository backed by an in-process PostgREST stub.
func newTestRepo(t *testing.T, handler http.HandlerFunc) *Repository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{
		URL:        srv.URL,
		AnonKey:    "anon-key",
		ServiceKey: "service-key",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewRepository(client)
}
