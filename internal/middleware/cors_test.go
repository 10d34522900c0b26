package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsRequest(m *CORSMiddleware, method, origin string) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(method, "/api/projects", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	m.Handler(next).ServeHTTP(rr, req)
	return rr
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	m := NewCORSMiddleware([]string{"http://localhost:3000"})

	rr := corsRequest(m, http.MethodGet, "http://localhost:3000")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials header missing")
	}
}

func TestCORSSkipsUnknownOrigin(t *testing.T) {
	m := NewCORSMiddleware([]string{"http://localhost:3000"})

	rr := corsRequest(m, http.MethodGet, "http://evil.example")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want unset", got)
	}
	// The request itself still reaches the handler; the browser enforces.
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	m := NewCORSMiddleware([]string{"*"})

	rr := corsRequest(m, http.MethodOptions, "http://anywhere.example")
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("methods header missing on preflight")
	}
}
