package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{URL: srv.URL, AnonKey: "anon-key", ServiceKey: "service-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{ServiceKey: "k"}); err == nil {
		t.Error("missing URL must fail")
	}
	if _, err := New(Config{URL: "https://example.supabase.co"}); err == nil {
		t.Error("missing service key must fail")
	}
	if _, err := New(Config{URL: "not a url", ServiceKey: "k"}); err == nil {
		t.Error("malformed URL must fail")
	}
}

func TestRestSendsHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey = %s", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer service-key" {
			t.Errorf("authorization = %s", got)
		}
		if got := r.Header.Get("Prefer"); got != "return=representation" {
			t.Errorf("prefer = %s", got)
		}
		if r.URL.Path != "/rest/v1/projects" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte("[]"))
	})

	if _, err := client.Rest(context.Background(), http.MethodGet, "projects", nil, "status=eq.planning"); err != nil {
		t.Fatalf("Rest: %v", err)
	}
}

func TestRestParsesErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"duplicate key value","code":"23505"}`))
	})

	_, err := client.Rest(context.Background(), http.MethodPost, "projects", map[string]string{"title": "x"}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *Error", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestRetryOnTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	retry.MaxBackoff = 2 * time.Millisecond
	client, err := New(Config{URL: srv.URL, ServiceKey: "service-key", Retry: retry})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.Rest(context.Background(), http.MethodGet, "projects", nil, ""); err != nil {
		t.Fatalf("Rest after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"bad payload"}`))
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	client, err := New(Config{URL: srv.URL, ServiceKey: "service-key", Retry: retry})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.Rest(context.Background(), http.MethodGet, "projects", nil, ""); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want no retries on 422", attempts)
	}
}

func TestStorageDeleteSendsPrefixes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/project-files" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string][]string
		json.NewDecoder(r.Body).Decode(&body)
		if len(body["prefixes"]) != 2 {
			t.Errorf("prefixes = %v", body["prefixes"])
		}
		w.Write([]byte("[]"))
	})

	err := client.Storage().From("project-files").Delete(context.Background(), []string{"p/a.png", "p/b.png"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestStorageSignedURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"signedURL": "/object/sign/project-files/p/a.png?token=abc"})
	})

	url, err := client.Storage().From("project-files").CreateSignedURL(context.Background(), "p/a.png", 3600)
	if err != nil {
		t.Fatalf("CreateSignedURL: %v", err)
	}
	if url == "" {
		t.Error("empty signed url")
	}
}

func TestAuthGetUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("authorization = %s", got)
		}
		json.NewEncoder(w).Encode(User{ID: "u1", Email: "u@example.com"})
	})

	user, err := client.Auth().GetUser(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("id = %s", user.ID)
	}
}
