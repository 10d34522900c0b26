package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/authz"
	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/logging"
	"github.com/backlot-app/backlot/internal/metrics"
	"github.com/backlot-app/backlot/internal/notify"
	"github.com/backlot-app/backlot/internal/supabase"
)

const reportID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"

// newMeteredRouter is newTestRouter with the metrics handle kept for
// scraping assertions.
func newMeteredRouter(t *testing.T, backend http.HandlerFunc) (*mux.Router, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{URL: srv.URL, ServiceKey: "service-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	repo := database.NewRepository(client)
	m := metrics.New()

	app := New(Config{
		Repo:              repo,
		Authorizer:        authz.New(repo),
		Supabase:          client,
		Notifier:          notify.New(repo, logging.Nop()),
		Logger:            logging.Nop(),
		Metrics:           m,
		FilesBucket:       "project-files",
		AttachmentsBucket: "report-attachments",
	})
	router := mux.NewRouter()
	app.Routes(router)
	return router, m
}

func scrapeMetrics(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Body.String()
}

func reportBackend(notificationStatus int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/reports") && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode([]database.Report{{ID: reportID, ReportedBy: crewID, Title: "Broken dolly", Content: "Track section cracked"}})
		case strings.HasSuffix(r.URL.Path, "/notifications"):
			if notificationStatus >= 400 {
				w.WriteHeader(notificationStatus)
				return
			}
			w.Write([]byte("[]"))
		default:
			writeProfiles(w, r, map[string]string{crewID: database.RoleCrew, adminID: database.RoleAdmin})
		}
	}
}

func TestCreateReportRecordsFanoutSuccess(t *testing.T) {
	router, m := newMeteredRouter(t, reportBackend(http.StatusCreated))

	body := strings.NewReader(`{"title":"Broken dolly","content":"Track section cracked"}`)
	rr := doAs(router, crewID, http.MethodPost, "/api/reports", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	scraped := scrapeMetrics(t, m)
	if !strings.Contains(scraped, `backlot_notifications_fanout_total{outcome="ok"} 1`) {
		t.Errorf("fanout ok counter missing:\n%s", scraped)
	}
}

func TestCreateReportRecordsFanoutFailure(t *testing.T) {
	router, m := newMeteredRouter(t, reportBackend(http.StatusInternalServerError))

	body := strings.NewReader(`{"title":"Broken dolly","content":"Track section cracked"}`)
	rr := doAs(router, crewID, http.MethodPost, "/api/reports", body)
	// Fan-out failure never fails the report itself.
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	scraped := scrapeMetrics(t, m)
	if !strings.Contains(scraped, `backlot_notifications_fanout_total{outcome="error"} 1`) {
		t.Errorf("fanout error counter missing:\n%s", scraped)
	}
}
