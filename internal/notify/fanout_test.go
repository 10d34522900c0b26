package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/logging"
	"github.com/backlot-app/backlot/internal/supabase"
)

const (
	reporterID = "11111111-1111-1111-1111-111111111111"
	adminID    = "22222222-2222-2222-2222-222222222222"
	headID     = "33333333-3333-3333-3333-333333333333"
	managerID  = "44444444-4444-4444-4444-444444444444"
	projectID  = "55555555-5555-5555-5555-555555555555"
)

// fanoutFixture stubs the tables ReportSubmitted touches and captures the
// notification insert.
type fanoutFixture struct {
	notifier *Notifier
	inserted *[]database.NotificationCreate

	adminAlsoManager bool
	reporterKnown    bool
	projectKnown     bool
}

func newFanoutFixture(t *testing.T, fx *fanoutFixture) {
	t.Helper()
	var inserted []database.NotificationCreate
	fx.inserted = &inserted

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/profiles"):
			q := r.URL.Query()
			if strings.HasPrefix(q.Get("id"), "eq.") {
				if !fx.reporterKnown {
					w.Write([]byte("[]"))
					return
				}
				json.NewEncoder(w).Encode([]database.Profile{{ID: reporterID, FullName: "Sam Reyes"}})
				return
			}
			switch q.Get("role") {
			case "eq." + database.RoleAdmin:
				json.NewEncoder(w).Encode([]database.Profile{{ID: adminID, Role: database.RoleAdmin}})
			case "eq." + database.RoleDepartmentHead:
				json.NewEncoder(w).Encode([]database.Profile{{ID: headID, Role: database.RoleDepartmentHead}})
			default:
				w.Write([]byte("[]"))
			}
		case strings.HasSuffix(r.URL.Path, "/projects"):
			if !fx.projectKnown {
				w.Write([]byte("[]"))
				return
			}
			json.NewEncoder(w).Encode([]database.Project{{ID: projectID, Title: "Night Shoot"}})
		case strings.HasSuffix(r.URL.Path, "/project_members"):
			managers := []database.ProjectMember{{ProjectID: projectID, UserID: managerID, Role: database.MemberRoleProjectManager}}
			if fx.adminAlsoManager {
				managers = append(managers, database.ProjectMember{ProjectID: projectID, UserID: adminID, Role: database.MemberRoleProjectManager})
			}
			json.NewEncoder(w).Encode(managers)
		case strings.HasSuffix(r.URL.Path, "/notifications"):
			json.NewDecoder(r.Body).Decode(&inserted)
			w.Write([]byte("[]"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{URL: srv.URL, ServiceKey: "service-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	fx.notifier = New(database.NewRepository(client), logging.Nop())
}

func TestReportSubmittedFanOut(t *testing.T) {
	fx := &fanoutFixture{reporterKnown: true, projectKnown: true}
	newFanoutFixture(t, fx)

	pid := projectID
	err := fx.notifier.ReportSubmitted(context.Background(), &database.Report{
		ID:         "66666666-6666-6666-6666-666666666666",
		ReportedBy: reporterID,
		ProjectID:  &pid,
		Title:      "Generator failure",
	})
	if err != nil {
		t.Fatalf("ReportSubmitted: %v", err)
	}

	got := *fx.inserted
	if len(got) != 3 {
		t.Fatalf("inserted %d notifications, want 3 (admin, head, manager)", len(got))
	}
	recipients := map[string]bool{}
	for _, n := range got {
		recipients[n.UserID] = true
		if n.Type != database.NotificationTypeReportSubmitted {
			t.Errorf("type = %s", n.Type)
		}
		if n.Severity != database.SeverityInfo {
			t.Errorf("severity = %s", n.Severity)
		}
		if n.ActionRequired {
			t.Error("action_required must be false")
		}
		if n.Message != "Sam Reyes submitted a report for Night Shoot" {
			t.Errorf("message = %q", n.Message)
		}
		if n.Link != "/reports/66666666-6666-6666-6666-666666666666" {
			t.Errorf("link = %q", n.Link)
		}
	}
	for _, id := range []string{adminID, headID, managerID} {
		if !recipients[id] {
			t.Errorf("missing recipient %s", id)
		}
	}
}

func TestReportSubmittedDeduplicatesRecipients(t *testing.T) {
	fx := &fanoutFixture{reporterKnown: true, projectKnown: true, adminAlsoManager: true}
	newFanoutFixture(t, fx)

	pid := projectID
	err := fx.notifier.ReportSubmitted(context.Background(), &database.Report{
		ID:         "66666666-6666-6666-6666-666666666666",
		ReportedBy: reporterID,
		ProjectID:  &pid,
	})
	if err != nil {
		t.Fatalf("ReportSubmitted: %v", err)
	}
	if len(*fx.inserted) != 3 {
		t.Fatalf("inserted %d notifications, want 3 after dedupe", len(*fx.inserted))
	}
}

func TestReportSubmittedFallbackNames(t *testing.T) {
	fx := &fanoutFixture{}
	newFanoutFixture(t, fx)

	pid := projectID
	err := fx.notifier.ReportSubmitted(context.Background(), &database.Report{
		ID:         "66666666-6666-6666-6666-666666666666",
		ReportedBy: reporterID,
		ProjectID:  &pid,
	})
	if err != nil {
		t.Fatalf("ReportSubmitted: %v", err)
	}
	got := *fx.inserted
	if len(got) == 0 {
		t.Fatal("expected notifications")
	}
	if got[0].Message != "A crew member submitted a report for a project" {
		t.Errorf("message = %q", got[0].Message)
	}
}
