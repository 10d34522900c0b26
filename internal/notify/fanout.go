// Package notify implements server-side notification fan-out.
package notify

import (
	"context"
	"fmt"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/logging"
)

// Fallbacks used when the reporter or project cannot be resolved; a missing
// name degrades the message text rather than failing the fan-out.
const (
	fallbackReporter = "A crew member"
	fallbackProject  = "a project"
)

// Notifier writes notifications for domain events. All methods are
// best-effort: failures are logged by the caller and never abort the
// operation that triggered them.
type Notifier struct {
	repo   *database.Repository
	logger *logging.Logger
}

// New creates a Notifier.
func New(repo *database.Repository, logger *logging.Logger) *Notifier {
	return &Notifier{repo: repo, logger: logger}
}

// ReportSubmitted fans out one notification per recipient when a report is
// filed. The notify-set is the union of all admins, all department heads,
// and the report project's members holding the Project Manager role label.
// An empty union writes nothing.
func (n *Notifier) ReportSubmitted(ctx context.Context, report *database.Report) error {
	reporterName := fallbackReporter
	if profile, err := n.repo.GetProfile(ctx, report.ReportedBy); err == nil && profile.FullName != "" {
		reporterName = profile.FullName
	}

	projectTitle := fallbackProject
	if report.ProjectID != nil {
		if project, err := n.repo.GetProject(ctx, *report.ProjectID); err == nil && project.Title != "" {
			projectTitle = project.Title
		}
	}

	recipients, err := n.reportRecipients(ctx, report)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	reportID := report.ID
	entityType := "report"
	batch := make([]database.NotificationCreate, 0, len(recipients))
	for _, userID := range recipients {
		batch = append(batch, database.NotificationCreate{
			UserID:            userID,
			Type:              database.NotificationTypeReportSubmitted,
			Title:             "New report submitted",
			Message:           fmt.Sprintf("%s submitted a report for %s", reporterName, projectTitle),
			RelatedEntityID:   &reportID,
			RelatedEntityType: &entityType,
			Severity:          database.SeverityInfo,
			ActionRequired:    false,
			Link:              "/reports/" + report.ID,
		})
	}
	return n.repo.CreateNotifications(ctx, batch)
}

// reportRecipients computes the distinct notify-set for a report.
func (n *Notifier) reportRecipients(ctx context.Context, report *database.Report) ([]string, error) {
	seen := make(map[string]struct{})
	var recipients []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	admins, err := n.repo.ListProfilesByRole(ctx, database.RoleAdmin)
	if err != nil {
		return nil, err
	}
	for _, p := range admins {
		add(p.ID)
	}

	heads, err := n.repo.ListProfilesByRole(ctx, database.RoleDepartmentHead)
	if err != nil {
		return nil, err
	}
	for _, p := range heads {
		add(p.ID)
	}

	if report.ProjectID != nil {
		managers, err := n.repo.ListProjectMembersWithRole(ctx, *report.ProjectID, database.MemberRoleProjectManager)
		if err != nil {
			return nil, err
		}
		for _, m := range managers {
			add(m.UserID)
		}
	}
	return recipients, nil
}
