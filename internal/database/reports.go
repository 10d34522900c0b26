package database

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Report is an incident or status report filed by crew, optionally tied to
// a project and task, with an optional stored attachment.
type Report struct {
	ID            string    `json:"id"`
	ReportedBy    string    `json:"reported_by"`
	ProjectID     *string   `json:"project_id,omitempty"`
	TaskID        *string   `json:"task_id,omitempty"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	AttachmentURL *string   `json:"attachment_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ReportCreate is the insert payload for a report.
type ReportCreate struct {
	ReportedBy    string  `json:"reported_by"`
	ProjectID     *string `json:"project_id,omitempty"`
	TaskID        *string `json:"task_id,omitempty"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	AttachmentURL *string `json:"attachment_url,omitempty"`
}

// ReportUpdate carries partial report changes.
type ReportUpdate struct {
	Title         *string `json:"title,omitempty"`
	Content       *string `json:"content,omitempty"`
	AttachmentURL *string `json:"attachment_url,omitempty"`
}

// ReportComment is a comment thread entry under a report.
type ReportComment struct {
	ID          string    `json:"id"`
	ReportID    string    `json:"report_id"`
	CommenterID string    `json:"commenter_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c ReportCreate) validate() error {
	if err := ValidateID("reported_by", c.ReportedBy); err != nil {
		return err
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	}
	if c.ProjectID != nil {
		if err := ValidateID("project_id", *c.ProjectID); err != nil {
			return err
		}
	}
	if c.TaskID != nil {
		if err := ValidateID("task_id", *c.TaskID); err != nil {
			return err
		}
	}
	return nil
}

// CreateReport inserts a report. Notification fan-out is the caller's
// side effect, not part of the write.
func (r *Repository) CreateReport(ctx context.Context, create ReportCreate) (*Report, error) {
	if err := create.validate(); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodPost, "reports", create, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[Report](data, "reports")
}

// GetReport fetches one report.
func (r *Repository) GetReport(ctx context.Context, id string) (*Report, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "reports", nil, "id=eq."+id+"&limit=1")
	if err != nil {
		return nil, err
	}
	return decodeOne[Report](data, "reports")
}

// ListReports returns all reports newest first. Admin and department-head
// callers see everything; others are filtered by the handler.
func (r *Repository) ListReports(ctx context.Context) ([]Report, error) {
	query := "order=" + url.QueryEscape("created_at.desc")
	data, err := r.Request(ctx, http.MethodGet, "reports", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Report](data, "reports")
}

// ListReportsBy returns reports filed by the given user, newest first.
func (r *Repository) ListReportsBy(ctx context.Context, userID string) ([]Report, error) {
	if err := ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	query := "reported_by=eq." + userID + "&order=" + url.QueryEscape("created_at.desc")
	data, err := r.Request(ctx, http.MethodGet, "reports", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Report](data, "reports")
}

// UpdateReport applies a partial update and returns the updated row.
func (r *Repository) UpdateReport(ctx context.Context, id string, update ReportUpdate) (*Report, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodPatch, "reports", update, "id=eq."+id)
	if err != nil {
		return nil, err
	}
	return decodeOne[Report](data, "reports")
}

// DeleteReport removes a report; comments cascade in the database. The
// caller handles best-effort attachment deletion first.
func (r *Repository) DeleteReport(ctx context.Context, id string) error {
	if err := ValidateID("id", id); err != nil {
		return err
	}
	data, err := r.Request(ctx, http.MethodDelete, "reports", nil, "id=eq."+id)
	if err != nil {
		return err
	}
	if _, err := decodeOne[Report](data, "reports"); err != nil {
		return err
	}
	return nil
}

// CreateReportComment inserts a comment under a report.
func (r *Repository) CreateReportComment(ctx context.Context, reportID, commenterID, content string) (*ReportComment, error) {
	if err := ValidateID("report_id", reportID); err != nil {
		return nil, err
	}
	if err := ValidateID("commenter_id", commenterID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	}
	payload := map[string]string{
		"report_id":    reportID,
		"commenter_id": commenterID,
		"content":      content,
	}
	data, err := r.Request(ctx, http.MethodPost, "report_comments", payload, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[ReportComment](data, "report_comments")
}

// GetReportComment fetches one comment.
func (r *Repository) GetReportComment(ctx context.Context, id string) (*ReportComment, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "report_comments", nil, "id=eq."+id+"&limit=1")
	if err != nil {
		return nil, err
	}
	return decodeOne[ReportComment](data, "report_comments")
}

// ListReportComments returns a report's comments oldest first.
func (r *Repository) ListReportComments(ctx context.Context, reportID string) ([]ReportComment, error) {
	if err := ValidateID("report_id", reportID); err != nil {
		return nil, err
	}
	query := "report_id=eq." + reportID + "&order=" + url.QueryEscape("created_at.asc")
	data, err := r.Request(ctx, http.MethodGet, "report_comments", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[ReportComment](data, "report_comments")
}

// UpdateReportComment replaces a comment's content.
func (r *Repository) UpdateReportComment(ctx context.Context, id, content string) (*ReportComment, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	}
	data, err := r.Request(ctx, http.MethodPatch, "report_comments", map[string]string{"content": content}, "id=eq."+id)
	if err != nil {
		return nil, err
	}
	return decodeOne[ReportComment](data, "report_comments")
}

// DeleteReportComment removes a comment.
func (r *Repository) DeleteReportComment(ctx context.Context, id string) error {
	if err := ValidateID("id", id); err != nil {
		return err
	}
	data, err := r.Request(ctx, http.MethodDelete, "report_comments", nil, "id=eq."+id)
	if err != nil {
		return err
	}
	if _, err := decodeOne[ReportComment](data, "report_comments"); err != nil {
		return err
	}
	return nil
}
