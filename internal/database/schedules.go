package database

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Schedule is a shoot-day or production event within a project.
type Schedule struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScheduleCreate is the insert payload for a schedule entry.
type ScheduleCreate struct {
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedBy   string    `json:"created_by"`
}

// ScheduleUpdate carries partial schedule changes.
type ScheduleUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

func (c ScheduleCreate) validate() error {
	if err := ValidateID("project_id", c.ProjectID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if c.StartTime.IsZero() || c.EndTime.IsZero() {
		return fmt.Errorf("%w: start_time and end_time are required", ErrInvalidInput)
	}
	if c.EndTime.Before(c.StartTime) {
		return fmt.Errorf("%w: end_time cannot precede start_time", ErrInvalidInput)
	}
	return ValidateID("created_by", c.CreatedBy)
}

// CreateSchedule inserts a schedule entry.
func (r *Repository) CreateSchedule(ctx context.Context, create ScheduleCreate) (*Schedule, error) {
	if err := create.validate(); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodPost, "schedules", create, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[Schedule](data, "schedules")
}

// GetSchedule fetches one schedule entry.
func (r *Repository) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "schedules", nil, "id=eq."+id+"&limit=1")
	if err != nil {
		return nil, err
	}
	return decodeOne[Schedule](data, "schedules")
}

// ListSchedulesByProject returns a project's schedule in chronological order.
func (r *Repository) ListSchedulesByProject(ctx context.Context, projectID string) ([]Schedule, error) {
	if err := ValidateID("project_id", projectID); err != nil {
		return nil, err
	}
	query := "project_id=eq." + projectID + "&order=" + url.QueryEscape("start_time.asc")
	data, err := r.Request(ctx, http.MethodGet, "schedules", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Schedule](data, "schedules")
}

// ListSchedulesForProjects returns schedule entries across the given
// projects. An empty project set short-circuits without a query.
func (r *Repository) ListSchedulesForProjects(ctx context.Context, projectIDs []string) ([]Schedule, error) {
	if len(projectIDs) == 0 {
		return []Schedule{}, nil
	}
	query := "project_id=" + inList(projectIDs) + "&order=" + url.QueryEscape("start_time.asc")
	data, err := r.Request(ctx, http.MethodGet, "schedules", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Schedule](data, "schedules")
}

// UpdateSchedule applies a partial update and returns the updated row.
func (r *Repository) UpdateSchedule(ctx context.Context, id string, update ScheduleUpdate) (*Schedule, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodPatch, "schedules", update, "id=eq."+id)
	if err != nil {
		return nil, err
	}
	return decodeOne[Schedule](data, "schedules")
}

// DeleteSchedule removes a schedule entry.
func (r *Repository) DeleteSchedule(ctx context.Context, id string) error {
	if err := ValidateID("id", id); err != nil {
		return err
	}
	data, err := r.Request(ctx, http.MethodDelete, "schedules", nil, "id=eq."+id)
	if err != nil {
		return err
	}
	if _, err := decodeOne[Schedule](data, "schedules"); err != nil {
		return err
	}
	return nil
}
