package database

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Project statuses.
const (
	ProjectStatusPlanning       = "planning"
	ProjectStatusPreProduction  = "pre_production"
	ProjectStatusProduction     = "production"
	ProjectStatusPostProduction = "post_production"
	ProjectStatusCompleted      = "completed"
)

var projectStatuses = []string{
	ProjectStatusPlanning,
	ProjectStatusPreProduction,
	ProjectStatusProduction,
	ProjectStatusPostProduction,
	ProjectStatusCompleted,
}

// MemberRoleProjectManager is the membership role label whose holders are
// included in report notification fan-out.
const MemberRoleProjectManager = "Project Manager"

// Project is the root entity every task, schedule, expense, and file
// transitively belongs to.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Budget      *float64  `json:"budget,omitempty"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	StartDate   *string   `json:"start_date,omitempty"`
	EndDate     *string   `json:"end_date,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectMember joins a profile to a project with a free-form role label.
type ProjectMember struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectCreate is the insert payload for a project.
type ProjectCreate struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Budget      *float64 `json:"budget,omitempty"`
	Status      string   `json:"status"`
	CreatedBy   string   `json:"created_by"`
	StartDate   *string  `json:"start_date,omitempty"`
	EndDate     *string  `json:"end_date,omitempty"`
}

// ProjectUpdate carries partial project changes.
type ProjectUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Budget      *float64 `json:"budget,omitempty"`
	Status      *string  `json:"status,omitempty"`
	StartDate   *string  `json:"start_date,omitempty"`
	EndDate     *string  `json:"end_date,omitempty"`
}

func (c ProjectCreate) validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if err := ValidateID("created_by", c.CreatedBy); err != nil {
		return err
	}
	if c.Status != "" {
		return ValidateEnum("status", c.Status, projectStatuses)
	}
	return nil
}

// CreateProject inserts a project. Status defaults to planning.
func (r *Repository) CreateProject(ctx context.Context, create ProjectCreate) (*Project, error) {
	if err := create.validate(); err != nil {
		return nil, err
	}
	if create.Status == "" {
		create.Status = ProjectStatusPlanning
	}
	data, err := r.Request(ctx, http.MethodPost, "projects", create, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[Project](data, "projects")
}

// GetProject fetches one project.
func (r *Repository) GetProject(ctx context.Context, id string) (*Project, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "projects", nil, "id=eq."+id+"&limit=1")
	if err != nil {
		return nil, err
	}
	return decodeOne[Project](data, "projects")
}

// ListProjects returns all projects, newest first. Admin-only callers.
func (r *Repository) ListProjects(ctx context.Context) ([]Project, error) {
	data, err := r.Request(ctx, http.MethodGet, "projects", nil, "order=created_at.desc")
	if err != nil {
		return nil, err
	}
	return decodeRows[Project](data, "projects")
}

// ListProjectsByID returns the projects with the given ids, newest first.
// An empty id set short-circuits without a query.
func (r *Repository) ListProjectsByID(ctx context.Context, ids []string) ([]Project, error) {
	if len(ids) == 0 {
		return []Project{}, nil
	}
	query := "id=" + inList(ids) + "&order=created_at.desc"
	data, err := r.Request(ctx, http.MethodGet, "projects", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Project](data, "projects")
}

// UpdateProject applies a partial update and returns the updated row.
func (r *Repository) UpdateProject(ctx context.Context, id string, update ProjectUpdate) (*Project, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	if update.Status != nil {
		if err := ValidateEnum("status", *update.Status, projectStatuses); err != nil {
			return nil, err
		}
	}
	data, err := r.Request(ctx, http.MethodPatch, "projects", update, "id=eq."+id)
	if err != nil {
		return nil, err
	}
	return decodeOne[Project](data, "projects")
}

// DeleteProject removes a project; child rows cascade in the database.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	if err := ValidateID("id", id); err != nil {
		return err
	}
	data, err := r.Request(ctx, http.MethodDelete, "projects", nil, "id=eq."+id)
	if err != nil {
		return err
	}
	if _, err := decodeOne[Project](data, "projects"); err != nil {
		return err
	}
	return nil
}

// AccessibleProjectIDs resolves the project-id set the user can see: the
// projects they created union the projects they are a member of.
func (r *Repository) AccessibleProjectIDs(ctx context.Context, userID string) ([]string, error) {
	if err := ValidateID("user_id", userID); err != nil {
		return nil, err
	}

	ownedData, err := r.Request(ctx, http.MethodGet, "projects", nil, "created_by=eq."+userID+"&select=id")
	if err != nil {
		return nil, err
	}
	owned, err := decodeRows[struct {
		ID string `json:"id"`
	}](ownedData, "projects")
	if err != nil {
		return nil, err
	}

	memberData, err := r.Request(ctx, http.MethodGet, "project_members", nil, "user_id=eq."+userID+"&select=project_id")
	if err != nil {
		return nil, err
	}
	member, err := decodeRows[struct {
		ProjectID string `json:"project_id"`
	}](memberData, "project_members")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned)+len(member))
	ids := make([]string, 0, len(owned)+len(member))
	for _, row := range owned {
		if _, ok := seen[row.ID]; !ok {
			seen[row.ID] = struct{}{}
			ids = append(ids, row.ID)
		}
	}
	for _, row := range member {
		if _, ok := seen[row.ProjectID]; !ok {
			seen[row.ProjectID] = struct{}{}
			ids = append(ids, row.ProjectID)
		}
	}
	return ids, nil
}

// IsProjectMember reports whether the user appears in project_members.
func (r *Repository) IsProjectMember(ctx context.Context, projectID, userID string) (bool, error) {
	if err := ValidateID("project_id", projectID); err != nil {
		return false, err
	}
	if err := ValidateID("user_id", userID); err != nil {
		return false, err
	}
	query := "project_id=eq." + projectID + "&user_id=eq." + userID + "&select=id&limit=1"
	data, err := r.Request(ctx, http.MethodGet, "project_members", nil, query)
	if err != nil {
		return false, err
	}
	rows, err := decodeRows[struct {
		ID string `json:"id"`
	}](data, "project_members")
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// ListProjectMembers returns the membership rows for a project.
func (r *Repository) ListProjectMembers(ctx context.Context, projectID string) ([]ProjectMember, error) {
	if err := ValidateID("project_id", projectID); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "project_members", nil, "project_id=eq."+projectID)
	if err != nil {
		return nil, err
	}
	return decodeRows[ProjectMember](data, "project_members")
}

// ListProjectMembersWithRole returns memberships carrying the given role label.
func (r *Repository) ListProjectMembersWithRole(ctx context.Context, projectID, roleLabel string) ([]ProjectMember, error) {
	if err := ValidateID("project_id", projectID); err != nil {
		return nil, err
	}
	query := "project_id=eq." + projectID + "&role=eq." + strings.ReplaceAll(roleLabel, " ", "%20")
	data, err := r.Request(ctx, http.MethodGet, "project_members", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[ProjectMember](data, "project_members")
}

// AddProjectMember inserts a membership row.
func (r *Repository) AddProjectMember(ctx context.Context, projectID, userID, roleLabel string) (*ProjectMember, error) {
	if err := ValidateID("project_id", projectID); err != nil {
		return nil, err
	}
	if err := ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	payload := map[string]string{
		"project_id": projectID,
		"user_id":    userID,
	}
	if roleLabel != "" {
		payload["role"] = roleLabel
	}
	data, err := r.Request(ctx, http.MethodPost, "project_members", payload, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[ProjectMember](data, "project_members")
}

// RemoveProjectMember deletes a membership row.
func (r *Repository) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	if err := ValidateID("project_id", projectID); err != nil {
		return err
	}
	if err := ValidateID("user_id", userID); err != nil {
		return err
	}
	query := "project_id=eq." + projectID + "&user_id=eq." + userID
	data, err := r.Request(ctx, http.MethodDelete, "project_members", nil, query)
	if err != nil {
		return err
	}
	if _, err := decodeOne[ProjectMember](data, "project_members"); err != nil {
		return err
	}
	return nil
}
