package database

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Task statuses and priorities.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"

	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

var (
	taskStatuses   = []string{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}
	taskPriorities = []string{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}
)

// Task belongs to one project and optionally one assignee.
type Task struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AssignedTo  *string   `json:"assigned_to,omitempty"`
	CreatedBy   string    `json:"created_by"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	DueDate     *string   `json:"due_date,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskCreate is the insert payload for a task.
type TaskCreate struct {
	ProjectID   string  `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	CreatedBy   string  `json:"created_by"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date,omitempty"`
}

// TaskUpdate carries partial task changes.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

func (c TaskCreate) validate() error {
	if err := ValidateID("project_id", c.ProjectID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if err := ValidateID("created_by", c.CreatedBy); err != nil {
		return err
	}
	if c.AssignedTo != nil {
		if err := ValidateID("assigned_to", *c.AssignedTo); err != nil {
			return err
		}
	}
	if c.Status != "" {
		if err := ValidateEnum("status", c.Status, taskStatuses); err != nil {
			return err
		}
	}
	if c.Priority != "" {
		if err := ValidateEnum("priority", c.Priority, taskPriorities); err != nil {
			return err
		}
	}
	return nil
}

func (u TaskUpdate) validate() error {
	if u.Status != nil {
		if err := ValidateEnum("status", *u.Status, taskStatuses); err != nil {
			return err
		}
	}
	if u.Priority != nil {
		if err := ValidateEnum("priority", *u.Priority, taskPriorities); err != nil {
			return err
		}
	}
	if u.AssignedTo != nil && *u.AssignedTo != "" {
		if err := ValidateID("assigned_to", *u.AssignedTo); err != nil {
			return err
		}
	}
	return nil
}

// CreateTask inserts a task. Status defaults to todo, priority to medium.
func (r *Repository) CreateTask(ctx context.Context, create TaskCreate) (*Task, error) {
	if err := create.validate(); err != nil {
		return nil, err
	}
	if create.Status == "" {
		create.Status = TaskStatusTodo
	}
	if create.Priority == "" {
		create.Priority = TaskPriorityMedium
	}
	data, err := r.Request(ctx, http.MethodPost, "tasks", create, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[Task](data, "tasks")
}

// GetTask fetches one task.
func (r *Repository) GetTask(ctx context.Context, id string) (*Task, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "tasks", nil, "id=eq."+id+"&limit=1")
	if err != nil {
		return nil, err
	}
	return decodeOne[Task](data, "tasks")
}

// ListTasksForProjects returns tasks belonging to the given projects.
// An empty project set short-circuits without a query.
func (r *Repository) ListTasksForProjects(ctx context.Context, projectIDs []string) ([]Task, error) {
	if len(projectIDs) == 0 {
		return []Task{}, nil
	}
	data, err := r.Request(ctx, http.MethodGet, "tasks", nil, "project_id="+inList(projectIDs))
	if err != nil {
		return nil, err
	}
	return decodeRows[Task](data, "tasks")
}

// ListTasksAssignedTo returns tasks assigned to the user, regardless of
// project visibility.
func (r *Repository) ListTasksAssignedTo(ctx context.Context, userID string) ([]Task, error) {
	if err := ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "tasks", nil, "assigned_to=eq."+userID)
	if err != nil {
		return nil, err
	}
	return decodeRows[Task](data, "tasks")
}

// UpdateTask applies a partial update and returns the updated row.
func (r *Repository) UpdateTask(ctx context.Context, id string, update TaskUpdate) (*Task, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	if err := update.validate(); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodPatch, "tasks", update, "id=eq."+id)
	if err != nil {
		return nil, err
	}
	return decodeOne[Task](data, "tasks")
}

// DeleteTask removes a task.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	if err := ValidateID("id", id); err != nil {
		return err
	}
	data, err := r.Request(ctx, http.MethodDelete, "tasks", nil, "id=eq."+id)
	if err != nil {
		return err
	}
	if _, err := decodeOne[Task](data, "tasks"); err != nil {
		return err
	}
	return nil
}
