package database

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// File types recorded in metadata.
const (
	FileTypeScript    = "script"
	FileTypeContract  = "contract"
	FileTypeCallSheet = "call_sheet"
	FileTypeOther     = "other"
)

// FileTypes lists the valid file_type values.
var FileTypes = []string{FileTypeScript, FileTypeContract, FileTypeCallSheet, FileTypeOther}

// ProjectFile is file metadata; the stored object lives in the storage
// bucket under StoragePath.
type ProjectFile struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	MimeType    string    `json:"mime_type,omitempty"`
	URL         string    `json:"url"`
	StoragePath string    `json:"storage_path"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectFileCreate is the insert payload for file metadata.
type ProjectFileCreate struct {
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	MimeType    string `json:"mime_type,omitempty"`
	URL         string `json:"url"`
	StoragePath string `json:"storage_path"`
	UploadedBy  string `json:"uploaded_by"`
}

func (c ProjectFileCreate) validate() error {
	if err := ValidateID("project_id", c.ProjectID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if err := ValidateEnum("file_type", c.FileType, FileTypes); err != nil {
		return err
	}
	if c.FileSize < 0 {
		return fmt.Errorf("%w: file_size cannot be negative", ErrInvalidInput)
	}
	return ValidateID("uploaded_by", c.UploadedBy)
}

// ProjectFileUpdate carries metadata changes. The stored object and its
// URL are immutable; re-upload to replace content.
type ProjectFileUpdate struct {
	Name     *string `json:"name,omitempty"`
	FileType *string `json:"file_type,omitempty"`
}

func (u ProjectFileUpdate) validate() error {
	if u.Name == nil && u.FileType == nil {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if u.FileType != nil {
		return ValidateEnum("file_type", *u.FileType, FileTypes)
	}
	return nil
}

// CreateProjectFile inserts file metadata after the object is stored.
func (r *Repository) CreateProjectFile(ctx context.Context, create ProjectFileCreate) (*ProjectFile, error) {
	if err := create.validate(); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodPost, "project_files", create, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[ProjectFile](data, "project_files")
}

// GetProjectFile fetches one file row.
func (r *Repository) GetProjectFile(ctx context.Context, id string) (*ProjectFile, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "project_files", nil, "id=eq."+id+"&limit=1")
	if err != nil {
		return nil, err
	}
	return decodeOne[ProjectFile](data, "project_files")
}

// ListProjectFiles returns a project's files, newest first.
func (r *Repository) ListProjectFiles(ctx context.Context, projectID string) ([]ProjectFile, error) {
	if err := ValidateID("project_id", projectID); err != nil {
		return nil, err
	}
	query := "project_id=eq." + projectID + "&order=" + url.QueryEscape("created_at.desc")
	data, err := r.Request(ctx, http.MethodGet, "project_files", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[ProjectFile](data, "project_files")
}

// UpdateProjectFile patches file metadata.
func (r *Repository) UpdateProjectFile(ctx context.Context, id string, update ProjectFileUpdate) (*ProjectFile, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	if err := update.validate(); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodPatch, "project_files", update, "id=eq."+id)
	if err != nil {
		return nil, err
	}
	return decodeOne[ProjectFile](data, "project_files")
}

// DeleteProjectFile removes the metadata row. The caller is responsible for
// the best-effort object deletion that precedes it.
func (r *Repository) DeleteProjectFile(ctx context.Context, id string) error {
	if err := ValidateID("id", id); err != nil {
		return err
	}
	data, err := r.Request(ctx, http.MethodDelete, "project_files", nil, "id=eq."+id)
	if err != nil {
		return err
	}
	if _, err := decodeOne[ProjectFile](data, "project_files"); err != nil {
		return err
	}
	return nil
}
