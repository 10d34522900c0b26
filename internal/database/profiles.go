package database

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Application roles. Profiles are provisioned by the signup trigger with
// role crew unless metadata says otherwise.
const (
	RoleAdmin          = "admin"
	RoleDepartmentHead = "department_head"
	RoleCrew           = "crew"
)

// Roles lists every valid role value.
var Roles = []string{RoleAdmin, RoleDepartmentHead, RoleCrew}

// Profile is the application-level user record, one per authenticated identity.
type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileUpdate carries partial profile changes; nil fields are untouched.
type ProfileUpdate struct {
	FullName   *string `json:"full_name,omitempty"`
	Role       *string `json:"role,omitempty"`
	Email      *string `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

func (u ProfileUpdate) validate() error {
	if u.FullName == nil && u.Role == nil && u.Email == nil && u.Department == nil && u.AvatarURL == nil {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if u.Role != nil {
		if err := ValidateEnum("role", *u.Role, Roles); err != nil {
			return err
		}
	}
	return nil
}

// GetProfile fetches one profile by user id.
func (r *Repository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "profiles", nil, "id=eq."+id+"&limit=1")
	if err != nil {
		return nil, err
	}
	return decodeOne[Profile](data, "profiles")
}

// ListProfiles returns every profile ordered by name.
func (r *Repository) ListProfiles(ctx context.Context) ([]Profile, error) {
	data, err := r.Request(ctx, http.MethodGet, "profiles", nil, "order=full_name.asc")
	if err != nil {
		return nil, err
	}
	return decodeRows[Profile](data, "profiles")
}

// ListProfilesByRole returns profiles with the given role.
func (r *Repository) ListProfilesByRole(ctx context.Context, role string) ([]Profile, error) {
	if err := ValidateEnum("role", role, Roles); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "profiles", nil, "role=eq."+role)
	if err != nil {
		return nil, err
	}
	return decodeRows[Profile](data, "profiles")
}

// CountAdmins returns the number of profiles with the admin role. The guard
// queries this on every admin deletion; freshness matters more than cost.
func (r *Repository) CountAdmins(ctx context.Context) (int, error) {
	data, err := r.Request(ctx, http.MethodGet, "profiles", nil, "role=eq."+RoleAdmin+"&select=id")
	if err != nil {
		return 0, err
	}
	rows, err := decodeRows[struct {
		ID string `json:"id"`
	}](data, "profiles")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// UpdateProfile applies a partial update and returns the updated row.
func (r *Repository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*Profile, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	if err := update.validate(); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodPatch, "profiles", update, "id=eq."+id)
	if err != nil {
		return nil, err
	}
	return decodeOne[Profile](data, "profiles")
}

// SearchProfiles returns profiles whose name or email matches the query.
func (r *Repository) SearchProfiles(ctx context.Context, q string) ([]Profile, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return r.ListProfiles(ctx)
	}
	pattern := url.QueryEscape("*" + q + "*")
	query := "or=(full_name.ilike." + pattern + ",email.ilike." + pattern + ")&order=full_name.asc"
	data, err := r.Request(ctx, http.MethodGet, "profiles", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Profile](data, "profiles")
}
