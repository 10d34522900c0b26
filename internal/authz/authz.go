// Package authz centralizes the authorization rules so handlers never
// re-implement role checks. Every check queries current role and membership;
// there is intentionally no caching, so role changes take effect immediately.
package authz

import (
	"context"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/errors"
)

// Role is the application role carried by a profile.
type Role string

const (
	RoleAdmin          Role = database.RoleAdmin
	RoleDepartmentHead Role = database.RoleDepartmentHead
	RoleCrew           Role = database.RoleCrew
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch s {
	case database.RoleAdmin:
		return RoleAdmin, nil
	case database.RoleDepartmentHead:
		return RoleDepartmentHead, nil
	case database.RoleCrew:
		return RoleCrew, nil
	}
	return "", errors.Validation("role must be one of admin, department_head, crew")
}

// Caller is the resolved identity for one request.
type Caller struct {
	UserID  string
	Profile *database.Profile
}

// Role returns the caller's role, or empty when unresolved.
func (c *Caller) Role() Role {
	if c == nil || c.Profile == nil {
		return ""
	}
	return Role(c.Profile.Role)
}

// IsAdmin reports whether the caller holds the admin role.
func (c *Caller) IsAdmin() bool { return c.Role() == RoleAdmin }

// IsDepartmentHead reports whether the caller holds the department_head role.
func (c *Caller) IsDepartmentHead() bool { return c.Role() == RoleDepartmentHead }

// Authorizer evaluates access rules against current database state.
type Authorizer struct {
	repo *database.Repository
}

// New creates an Authorizer over the repository.
func New(repo *database.Repository) *Authorizer {
	return &Authorizer{repo: repo}
}

// ResolveCaller loads the caller's profile for userID. Returns
// Unauthenticated when userID is empty or has no profile.
func (a *Authorizer) ResolveCaller(ctx context.Context, userID string) (*Caller, error) {
	if userID == "" {
		return nil, errors.Unauthenticated("")
	}
	profile, err := a.repo.GetProfile(ctx, userID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, errors.Unauthenticated("no profile for authenticated user")
		}
		return nil, errors.Upstream("", err)
	}
	return &Caller{UserID: userID, Profile: profile}, nil
}

// RequireAdmin denies callers without the admin role.
func (a *Authorizer) RequireAdmin(caller *Caller) error {
	if caller == nil || caller.Profile == nil {
		return errors.Unauthenticated("")
	}
	if !caller.IsAdmin() {
		return errors.Forbidden("admin access required")
	}
	return nil
}

// AuthorizeUserDelete applies the self-protection and last-admin rules on
// top of the admin requirement.
func (a *Authorizer) AuthorizeUserDelete(ctx context.Context, caller *Caller, targetID string) error {
	if err := a.RequireAdmin(caller); err != nil {
		return err
	}
	if targetID == caller.UserID {
		return errors.InvalidOperation("cannot delete your own account")
	}

	target, err := a.repo.GetProfile(ctx, targetID)
	if err != nil {
		if database.IsNotFound(err) {
			return errors.NotFound("user")
		}
		return errors.Upstream("", err)
	}
	if target.Role == database.RoleAdmin {
		count, err := a.repo.CountAdmins(ctx)
		if err != nil {
			return errors.Upstream("", err)
		}
		if count <= 1 {
			return errors.InvalidOperation("cannot delete the last admin account")
		}
	}
	return nil
}

// AuthorizeProjectAccess allows the project's creator, its members, and
// admins; everyone else is forbidden.
func (a *Authorizer) AuthorizeProjectAccess(ctx context.Context, caller *Caller, projectID string) error {
	if caller == nil || caller.Profile == nil {
		return errors.Unauthenticated("")
	}
	if caller.IsAdmin() {
		return nil
	}

	project, err := a.repo.GetProject(ctx, projectID)
	if err != nil {
		if database.IsNotFound(err) {
			return errors.NotFound("project")
		}
		return errors.Upstream("", err)
	}
	if project.CreatedBy == caller.UserID {
		return nil
	}

	member, err := a.repo.IsProjectMember(ctx, projectID, caller.UserID)
	if err != nil {
		return errors.Upstream("", err)
	}
	if !member {
		return errors.Forbidden("not a member of this project")
	}
	return nil
}

// AuthorizeTaskAccess extends project access with the assignee rule: a
// task's assignee may see and update it even outside their own projects.
func (a *Authorizer) AuthorizeTaskAccess(ctx context.Context, caller *Caller, task *database.Task) error {
	if caller == nil || caller.Profile == nil {
		return errors.Unauthenticated("")
	}
	if task.AssignedTo != nil && *task.AssignedTo == caller.UserID {
		return nil
	}
	return a.AuthorizeProjectAccess(ctx, caller, task.ProjectID)
}

// AuthorizeOwnerOrAdmin allows the actor recorded on the row or an admin.
func (a *Authorizer) AuthorizeOwnerOrAdmin(caller *Caller, ownerID string) error {
	if caller == nil || caller.Profile == nil {
		return errors.Unauthenticated("")
	}
	if caller.IsAdmin() || caller.UserID == ownerID {
		return nil
	}
	return errors.Forbidden("")
}
