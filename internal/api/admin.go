package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/errors"
	"github.com/backlot-app/backlot/internal/httputil"
	"github.com/backlot-app/backlot/internal/supabase"
)

type adminCreateUserRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// handleAdminCreateUser provisions an identity and aligns the profile row the
// signup trigger created with the requested role and department.
func (a *API) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	if err := a.auth.RequireAdmin(caller); err != nil {
		a.writeError(w, r, err)
		return
	}

	var req adminCreateUserRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		httputil.BadRequest(w, "email, password, full_name and role are required")
		return
	}
	if err := database.ValidateEnum("role", req.Role, database.Roles); err != nil {
		httputil.BadRequest(w, "invalid role: "+req.Role)
		return
	}

	user, err := a.supa.Auth().AdminCreateUser(r.Context(), supabase.AdminCreateUserRequest{
		Email:        req.Email,
		Password:     req.Password,
		EmailConfirm: true,
		UserMetadata: map[string]any{"full_name": req.FullName},
	})
	if err != nil {
		a.writeError(w, r, errors.Upstream("failed to create user", err))
		return
	}

	// The trigger provisions the profile with the crew default; promote it
	// to the requested role.
	role := req.Role
	update := database.ProfileUpdate{FullName: &req.FullName, Role: &role}
	if req.Department != "" {
		update.Department = &req.Department
	}
	profile, err := a.repo.UpdateProfile(r.Context(), user.ID, update)
	if err != nil {
		a.writeError(w, r, errors.Upstream("user created but profile update failed", err))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, profile)
}

func (a *API) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	if err := a.auth.RequireAdmin(caller); err != nil {
		a.writeError(w, r, err)
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		profiles, err := a.repo.SearchProfiles(r.Context(), q)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, profiles)
		return
	}
	profiles, err := a.repo.ListProfiles(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profiles)
}

type adminUpdateUserResponse struct {
	*database.Profile
	Warning string `json:"warning,omitempty"`
}

// handleAdminUpdateUser applies a partial profile update. An email change is
// cascaded to the identity record; if that second write fails the profile
// change stands and the response carries a warning instead of an error.
func (a *API) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	if err := a.auth.RequireAdmin(caller); err != nil {
		a.writeError(w, r, err)
		return
	}
	targetID := mux.Vars(r)["id"]

	var update database.ProfileUpdate
	if !httputil.DecodeJSON(w, r, &update) {
		return
	}
	profile, err := a.repo.UpdateProfile(r.Context(), targetID, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	resp := adminUpdateUserResponse{Profile: profile}
	if update.Email != nil && *update.Email != "" {
		_, err := a.supa.Auth().AdminUpdateUser(r.Context(), targetID, supabase.AdminUpdateUserRequest{Email: *update.Email})
		if err != nil {
			a.logger.WithContext(r.Context()).Warn().
				Err(err).
				Str("target_id", targetID).
				Msg("identity email update failed after profile update")
			resp.Warning = "profile updated but login email could not be changed"
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (a *API) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	targetID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeUserDelete(r.Context(), caller, targetID); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.supa.Auth().AdminDeleteUser(r.Context(), targetID); err != nil {
		a.writeError(w, r, errors.Upstream("failed to delete user", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) handleGetOwnProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, caller.Profile)
}

// handleUpdateOwnProfile lets any authenticated user change their own name,
// department, or avatar. Role changes stay admin-only.
func (a *API) handleUpdateOwnProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	var update database.ProfileUpdate
	if !httputil.DecodeJSON(w, r, &update) {
		return
	}
	if update.Role != nil && !caller.IsAdmin() {
		httputil.Forbidden(w, "only admins can change roles")
		return
	}
	update.Email = nil
	profile, err := a.repo.UpdateProfile(r.Context(), caller.UserID, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}
