package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AuthClient handles GoTrue operations. User-facing sign-in happens in the
// web client against the platform directly; this service only resolves
// tokens and performs admin user management with the service key.
type AuthClient struct {
	client *Client
}

// User is the identity record held by the auth provider. The application
// user record lives in the profiles table.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// GetUser resolves an access token to its identity.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := a.client.do(ctx, http.MethodGet, a.client.authURL+"/user", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(resp.Body, resp.StatusCode)
	}
	var user User
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

// AdminCreateUserRequest creates a confirmed user through the admin API.
type AdminCreateUserRequest struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	EmailConfirm bool           `json:"email_confirm"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// AdminCreateUser provisions a new identity. The profiles row is created by
// the signup trigger in the database.
func (a *AuthClient) AdminCreateUser(ctx context.Context, req AdminCreateUserRequest) (*User, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	resp, err := a.client.do(ctx, http.MethodPost, a.client.authURL+"/admin/users", body, nil, a.client.serviceKey)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(resp.Body, resp.StatusCode)
	}
	var user User
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

// AdminUpdateUserRequest carries partial identity updates.
type AdminUpdateUserRequest struct {
	Email        string         `json:"email,omitempty"`
	Password     string         `json:"password,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// AdminUpdateUser updates an identity, typically to cascade an email change.
func (a *AuthClient) AdminUpdateUser(ctx context.Context, userID string, req AdminUpdateUserRequest) (*User, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	resp, err := a.client.do(ctx, http.MethodPut, a.client.authURL+"/admin/users/"+userID, body, nil, a.client.serviceKey)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(resp.Body, resp.StatusCode)
	}
	var user User
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

// AdminDeleteUser removes an identity. Profile deletion cascades from the
// foreign key on profiles.id.
func (a *AuthClient) AdminDeleteUser(ctx context.Context, userID string) error {
	resp, err := a.client.do(ctx, http.MethodDelete, a.client.authURL+"/admin/users/"+userID, nil, nil, a.client.serviceKey)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return parseError(resp.Body, resp.StatusCode)
	}
	return nil
}
