package database

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Notification types and severities used by server-side fan-out.
const (
	NotificationTypeReportSubmitted = "report_submitted"

	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Notification targets one profile.
type Notification struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Type              string    `json:"type"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	RelatedEntityID   *string   `json:"related_entity_id,omitempty"`
	RelatedEntityType *string   `json:"related_entity_type,omitempty"`
	Severity          string    `json:"severity"`
	IsRead            bool      `json:"is_read"`
	ActionRequired    bool      `json:"action_required"`
	Link              string    `json:"link,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NotificationCreate is the insert payload for one notification row.
type NotificationCreate struct {
	UserID            string  `json:"user_id"`
	Type              string  `json:"type"`
	Title             string  `json:"title"`
	Message           string  `json:"message"`
	RelatedEntityID   *string `json:"related_entity_id,omitempty"`
	RelatedEntityType *string `json:"related_entity_type,omitempty"`
	Severity          string  `json:"severity"`
	ActionRequired    bool    `json:"action_required"`
	Link              string  `json:"link,omitempty"`
}

// CreateNotifications inserts a batch of rows in one request. An empty
// batch writes nothing.
func (r *Repository) CreateNotifications(ctx context.Context, batch []NotificationCreate) error {
	if len(batch) == 0 {
		return nil
	}
	for _, n := range batch {
		if err := ValidateID("user_id", n.UserID); err != nil {
			return err
		}
		if n.Type == "" {
			return fmt.Errorf("%w: notification type is required", ErrInvalidInput)
		}
	}
	_, err := r.Request(ctx, http.MethodPost, "notifications", batch, "")
	return err
}

// ListNotificationsFor returns the user's notifications, newest first.
func (r *Repository) ListNotificationsFor(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	if err := ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	query := "user_id=eq." + userID
	if unreadOnly {
		query += "&is_read=eq.false"
	}
	query += "&order=" + url.QueryEscape("created_at.desc")
	data, err := r.Request(ctx, http.MethodGet, "notifications", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Notification](data, "notifications")
}

// MarkNotificationRead flips is_read for one notification owned by userID.
// The ownership filter keeps one user from reading another's notifications.
func (r *Repository) MarkNotificationRead(ctx context.Context, id, userID string) (*Notification, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	if err := ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	query := "id=eq." + id + "&user_id=eq." + userID
	data, err := r.Request(ctx, http.MethodPatch, "notifications", map[string]bool{"is_read": true}, query)
	if err != nil {
		return nil, err
	}
	return decodeOne[Notification](data, "notifications")
}

// MarkAllNotificationsRead flips is_read for every unread notification the
// user has. Set-based and idempotent.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	if err := ValidateID("user_id", userID); err != nil {
		return err
	}
	query := "user_id=eq." + userID + "&is_read=eq.false"
	_, err := r.Request(ctx, http.MethodPatch, "notifications", map[string]bool{"is_read": true}, query)
	return err
}
