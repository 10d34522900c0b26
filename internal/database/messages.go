package database

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Conversation groups messages between a fixed participant set, optionally
// tied to a project.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	ProjectID    *string   `json:"project_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is one entry in a conversation. Messages are never deleted.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ResolveParticipants deduplicates recipients and folds in the sender,
// returning the participant set in sorted order.
func ResolveParticipants(senderID string, recipientIDs []string) []string {
	seen := map[string]struct{}{senderID: {}}
	out := []string{senderID}
	for _, id := range recipientIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FindDirectConversation searches for an existing conversation whose
// participant set equals the given pair (contains AND contained-by) and
// whose project matches, including both being absent. Returns nil when no
// such conversation exists.
func (r *Repository) FindDirectConversation(ctx context.Context, participants []string, projectID *string) (*Conversation, error) {
	if len(participants) != 2 {
		return nil, fmt.Errorf("%w: direct conversation lookup requires exactly two participants", ErrInvalidInput)
	}
	for _, id := range participants {
		if err := ValidateID("participant", id); err != nil {
			return nil, err
		}
	}

	set := url.QueryEscape(uuidSet(participants))
	query := "participants=cs." + set + "&participants=cd." + set
	if projectID != nil {
		if err := ValidateID("project_id", *projectID); err != nil {
			return nil, err
		}
		query += "&project_id=eq." + *projectID
	} else {
		query += "&project_id=is.null"
	}
	query += "&limit=1"

	data, err := r.Request(ctx, http.MethodGet, "conversations", nil, query)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[Conversation](data, "conversations")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// CreateConversation inserts a conversation for the participant set. A
// single-member set is valid: it is a user's notes-to-self thread.
func (r *Repository) CreateConversation(ctx context.Context, participants []string, projectID *string) (*Conversation, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: a conversation needs at least one participant", ErrInvalidInput)
	}
	for _, id := range participants {
		if err := ValidateID("participant", id); err != nil {
			return nil, err
		}
	}
	payload := map[string]any{"participants": participants}
	if projectID != nil {
		if err := ValidateID("project_id", *projectID); err != nil {
			return nil, err
		}
		payload["project_id"] = *projectID
	}
	data, err := r.Request(ctx, http.MethodPost, "conversations", payload, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[Conversation](data, "conversations")
}

// GetConversation fetches one conversation.
func (r *Repository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "conversations", nil, "id=eq."+id+"&limit=1")
	if err != nil {
		return nil, err
	}
	return decodeOne[Conversation](data, "conversations")
}

// ListConversationsFor returns every conversation the user participates in,
// newest first.
func (r *Repository) ListConversationsFor(ctx context.Context, userID string) ([]Conversation, error) {
	if err := ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	query := "participants=cs." + url.QueryEscape(uuidSet([]string{userID})) + "&order=" + url.QueryEscape("created_at.desc")
	data, err := r.Request(ctx, http.MethodGet, "conversations", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Conversation](data, "conversations")
}

// InsertMessage appends a message to a conversation.
func (r *Repository) InsertMessage(ctx context.Context, conversationID, senderID, content string) (*Message, error) {
	if err := ValidateID("conversation_id", conversationID); err != nil {
		return nil, err
	}
	if err := ValidateID("sender_id", senderID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	}
	payload := map[string]any{
		"conversation_id": conversationID,
		"sender_id":       senderID,
		"content":         content,
	}
	data, err := r.Request(ctx, http.MethodPost, "messages", payload, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[Message](data, "messages")
}

// ListMessages returns a conversation's messages oldest first.
func (r *Repository) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	if err := ValidateID("conversation_id", conversationID); err != nil {
		return nil, err
	}
	query := "conversation_id=eq." + conversationID + "&order=" + url.QueryEscape("created_at.asc")
	data, err := r.Request(ctx, http.MethodGet, "messages", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Message](data, "messages")
}

// LastMessage returns the newest message in a conversation, or nil when the
// conversation is empty.
func (r *Repository) LastMessage(ctx context.Context, conversationID string) (*Message, error) {
	if err := ValidateID("conversation_id", conversationID); err != nil {
		return nil, err
	}
	query := "conversation_id=eq." + conversationID + "&order=" + url.QueryEscape("created_at.desc") + "&limit=1"
	data, err := r.Request(ctx, http.MethodGet, "messages", nil, query)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[Message](data, "messages")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// CountUnread returns how many messages in the conversation the user has
// not read (excluding their own).
func (r *Repository) CountUnread(ctx context.Context, conversationID, userID string) (int, error) {
	if err := ValidateID("conversation_id", conversationID); err != nil {
		return 0, err
	}
	if err := ValidateID("user_id", userID); err != nil {
		return 0, err
	}
	query := "conversation_id=eq." + conversationID + "&sender_id=neq." + userID + "&is_read=eq.false&select=id"
	data, err := r.Request(ctx, http.MethodGet, "messages", nil, query)
	if err != nil {
		return 0, err
	}
	rows, err := decodeRows[struct {
		ID string `json:"id"`
	}](data, "messages")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// MarkConversationRead flips is_read on every unread message in the
// conversation not sent by the user. One set-based update; repeating the
// call matches zero rows and changes nothing.
func (r *Repository) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	if err := ValidateID("conversation_id", conversationID); err != nil {
		return err
	}
	if err := ValidateID("user_id", userID); err != nil {
		return err
	}
	query := "conversation_id=eq." + conversationID + "&sender_id=neq." + userID + "&is_read=eq.false"
	_, err := r.Request(ctx, http.MethodPatch, "messages", map[string]bool{"is_read": true}, query)
	return err
}
