package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/httputil"
)

// conversationView is a conversation enriched for the inbox listing.
type conversationView struct {
	database.Conversation
	LastMessage  *database.Message  `json:"last_message,omitempty"`
	UnreadCount  int                `json:"unread_count"`
	Participants []database.Profile `json:"participant_profiles,omitempty"`
	Project      *database.Project  `json:"project,omitempty"`
}

// handleListConversations returns the caller's inbox. Each conversation is
// enriched concurrently with its last message, the caller's unread count,
// participant profiles, and the project, when one is linked.
func (a *API) handleListConversations(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	conversations, err := a.repo.ListConversationsFor(r.Context(), caller.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	views := make([]conversationView, len(conversations))
	var wg sync.WaitGroup
	for i, conv := range conversations {
		views[i].Conversation = conv
		wg.Add(1)
		go func(i int, conv database.Conversation) {
			defer wg.Done()
			a.enrichConversation(r, &views[i], conv, caller.UserID)
		}(i, conv)
	}
	wg.Wait()
	httputil.WriteJSON(w, http.StatusOK, views)
}

// enrichConversation fills one inbox row. Lookup failures degrade the row
// rather than failing the listing.
func (a *API) enrichConversation(r *http.Request, view *conversationView, conv database.Conversation, userID string) {
	ctx := r.Context()
	log := a.logger.WithContext(ctx)

	if msg, err := a.repo.LastMessage(ctx, conv.ID); err == nil {
		view.LastMessage = msg
	} else if !database.IsNotFound(err) {
		log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("last message lookup failed")
	}

	if n, err := a.repo.CountUnread(ctx, conv.ID, userID); err == nil {
		view.UnreadCount = n
	} else {
		log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("unread count failed")
	}

	for _, pid := range conv.Participants {
		if pid == userID {
			continue
		}
		if profile, err := a.repo.GetProfile(ctx, pid); err == nil {
			view.Participants = append(view.Participants, *profile)
		}
	}

	if conv.ProjectID != nil {
		if project, err := a.repo.GetProject(ctx, *conv.ProjectID); err == nil {
			view.Project = project
		}
	}
}

type sendMessageRequest struct {
	RecipientIDs []string `json:"recipient_ids"`
	ProjectID    *string  `json:"project_id,omitempty"`
	Content      string   `json:"content"`
}

// handleSendMessage starts or continues a conversation. For a two-party
// participant set an existing conversation with the same set and project is
// reused; solo and group sets always create a new conversation.
func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if len(req.RecipientIDs) == 0 {
		httputil.BadRequest(w, "recipient_ids is required")
		return
	}
	if req.Content == "" {
		httputil.BadRequest(w, "content is required")
		return
	}

	participants := database.ResolveParticipants(caller.UserID, req.RecipientIDs)

	// Only two-party sets reuse an existing conversation. A solo set
	// (sender messaging themself) or a group always starts a new one.
	var conversation *database.Conversation
	var err error
	if len(participants) == 2 {
		conversation, err = a.repo.FindDirectConversation(r.Context(), participants, req.ProjectID)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	if conversation == nil {
		conversation, err = a.repo.CreateConversation(r.Context(), participants, req.ProjectID)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
	}

	message, err := a.repo.InsertMessage(r.Context(), conversation.ID, caller.UserID, req.Content)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"conversation": conversation,
		"message":      message,
	})
}

// handleGetConversation returns a conversation with its full message
// history, oldest first.
func (a *API) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	conversation, ok2 := a.loadConversationFor(w, r, caller.UserID)
	if !ok2 {
		return
	}
	messages, err := a.repo.ListMessages(r.Context(), conversation.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"conversation": conversation,
		"messages":     messages,
	})
}

type appendMessageRequest struct {
	Content string `json:"content"`
}

func (a *API) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	conversation, ok2 := a.loadConversationFor(w, r, caller.UserID)
	if !ok2 {
		return
	}
	var req appendMessageRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		httputil.BadRequest(w, "content is required")
		return
	}
	message, err := a.repo.InsertMessage(r.Context(), conversation.ID, caller.UserID, req.Content)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, message)
}

// handleMarkConversationRead marks every message the caller has not sent as
// read. Set-based on the server, so repeating it is a no-op.
func (a *API) handleMarkConversationRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	conversation, ok2 := a.loadConversationFor(w, r, caller.UserID)
	if !ok2 {
		return
	}
	if err := a.repo.MarkConversationRead(r.Context(), conversation.ID, caller.UserID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// loadConversationFor fetches the conversation from the route and verifies
// the user participates in it, writing the error response on failure.
func (a *API) loadConversationFor(w http.ResponseWriter, r *http.Request, userID string) (*database.Conversation, bool) {
	conversation, err := a.repo.GetConversation(r.Context(), mux.Vars(r)["conversationId"])
	if err != nil {
		a.writeError(w, r, err)
		return nil, false
	}
	for _, pid := range conversation.Participants {
		if pid == userID {
			return conversation, true
		}
	}
	httputil.Forbidden(w, "not a participant in this conversation")
	return nil, false
}
