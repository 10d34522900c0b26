package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/backlot-app/backlot/internal/database"
)

const conversationID = "66666666-6666-6666-6666-666666666666"

func TestSendMessageReusesDirectConversation(t *testing.T) {
	created := false
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/conversations") && r.Method == http.MethodGet:
			json.NewEncoder(w).Encode([]database.Conversation{{
				ID:           conversationID,
				Participants: []string{crewID, headID},
			}})
		case strings.HasSuffix(r.URL.Path, "/conversations") && r.Method == http.MethodPost:
			created = true
			w.Write([]byte("[]"))
		case strings.HasSuffix(r.URL.Path, "/messages") && r.Method == http.MethodPost:
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["conversation_id"] != conversationID {
				t.Errorf("conversation_id = %s", body["conversation_id"])
			}
			if body["sender_id"] != crewID {
				t.Errorf("sender_id = %s", body["sender_id"])
			}
			json.NewEncoder(w).Encode([]database.Message{{ID: "m1", ConversationID: conversationID, SenderID: crewID, Content: body["content"]}})
		default:
			writeProfiles(w, r, map[string]string{crewID: database.RoleCrew})
		}
	})

	body := strings.NewReader(`{"recipient_ids":["` + headID + `"],"content":"Call sheet is up"}`)
	rr := doAs(router, crewID, http.MethodPost, "/api/messages", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if created {
		t.Error("a new conversation was created instead of reusing the existing one")
	}

	var resp struct {
		Conversation database.Conversation `json:"conversation"`
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Conversation.ID != conversationID {
		t.Errorf("conversation id = %s", resp.Conversation.ID)
	}
}

func TestSendMessageCreatesGroupConversation(t *testing.T) {
	searched := false
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/conversations") && r.Method == http.MethodGet:
			searched = true
			w.Write([]byte("[]"))
		case strings.HasSuffix(r.URL.Path, "/conversations") && r.Method == http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if n := len(body["participants"].([]any)); n != 3 {
				t.Errorf("participants = %d, want 3", n)
			}
			json.NewEncoder(w).Encode([]database.Conversation{{ID: conversationID, Participants: []string{adminID, crewID, headID}}})
		case strings.HasSuffix(r.URL.Path, "/messages"):
			json.NewEncoder(w).Encode([]database.Message{{ID: "m1", ConversationID: conversationID}})
		default:
			writeProfiles(w, r, map[string]string{crewID: database.RoleCrew})
		}
	})

	body := strings.NewReader(`{"recipient_ids":["` + headID + `","` + adminID + `"],"content":"Scene moved to stage 4"}`)
	rr := doAs(router, crewID, http.MethodPost, "/api/messages", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if searched {
		t.Error("group sends must not search for an existing direct conversation")
	}
}

func TestSendMessageToSelfCreatesConversation(t *testing.T) {
	searched := false
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/conversations") && r.Method == http.MethodGet:
			searched = true
			w.Write([]byte("[]"))
		case strings.HasSuffix(r.URL.Path, "/conversations") && r.Method == http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			participants := body["participants"].([]any)
			if len(participants) != 1 || participants[0] != crewID {
				t.Errorf("participants = %v, want just the sender", participants)
			}
			json.NewEncoder(w).Encode([]database.Conversation{{ID: conversationID, Participants: []string{crewID}}})
		case strings.HasSuffix(r.URL.Path, "/messages"):
			json.NewEncoder(w).Encode([]database.Message{{ID: "m1", ConversationID: conversationID, SenderID: crewID}})
		default:
			writeProfiles(w, r, map[string]string{crewID: database.RoleCrew})
		}
	})

	body := strings.NewReader(`{"recipient_ids":["` + crewID + `"],"content":"note to self"}`)
	rr := doAs(router, crewID, http.MethodPost, "/api/messages", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if searched {
		t.Error("solo sends must not search for an existing direct conversation")
	}
}

func TestMarkConversationRead(t *testing.T) {
	var patchCount int
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/conversations"):
			json.NewEncoder(w).Encode([]database.Conversation{{ID: conversationID, Participants: []string{crewID, headID}}})
		case strings.HasSuffix(r.URL.Path, "/messages") && r.Method == http.MethodPatch:
			patchCount++
			if got := r.URL.Query().Get("sender_id"); got != "neq."+crewID {
				t.Errorf("sender filter = %s", got)
			}
			w.Write([]byte("[]"))
		default:
			writeProfiles(w, r, map[string]string{crewID: database.RoleCrew})
		}
	})

	for i := 0; i < 2; i++ {
		rr := doAs(router, crewID, http.MethodPatch, "/api/messages/"+conversationID, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("pass %d: status = %d, body = %s", i, rr.Code, rr.Body.String())
		}
	}
	if patchCount != 2 {
		t.Errorf("patches = %d, want one per call", patchCount)
	}
}

func TestConversationAccessRequiresParticipation(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/conversations") {
			json.NewEncoder(w).Encode([]database.Conversation{{ID: conversationID, Participants: []string{adminID, headID}}})
			return
		}
		writeProfiles(w, r, map[string]string{crewID: database.RoleCrew})
	})

	rr := doAs(router, crewID, http.MethodGet, "/api/messages/"+conversationID, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}
