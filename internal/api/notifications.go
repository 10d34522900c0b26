package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/backlot-app/backlot/internal/httputil"
	"github.com/backlot-app/backlot/internal/supabase"
)

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := a.repo.ListNotificationsFor(r.Context(), caller.UserID, unreadOnly)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notifications)
}

// handleMarkNotificationRead marks one of the caller's notifications read.
// The ownership filter is part of the update, so another user's id yields
// not found rather than leaking its existence.
func (a *API) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if id == "" {
		httputil.BadRequest(w, "notification id is required")
		return
	}
	notification, err := a.repo.MarkNotificationRead(r.Context(), id, caller.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notification)
}

func (a *API) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	if err := a.repo.MarkAllNotificationsRead(r.Context(), caller.UserID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS middleware in front of this handler.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleNotificationStream upgrades to a websocket and relays the caller's
// notification inserts from the realtime service until either side hangs up.
func (a *API) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}

	realtime := a.supa.Realtime()
	if err := realtime.Connect(r.Context()); err != nil {
		a.writeError(w, r, err)
		return
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = realtime.Disconnect()
		return
	}
	defer conn.Close()
	defer realtime.Disconnect()

	events := make(chan map[string]any, 16)
	_, err = realtime.SubscribeToPostgresChanges(r.Context(), supabase.PostgresChangesConfig{
		Event:  "INSERT",
		Table:  "notifications",
		Filter: "user_id=eq." + caller.UserID,
	}, func(event *supabase.RealtimeEvent) {
		if record := event.Record(); record != nil {
			select {
			case events <- record:
			default:
				// Drop rather than block the realtime reader.
			}
		}
	})
	if err != nil {
		a.logger.WithContext(r.Context()).Warn().Err(err).Msg("realtime subscribe failed")
		return
	}

	// Reader goroutine notices the client closing the socket.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-clientGone:
			return
		case record := <-events:
			if err := conn.WriteJSON(record); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
