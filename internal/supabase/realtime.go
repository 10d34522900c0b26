package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// RealtimeClient subscribes to postgres change events over the platform's
// realtime websocket. One client holds one connection; channels multiplex
// table subscriptions over it using the phoenix framing.
type RealtimeClient struct {
	mu       sync.RWMutex
	url      string
	conn     *websocket.Conn
	channels map[string]*Channel
	handlers map[string][]EventHandler
	done     chan struct{}
	ref      int
}

// EventHandler receives realtime events. Handlers run on their own
// goroutines; ordering between events is not guaranteed.
type EventHandler func(event *RealtimeEvent)

// RealtimeEvent is one message from the realtime service.
type RealtimeEvent struct {
	Type    string         `json:"type"`
	Event   string         `json:"event"`
	Topic   string         `json:"topic"`
	Payload map[string]any `json:"payload"`
	Ref     string         `json:"ref"`
	JoinRef string         `json:"join_ref,omitempty"`
}

// Record extracts the changed row from the event payload, if present.
func (e *RealtimeEvent) Record() map[string]any {
	if data, ok := e.Payload["data"].(map[string]any); ok {
		if rec, ok := data["record"].(map[string]any); ok {
			return rec
		}
	}
	if rec, ok := e.Payload["record"].(map[string]any); ok {
		return rec
	}
	return nil
}

// Channel is one topic subscription.
type Channel struct {
	client  *RealtimeClient
	topic   string
	joined  bool
	joinRef string
}

// Realtime creates a realtime client sharing this client's configuration.
// Each call returns an independent connection handle.
func (c *Client) Realtime() *RealtimeClient {
	return &RealtimeClient{
		url:      c.realtimeURL + "?apikey=" + c.anonKey + "&vsn=1.0.0",
		channels: make(map[string]*Channel),
		handlers: make(map[string][]EventHandler),
		done:     make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the reader and
// heartbeat goroutines. Connecting twice is a no-op.
func (r *RealtimeClient) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	r.conn = conn
	r.done = make(chan struct{})
	go r.readLoop()
	go r.heartbeat()
	return nil
}

// Disconnect closes the connection and stops background goroutines.
func (r *RealtimeClient) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}
	close(r.done)

	err := r.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	r.conn.Close()
	r.conn = nil
	if err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return nil
}

// PostgresChangesConfig selects which change events to receive.
type PostgresChangesConfig struct {
	Event  string // INSERT, UPDATE, DELETE, or * (default)
	Schema string // defaults to public
	Table  string
	Filter string // optional, e.g. "user_id=eq.<uuid>"
}

// SubscribeToPostgresChanges joins a channel for cfg and registers handler.
func (r *RealtimeClient) SubscribeToPostgresChanges(ctx context.Context, cfg PostgresChangesConfig, handler EventHandler) (*Channel, error) {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.Event == "" {
		cfg.Event = "*"
	}

	topic := fmt.Sprintf("realtime:%s:%s", cfg.Schema, cfg.Table)
	if cfg.Filter != "" {
		topic += ":" + cfg.Filter
	}

	ch := r.channel(topic)
	events := []string{cfg.Event}
	if cfg.Event == "*" {
		events = []string{"INSERT", "UPDATE", "DELETE"}
	}
	for _, ev := range events {
		ch.on(ev, handler)
	}

	if err := ch.subscribe(); err != nil {
		return nil, err
	}
	return ch, nil
}

func (r *RealtimeClient) channel(topic string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[topic]; ok {
		return ch
	}
	ch := &Channel{client: r, topic: topic}
	r.channels[topic] = ch
	return ch
}

func (c *Channel) subscribe() error {
	c.client.mu.Lock()
	defer c.client.mu.Unlock()

	if c.joined {
		return nil
	}
	if c.client.conn == nil {
		return fmt.Errorf("realtime client not connected")
	}

	c.client.ref++
	ref := fmt.Sprintf("%d", c.client.ref)
	c.joinRef = ref

	msg := map[string]any{
		"topic":    c.topic,
		"event":    "phx_join",
		"payload":  map[string]any{},
		"ref":      ref,
		"join_ref": ref,
	}
	if err := c.client.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	c.joined = true
	return nil
}

// Unsubscribe leaves the channel.
func (c *Channel) Unsubscribe() error {
	c.client.mu.Lock()
	defer c.client.mu.Unlock()

	if !c.joined || c.client.conn == nil {
		return nil
	}

	c.client.ref++
	msg := map[string]any{
		"topic":    c.topic,
		"event":    "phx_leave",
		"payload":  map[string]any{},
		"ref":      fmt.Sprintf("%d", c.client.ref),
		"join_ref": c.joinRef,
	}
	if err := c.client.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send leave: %w", err)
	}
	c.joined = false
	delete(c.client.channels, c.topic)
	return nil
}

func (c *Channel) on(event string, handler EventHandler) {
	c.client.mu.Lock()
	defer c.client.mu.Unlock()
	key := c.topic + ":" + event
	c.client.handlers[key] = append(c.client.handlers[key], handler)
}

func (r *RealtimeClient) readLoop() {
	for {
		select {
		case <-r.done:
			return
		default:
		}

		r.mu.RLock()
		conn := r.conn
		r.mu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var event RealtimeEvent
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}
		r.dispatch(&event)
	}
}

func (r *RealtimeClient) dispatch(event *RealtimeEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	eventType := event.Event
	if t, ok := event.Payload["type"].(string); ok {
		eventType = t
	}

	for _, handler := range r.handlers[event.Topic+":"+eventType] {
		go handler(event)
	}
}

func (r *RealtimeClient) heartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.conn != nil {
				r.ref++
				_ = r.conn.WriteJSON(map[string]any{
					"topic":   "phoenix",
					"event":   "heartbeat",
					"payload": map[string]any{},
					"ref":     fmt.Sprintf("%d", r.ref),
				})
			}
			r.mu.Unlock()
		}
	}
}
