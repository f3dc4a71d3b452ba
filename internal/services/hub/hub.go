// Package hub fans out pipeline events to websocket subscribers over named
// channels.
package hub

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultIdleTimeout = 30 * time.Second
	writeWait          = 10 * time.Second
	maxMessageSize     = 4096
)

// connection wraps a websocket with a write lock. Gorilla connections support
// one concurrent writer only.
type connection struct {
	id       string
	ws       *websocket.Conn
	lastRead atomic.Int64

	writeMu sync.Mutex
}

func (c *connection) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *connection) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(payload)
}

// clientMessage is the subscription protocol: exactly one of the fields set.
type clientMessage struct {
	Subscribe   string `json:"subscribe,omitempty"`
	Unsubscribe string `json:"unsubscribe,omitempty"`
}

// Hub tracks per-channel subscriber sets and broadcasts events to them.
// A connection that fails a write is dropped from every channel at once, so a
// later broadcast never observes it in one set but not another.
type Hub struct {
	upgrader    websocket.Upgrader
	idleTimeout time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	channels map[string]map[*connection]struct{}
	conns    map[*connection]map[string]struct{}
}

// NewHub creates an empty fanout hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		idleTimeout: defaultIdleTimeout,
		logger:      logger,
		channels:    make(map[string]map[*connection]struct{}),
		conns:       make(map[*connection]map[string]struct{}),
	}
}

// HandleWS upgrades the request and serves the subscription protocol until the
// client disconnects. Channels listed in the "channels" query parameter are
// subscribed immediately.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &connection{id: uuid.NewString(), ws: ws}
	conn.lastRead.Store(time.Now().UnixNano())
	ws.SetReadLimit(maxMessageSize)

	h.mu.Lock()
	h.conns[conn] = make(map[string]struct{})
	h.mu.Unlock()
	h.logger.Info("client connected", zap.String("conn", conn.id), zap.String("remote", r.RemoteAddr))

	for _, name := range splitChannels(r.URL.Query().Get("channels")) {
		if !ValidChannel(name) {
			_ = conn.writeJSON(map[string]string{"error": "unknown channel: " + name})
			continue
		}
		h.subscribe(conn, name)
		_ = conn.writeJSON(map[string]string{"subscribed": name})
	}

	pingDone := make(chan struct{})
	go h.pingLoop(conn, pingDone)

	h.readLoop(conn)

	close(pingDone)
	h.drop(conn)
	_ = ws.Close()
	h.logger.Info("client disconnected", zap.String("conn", conn.id))
}

func (h *Hub) readLoop(conn *connection) {
	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		conn.lastRead.Store(time.Now().UnixNano())

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = conn.writeJSON(map[string]string{"error": "invalid JSON"})
			continue
		}

		switch {
		case msg.Subscribe != "":
			if !ValidChannel(msg.Subscribe) {
				_ = conn.writeJSON(map[string]string{"error": "unknown channel: " + msg.Subscribe})
				continue
			}
			h.subscribe(conn, msg.Subscribe)
			_ = conn.writeJSON(map[string]string{"subscribed": msg.Subscribe})
		case msg.Unsubscribe != "":
			h.unsubscribe(conn, msg.Unsubscribe)
			_ = conn.writeJSON(map[string]string{"unsubscribed": msg.Unsubscribe})
		default:
			_ = conn.writeJSON(map[string]string{"error": "expected subscribe or unsubscribe"})
		}
	}
}

// pingLoop sends a heartbeat whenever the client has been silent for the idle
// window. A failed heartbeat write closes the socket, which unblocks readLoop.
func (h *Hub) pingLoop(conn *connection, done <-chan struct{}) {
	ticker := time.NewTicker(h.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			idle := time.Since(time.Unix(0, conn.lastRead.Load()))
			if idle < h.idleTimeout {
				continue
			}
			if err := conn.writeJSON(map[string]string{"type": "ping"}); err != nil {
				_ = conn.ws.Close()
				return
			}
			conn.lastRead.Store(time.Now().UnixNano())
		}
	}
}

// Broadcast marshals payload once and delivers it to every subscriber of the
// channel. Dead connections are pruned as they are found.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("broadcast payload not serializable", zap.String("channel", channel), zap.Error(err))
		return
	}

	h.mu.Lock()
	targets := make([]*connection, 0, len(h.channels[channel]))
	for conn := range h.channels[channel] {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		if err := conn.write(data); err != nil {
			h.logger.Debug("dropping dead subscriber",
				zap.String("conn", conn.id), zap.String("channel", channel), zap.Error(err))
			h.drop(conn)
			_ = conn.ws.Close()
		}
	}
}

// SubscriberCount returns the number of connections subscribed to a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channel])
}

func (h *Hub) subscribe(conn *connection, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; !ok {
		return
	}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*connection]struct{})
	}
	h.channels[channel][conn] = struct{}{}
	h.conns[conn][channel] = struct{}{}
}

func (h *Hub) unsubscribe(conn *connection, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.channels[channel], conn)
	if len(h.channels[channel]) == 0 {
		delete(h.channels, channel)
	}
	if subs, ok := h.conns[conn]; ok {
		delete(subs, channel)
	}
}

// drop removes the connection from every channel in one critical section.
func (h *Hub) drop(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel := range h.conns[conn] {
		delete(h.channels[channel], conn)
		if len(h.channels[channel]) == 0 {
			delete(h.channels, channel)
		}
	}
	delete(h.conns, conn)
}

func splitChannels(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
