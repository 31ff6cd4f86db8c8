package devserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type liveClient struct {
	conn  *websocket.Conn
	token string
	mu    sync.Mutex
}

func (c *liveClient) send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func liveToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (s *Server) live(c echo.Context) error {
	token := liveToken(c.Request())
	if !s.validToken(token) {
		return fail(c, http.StatusUnauthorized, "Authentication error")
	}
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	client := &liveClient{conn: conn, token: token}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()
	s.logf("live client connected (%d total)", s.ClientCount())

	// Inbound frames are ignored; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()
	_ = conn.Close()
	s.logf("live client disconnected")
	return nil
}

// ClientCount returns the number of connected live clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Push stores rec and broadcasts it the way the backend does, as a
// new_notification event wrapping {"type":"notification","data":rec}.
// Missing id, type, and createdAt are filled in.
func (s *Server) Push(rec types.Notification) types.Notification {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Type == "" {
		rec.Type = types.NotificationLike
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.Broadcast(types.MessageKindNewNotification, map[string]any{"type": "notification", "data": rec})
	return rec
}

// Broadcast sends a {kind, data} event to every live client.
func (s *Server) Broadcast(kind string, data any) {
	payload, err := encodeEvent(kind, data)
	if err != nil {
		s.logf("encode %s event: %v", kind, err)
		return
	}
	for _, client := range s.snapshotClients() {
		if err := client.send(payload); err != nil {
			s.logf("live send failed: %v", err)
		}
	}
}

// Revoke invalidates token and tells its live clients with an auth_error
// event.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()

	payload, err := encodeEvent(types.MessageKindAuthError, map[string]string{"message": "token revoked"})
	if err != nil {
		return
	}
	for _, client := range s.snapshotClients() {
		if client.token == token {
			_ = client.send(payload)
		}
	}
}

// DropClients closes every live connection without a close handshake,
// as a crashed or restarted backend would.
func (s *Server) DropClients() {
	for _, client := range s.snapshotClients() {
		_ = client.conn.Close()
	}
}

func (s *Server) snapshotClients() []*liveClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	clients := make([]*liveClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	return clients
}

func encodeEvent(kind string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.Envelope{Kind: kind, Data: raw})
}

func (s *Server) push(c echo.Context) error {
	var rec types.Notification
	if err := c.Bind(&rec); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid notification")
	}
	return ok(c, s.Push(rec))
}
