package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shivamkjha23-afk/ATR2026/internal/core"
)

// wsClient wraps a WebSocket connection with a mutex for thread-safe writes.
type wsClient struct {
	conn *ws.Conn
	mu   sync.Mutex
}

// Hub pushes core signals (db-updated, sync-status) to connected browsers so
// pages can re-render without polling.
type Hub struct {
	mu            sync.RWMutex
	clients       map[*wsClient]struct{}
	log           *zap.Logger
	allowedOrigin string
	upgrader      ws.Upgrader
}

// NewHub creates an empty hub. clientURL is the only browser origin allowed
// to subscribe, matching the CORS policy on the REST API; requests without an
// Origin header (non-browser clients) are accepted.
func NewHub(log *zap.Logger, clientURL string) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if clientURL == "" {
		clientURL = "http://localhost:3000"
	}
	h := &Hub{
		clients:       make(map[*wsClient]struct{}),
		log:           log,
		allowedOrigin: strings.TrimRight(clientURL, "/"),
	}
	h.upgrader = ws.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.EqualFold(strings.TrimRight(origin, "/"), h.allowedOrigin)
}

// Handle upgrades the connection and keeps it registered until the peer
// goes away.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	// Reader loop only drains control frames; the feed is one-way.
	go func() {
		defer h.unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends a core event to all connected clients. Suitable as a
// direct Bus subscriber.
func (h *Hub) Broadcast(evt core.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.log.Warn("websocket marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.mu.Lock()
		_ = client.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := client.conn.WriteMessage(ws.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			h.unregister(client)
		}
	}
}
