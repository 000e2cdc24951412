package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/shivamkjha23-afk/ATR2026/internal/core"
)

func TestHub_BroadcastsBusEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, "")
	bus := core.NewBus()
	bus.Subscribe(hub.Broadcast)

	router := gin.New()
	router.GET("/ws", hub.Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	bus.Publish(core.Event{Type: core.EventSyncStatus, OK: true, Message: "cloud sync complete (5 chunks)"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt core.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	require.Equal(t, core.EventSyncStatus, evt.Type)
	require.True(t, evt.OK)
	require.Contains(t, evt.Message, "cloud sync complete")
}

func TestHub_OriginGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, "http://tracker.example.com")

	router := gin.New()
	router.GET("/ws", hub.Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	// A foreign browser origin is refused before the upgrade.
	_, resp, err := ws.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example.com"}})
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// The configured client origin connects; comparison ignores case and a
	// trailing slash.
	conn, resp, err := ws.DefaultDialer.Dial(url, http.Header{"Origin": {"http://Tracker.Example.com/"}})
	require.NoError(t, err)
	resp.Body.Close()
	conn.Close()
}

func TestHub_DropsDisconnectedClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, "")

	router := gin.New()
	router.GET("/ws", hub.Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Broadcasting with no clients is a no-op.
	hub.Broadcast(core.Event{Type: core.EventDBUpdated})
}
