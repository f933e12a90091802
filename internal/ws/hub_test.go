package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VangaRenuka/SocialConnect/internal/logger"
)

func newTestHub(t *testing.T, unread UnreadFunc) (*Hub, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.New(), ctx, unread)
	go hub.Start()
	return hub, func() {
		cancel()
		hub.Stop()
	}
}

func dialTestClient(t *testing.T, hub *Hub, userID string) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, userID)
	}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHubConnectionEstablished(t *testing.T) {
	hub, stop := newTestHub(t, func(userID string) (int64, error) { return 3, nil })
	defer stop()

	conn, closeConn := dialTestClient(t, hub, "u1")
	defer closeConn()

	msg := readMessage(t, conn)
	assert.Equal(t, "connection_established", msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "u1", data["user_id"])
	assert.Equal(t, float64(3), data["unread_count"])
}

func TestHubSendToUser(t *testing.T) {
	hub, stop := newTestHub(t, nil)
	defer stop()

	conn, closeConn := dialTestClient(t, hub, "u1")
	defer closeConn()
	readMessage(t, conn) // connection_established

	require.NoError(t, hub.SendToUser("u1", "notification", map[string]string{"title": "hi"}))

	msg := readMessage(t, conn)
	assert.Equal(t, "notification", msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "hi", data["title"])
}

func TestHubSendToOtherUserNotDelivered(t *testing.T) {
	hub, stop := newTestHub(t, nil)
	defer stop()

	conn, closeConn := dialTestClient(t, hub, "u1")
	defer closeConn()
	readMessage(t, conn)

	require.NoError(t, hub.SendToUser("someone-else", "notification", nil))

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "message for another user must not arrive")
}

func TestHubPingPong(t *testing.T) {
	hub, stop := newTestHub(t, nil)
	defer stop()

	conn, closeConn := dialTestClient(t, hub, "u1")
	defer closeConn()
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	msg := readMessage(t, conn)
	assert.Equal(t, "pong", msg.Type)
}

func TestHubGetNotifications(t *testing.T) {
	hub, stop := newTestHub(t, func(userID string) (int64, error) { return 7, nil })
	defer stop()

	conn, closeConn := dialTestClient(t, hub, "u1")
	defer closeConn()
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"get_notifications"}`)))
	msg := readMessage(t, conn)
	assert.Equal(t, "notifications_count", msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, float64(7), data["unread_count"])
}

func TestHubInvalidJSON(t *testing.T) {
	hub, stop := newTestHub(t, nil)
	defer stop()

	conn, closeConn := dialTestClient(t, hub, "u1")
	defer closeConn()
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "Invalid JSON format", data["message"])
}

func TestHubBroadcast(t *testing.T) {
	hub, stop := newTestHub(t, nil)
	defer stop()

	connA, closeA := dialTestClient(t, hub, "u1")
	defer closeA()
	connB, closeB := dialTestClient(t, hub, "u2")
	defer closeB()
	readMessage(t, connA)
	readMessage(t, connB)

	require.NoError(t, hub.Broadcast("system", map[string]string{"message": "maintenance"}))

	for _, conn := range []*websocket.Conn{connA, connB} {
		msg := readMessage(t, conn)
		assert.Equal(t, "system", msg.Type)
	}
}

func TestHubDetachAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.New(), ctx, nil)
	go hub.Start()
	cancel()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.detach(&client{hub: hub})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detach blocked after hub stop")
	}
}

func TestHubClientCount(t *testing.T) {
	hub, stop := newTestHub(t, nil)
	defer stop()

	assert.Equal(t, 0, hub.ClientCount())

	conn, closeConn := dialTestClient(t, hub, "u1")
	readMessage(t, conn)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	closeConn()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
