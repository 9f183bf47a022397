package pulse

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestSocket spins the bridge up behind an httptest server and opens
// one client connection to it.
func dialTestSocket(t *testing.T, d *Dispatcher) (*SocketServer, *websocket.Conn) {
	t.Helper()

	s := NewSocketServer(d, "127.0.0.1:0")
	hs := httptest.NewServer(s.srv.Handler)
	t.Cleanup(hs.Close)
	t.Cleanup(func() { _ = s.Close() })

	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return s, ws
}

func TestSocketServer_DispatchesInboundMessages(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	received := make(chan string, 1)
	_, err := On(d, func(e *EventSocketMessage) {
		received <- e.Message
	})
	require.NoError(t, err)

	_, ws := dialTestSocket(t, d)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("hello")))

	select {
	case msg := <-received:
		assert.Equal(t, "hello", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("inbound frame was never dispatched")
	}
}

func TestSocketServer_Broadcast(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	s, ws := dialTestSocket(t, d)

	// The client shows up in the connection table once the upgrade
	// completes; poll briefly since the handshake is asynchronous.
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.conns) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, <-s.Broadcast("ping"))

	mt, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, "ping", string(data))
}

func TestSocketServer_SocketEventsHaveNoActorShape(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	fired := false
	_, err := On(d, func(*EventSocketMessage) { fired = true },
		Match(ActorNamed("alice")))
	require.NoError(t, err)

	d.Dispatch(&EventSocketMessage{Message: "hi"})
	assert.False(t, fired, "actor clauses must fail closed for socket events")
}
