package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func dialTestSocket(t *testing.T, s *GatewayServer) (*websocket.Conn, *httptest.Server) {
	t.Helper()

	ts := httptest.NewServer(s.engine)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn, ts
}

// -----------------------------------------------------------------------------

func TestWebSocketLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.handleWebsockets(ctx)

	conn, _ := dialTestSocket(t, s)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "welcome", frame["type"])

	require.Eventually(t, func() bool { return s.clientCount() == 1 },
		2*time.Second, 5*time.Millisecond)

	// Closing the peer must drain the connection through the hub.
	conn.Close()
	require.Eventually(t, func() bool { return s.clientCount() == 0 },
		2*time.Second, 5*time.Millisecond)
}

func TestWebSocketHandshakeAfterStopDoesNotHang(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	go s.handleWebsockets(ctx)

	cancel()
	select {
	case <-s.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not shut down")
	}

	// A handshake arriving after shutdown is dropped instead of leaving the
	// handler blocked on a hub that is gone.
	conn, _ := dialTestSocket(t, s)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, s.clientCount())
}
