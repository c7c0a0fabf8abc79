package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------
// WebSocket Client
// -----------------------------------------------------------------------------

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outbound queue depth per connection
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// -----------------------------------------------------------------------------

type Client struct {
	server *GatewayServer
	conn   *websocket.Conn
	id     string
	send   chan interface{}
	done   chan struct{}
	once   sync.Once
}

func newClient(s *GatewayServer, conn *websocket.Conn) *Client {
	return &Client{
		server: s,
		conn:   conn,
		id:     uuid.NewString(),
		send:   make(chan interface{}, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// ID implements subscription.Subscriber.
func (c *Client) ID() string {
	return c.id
}

// Deliver implements subscription.Subscriber. It never blocks: a connection
// that cannot drain its queue is reported as failed so the caller can
// detach it without stalling pushes to healthy connections.
func (c *Client) Deliver(payload interface{}) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errors.New("connection closed")
	default:
		return errors.New("send queue full")
	}
}

// close signals the write pump to finish. Safe to call more than once.
func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// -----------------------------------------------------------------------------
// WebSocket Handshake
// -----------------------------------------------------------------------------

func (s *GatewayServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(s, conn)
	select {
	case s.register <- client:
	case <-s.stopped:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Read Pump
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.stopped:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.Logger.Warning("Client %s read error: %v", c.id, err)
			}
			break
		}
		c.server.Dispatcher.Handle(c, message)
	}
}

// -----------------------------------------------------------------------------
// Write Pump
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
