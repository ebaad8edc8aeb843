package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket constants.
const (
	// wsWriteWait is the maximum time allowed for a single write.
	wsWriteWait = 10 * time.Second

	// wsPingInterval is how often protocol-level pings are sent.
	wsPingInterval = 30 * time.Second

	// wsPongWait is how long to wait for any traffic before the
	// connection is considered dead.
	wsPongWait = 60 * time.Second

	// wsMaxMessageSize bounds inbound messages; clients only listen,
	// so anything beyond a trivial frame is a protocol violation.
	wsMaxMessageSize = 512
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// wsClient couples one WebSocket connection to a hub subscriber.
type wsClient struct {
	server *Server
	conn   *websocket.Conn
	sub    *Subscriber
}

// handleWebSocket upgrades the connection and registers it with the
// hub. Every broadcast is delivered as one text frame carrying the
// full current list, the same payload event-stream subscribers see.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		server: s,
		conn:   conn,
		sub:    s.hub.Subscribe(),
	}

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection to detect peer close. Inbound
// messages carry no meaning; the channel is broadcast-only.
func (c *wsClient) readPump() {
	defer func() {
		c.server.hub.Unsubscribe(c.sub.Token)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Warn("websocket read error", "error", err)
			} else {
				c.server.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

// writePump forwards broadcast payloads to the connection and keeps
// it alive with periodic pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.sub.Receive():
			if !ok {
				// Hub closed the subscriber channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
