package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sujalbistaa/whisperwall/internal/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 25 * time.Second

	maxFrameSize = 4096
)

// Client is one websocket connection. A user may hold several.
type Client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

func newClient(h *Hub, userID string, conn *websocket.Conn) *Client {
	return &Client{hub: h, userID: userID, conn: conn, send: make(chan []byte, 32)}
}

// ServeWs upgrades the request and joins the connection to userID's room.
// An empty userID joins the connection for broadcasts only.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     hub.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn.Printf("ws upgrade error: %v", err)
		return
	}

	c := newClient(hub, userID, conn)
	hub.register(c)
	log.Info.Printf("WebSocket: client connected (user %q)", userID)

	go c.writeLoop()
	c.readLoop()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.AllowedOrigin == "" || h.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == h.AllowedOrigin
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop only keeps the connection alive. Clients talk to the server over
// HTTP; the socket is push only, apart from an application level ping.
func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		log.Info.Printf("WebSocket: client disconnected (user %q)", c.userID)
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			pong, _ := json.Marshal(Message{Type: "pong"})
			c.hub.reply(c, pong)
		}
	}
}
