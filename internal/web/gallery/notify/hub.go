// Package notify broadcasts catalog change events to websocket
// subscribers. Delivery is fire-and-forget: at most once per
// subscriber, slow subscribers are dropped.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Laisky/zap"
	"github.com/gorilla/websocket"

	"github.com/drive-gallery/gallery/library/log"
)

const (
	clientSendBuffer = 256
	writeTimeout     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the gallery is served to a separate frontend origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

var Instance *Hub

// Hub maintains the set of subscribed clients and fans broadcast
// messages out to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
}

func Initialize(ctx context.Context) {
	Instance = NewHub()
	go Instance.Run(ctx)
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, clientSendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run owns the client set; it is the only goroutine touching it.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for cli := range h.clients {
				close(cli.send)
				delete(h.clients, cli)
			}
			return
		case cli := <-h.register:
			h.clients[cli] = true
		case cli := <-h.unregister:
			if _, ok := h.clients[cli]; ok {
				delete(h.clients, cli)
				close(cli.send)
			}
		case msg := <-h.broadcast:
			for cli := range h.clients {
				select {
				case cli.send <- msg:
				default:
					// subscriber cannot keep up, drop it
					close(cli.send)
					delete(h.clients, cli)
				}
			}
		}
	}
}

// Broadcast marshals event and pushes it to every current subscriber.
// No delivery guarantee: subscribers that joined late or were dropped
// simply miss the event and re-sync on the next one.
func (h *Hub) Broadcast(event any) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Logger.Error("marshal broadcast event", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		log.Logger.Warn("broadcast queue full, dropping event")
	}
}

// ServeWS upgrades an HTTP request to a websocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Logger.Warn("upgrade websocket", zap.Error(err))
		return
	}

	cli := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	h.register <- cli

	go cli.writePump()
	go cli.readPump(h)
}

// readPump drains inbound frames until the peer goes away, then
// unregisters. Subscribers have nothing to say, reading only serves
// close/ping handling.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Logger.Debug("websocket read", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	// hub closed the channel
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
