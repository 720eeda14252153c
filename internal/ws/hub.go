// Package ws pushes color changes and diagnostics to browsers and accepts
// binary color updates over a control socket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/neopixel-ap/internal/diagnostics"
	"github.com/coreman2200/neopixel-ap/model"
)

const (
	writeWait = 200 * time.Millisecond
	// sendQueue frames may wait per listener before new ones are dropped.
	sendQueue = 16
)

// Updater is the color update service as seen by the control socket.
type Updater interface {
	Handle(ctx context.Context, body []byte) (model.Color, error)
	Last() (model.Color, bool)
}

// client is a feed listener. Only its writer goroutine writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	svc Updater
	up  websocket.Upgrader

	// mu guards the client sets and the send channels. It is never held
	// across a network write.
	mu          sync.Mutex
	clients     map[*client]bool
	diagClients map[*client]bool
}

func NewHub(svc Updater) *Hub {
	return &Hub{
		svc:         svc,
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
	}
}

type frame struct {
	T   int64  `json:"t"`
	R   uint8  `json:"r"`
	G   uint8  `json:"g"`
	B   uint8  `json:"b"`
	Hex string `json:"hex"`
}

func colorFrame(c model.Color) []byte {
	b, _ := json.Marshal(frame{T: time.Now().UnixNano(), R: c.R, G: c.G, B: c.B, Hex: c.String()})
	return b
}

// HandleColorsWS sends the color currently shown, then every accepted one.
func (h *Hub) HandleColorsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	h.mu.Lock()
	h.clients[c] = true
	if cur, ok := h.svc.Last(); ok {
		c.send <- colorFrame(cur)
	}
	h.mu.Unlock()
	go c.writeLoop()
	go h.drain(c, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	h.mu.Lock()
	h.diagClients[c] = true
	h.mu.Unlock()
	go c.writeLoop()
	go h.drain(c, h.diagClients)
}

// drain reads until the peer goes away, then forgets it and stops its
// writer.
func (h *Hub) drain(c *client, set map[*client]bool) {
	defer func() {
		h.mu.Lock()
		delete(set, c)
		close(c.send)
		h.mu.Unlock()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for b := range c.send {
		if err := write(c.conn, websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write ws message")
			return
		}
	}
}

// HandleControlWS takes 3-byte binary messages as color updates. A success
// is echoed back as binary; a failure is answered with a text diagnostic.
// Other message types are ignored.
func (h *Hub) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	lg := log.With().Str("conn_id", uuid.NewString()).Str("remote", r.RemoteAddr).Logger()
	ctx := lg.WithContext(context.Background())

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		c, err := h.svc.Handle(ctx, data)
		if err != nil {
			b, _ := json.Marshal(diag.FromError(err))
			err = write(conn, websocket.TextMessage, b)
		} else {
			err = write(conn, websocket.BinaryMessage, c.Bytes())
		}
		if err != nil {
			lg.Debug().Err(err).Msg("write control reply")
			return
		}
	}
}

func (h *Hub) BroadcastColor(c model.Color) {
	h.broadcast(h.clients, colorFrame(c))
}

func (h *Hub) PushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	h.broadcast(h.diagClients, b)
}

// broadcast queues b for every listener in set without blocking. A listener
// whose queue is full loses its oldest frame, so it still ends on the newest.
func (h *Hub) broadcast(set map[*client]bool, b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range set {
		c.enqueue(b)
	}
}

func (c *client) enqueue(b []byte) {
	for {
		select {
		case c.send <- b:
			return
		default:
		}
		select {
		case <-c.send:
			log.Debug().Msg("ws listener too slow, frame dropped")
		default:
		}
	}
}

// Clients is the number of connected color and diagnostic listeners.
func (h *Hub) Clients() (colors, diags int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients), len(h.diagClients)
}

func write(c *websocket.Conn, mt int, b []byte) error {
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteMessage(mt, b)
}
