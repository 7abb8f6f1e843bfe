package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10

	// sendQueue is the number of messages buffered per client. A client
	// that falls this far behind on Send is disconnected.
	sendQueue = 64
)

// Message encodings understood by the hub.
const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// HubConfig configures a Hub.
type HubConfig struct {
	// Rate and Burst bound Offer; Send is never limited.
	Rate  float64
	Burst int
	// Encoding selects text JSON or binary CBOR frames.
	Encoding string
}

type outbound struct {
	messageType int
	payload     []byte
}

// client is one connection. Only its write loop writes to conn.
type client struct {
	conn *websocket.Conn
	send chan outbound
	quit chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.quit) })
}

// enqueue hands msg to the write loop without blocking.
func (c *client) enqueue(msg outbound) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Hub fans application messages out to WebSocket clients. Producers never
// wait on the network: every client has its own queue and write loop.
type Hub struct {
	upgrader websocket.Upgrader
	encoding string
	limiter  *rate.Limiter

	mu       sync.Mutex
	clients  map[*websocket.Conn]*client
	greeting func() any
	closed   bool
}

// NewHub creates a hub with no clients.
func NewHub(cfg HubConfig) *Hub {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = EncodingJSON
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		encoding: encoding,
		limiter:  rate.NewLimiter(limit, burst),
		clients:  make(map[*websocket.Conn]*client),
	}
}

// SetGreeting installs the function producing the message sent to a client
// on connect and whenever it asks with {"type":"status_request"}.
func (h *Hub) SetGreeting(fn func() any) {
	h.mu.Lock()
	h.greeting = fn
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &client{
		conn: conn,
		send: make(chan outbound, sendQueue),
		quit: make(chan struct{}),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[conn] = c
	h.mu.Unlock()

	h.greet(c)
	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) greet(c *client) {
	h.mu.Lock()
	greeting := h.greeting
	h.mu.Unlock()
	if greeting == nil {
		return
	}
	msg, err := h.encode(greeting())
	if err != nil {
		log.Printf("websocket encode error: %v", err)
		return
	}
	c.enqueue(msg)
}

// writeLoop owns all writes to the connection: queued messages and pings.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-c.quit:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(msg.messageType, msg.payload); err != nil {
				h.removeClient(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.removeClient(c)
				return
			}
		}
	}
}

func (h *Hub) readLoop(c *client) {
	defer h.removeClient(c)
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var request struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &request); err != nil {
			continue
		}
		if request.Type == "status_request" {
			h.greet(c)
		}
	}
}

// Send queues v for every client. It never blocks; a client whose queue
// is full is too slow to keep up and is disconnected.
func (h *Hub) Send(v any) {
	msg, err := h.encode(v)
	if err != nil {
		log.Printf("websocket encode error: %v", err)
		return
	}

	var stale []*client
	h.mu.Lock()
	for _, c := range h.clients {
		if !c.enqueue(msg) {
			stale = append(stale, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		log.Printf("websocket client %s too slow, disconnecting", c.conn.RemoteAddr())
		h.removeClient(c)
	}
}

// Offer queues v unless the rate limit is exhausted. It reports whether
// the message was queued for any client. Clients with a full queue skip
// the message. Use it for frequent, superseded updates.
func (h *Hub) Offer(v any) bool {
	if h.ClientCount() == 0 || !h.limiter.Allow() {
		return false
	}
	msg, err := h.encode(v)
	if err != nil {
		log.Printf("websocket encode error: %v", err)
		return false
	}

	sent := false
	h.mu.Lock()
	for _, c := range h.clients {
		if c.enqueue(msg) {
			sent = true
		}
	}
	h.mu.Unlock()
	return sent
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client with a close frame and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*websocket.Conn]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
}

func (h *Hub) encode(v any) (outbound, error) {
	switch h.encoding {
	case EncodingCBOR:
		payload, err := cbor.Marshal(v)
		return outbound{messageType: websocket.BinaryMessage, payload: payload}, err
	case EncodingJSON:
		payload, err := json.Marshal(v)
		return outbound{messageType: websocket.TextMessage, payload: payload}, err
	default:
		return outbound{}, fmt.Errorf("unknown encoding %q", h.encoding)
	}
}

// removeClient drops c and closes its connection, which also unblocks a
// write in progress.
func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.conn]
	delete(h.clients, c.conn)
	h.mu.Unlock()
	if ok {
		c.stop()
		_ = c.conn.Close()
	}
}
