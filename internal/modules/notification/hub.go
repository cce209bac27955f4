package notification

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// Event is what a connected client receives.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

const EventNotification = "notification"

// ConnGauge is told about every websocket that opens or closes.
type ConnGauge interface {
	WSConnected()
	WSDisconnected()
}

type client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans notifications out to every open connection of a user. A user may hold
// several connections (tabs, devices).
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*client]struct{}
	closed  bool
	gauge   ConnGauge
	log     logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger, gauge ConnGauge) *Hub {
	return &Hub{
		clients: make(map[int64]map[*client]struct{}),
		gauge:   gauge,
		log:     log,
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	if h.gauge != nil {
		h.gauge.WSConnected()
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	if h.gauge != nil {
		h.gauge.WSDisconnected()
	}
}

// Push queues ev for every connection of userID and reports whether any was online.
// Slow clients drop the event; the inbox still has it.
func (h *Hub) Push(userID int64, ev Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.clients[userID]
	delivered := false
	for c := range set {
		select {
		case c.send <- data:
			delivered = true
		default:
			h.log.WithField("user_id", userID).Warn("websocket client too slow, event dropped")
		}
	}
	return delivered
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve runs the pumps of one connection and blocks until it closes.
func (h *Hub) Serve(conn *websocket.Conn, userID int64) {
	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump only services control frames; clients do not send commands.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}
}
