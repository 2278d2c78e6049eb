package wizard

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// connection is one websocket subscriber to one wizard.
type connection struct {
	userID   string
	wizardID string
	conn     *websocket.Conn
	send     chan []byte
}

// Hub fans wizard events out to the websocket connections watching them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*connection]bool
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[string]map[*connection]bool),
		log:   log,
	}
}

// NewUpgrader accepts same-origin requests and the listed browser origins.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.wizardID]
	if !ok {
		room = make(map[*connection]bool)
		h.rooms[c.wizardID] = room
	}
	room[c] = true
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.wizardID]
	if !ok || !room[c] {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.wizardID)
	}
}

// Publish sends event to every subscriber of wizardID. Slow clients drop it.
func (h *Hub) Publish(wizardID string, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal wizard event", zap.String("wizard_id", wizardID), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[wizardID] {
		select {
		case c.send <- data:
		default:
			h.log.Debug("dropping event for slow client", zap.String("wizard_id", wizardID), zap.String("user_id", c.userID))
		}
	}
}

// CloseRoom disconnects every subscriber of wizardID after queued events flush.
func (h *Hub) CloseRoom(wizardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[wizardID] {
		close(c.send)
	}
	delete(h.rooms, wizardID)
}

// Subscribers counts open connections for wizardID.
func (h *Hub) Subscribers(wizardID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[wizardID])
}

// ServeWS registers conn, sends initial, and blocks until the client leaves.
func (h *Hub) ServeWS(conn *websocket.Conn, userID, wizardID string, initial *Event) {
	c := &connection{
		userID:   userID,
		wizardID: wizardID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
	if initial != nil {
		if data, err := json.Marshal(initial); err == nil {
			c.send <- data
		}
	}

	h.register(c)
	h.log.Debug("websocket connected", zap.String("wizard_id", wizardID), zap.String("user_id", userID))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.log.Debug("websocket disconnected", zap.String("wizard_id", c.wizardID), zap.String("user_id", c.userID))
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", zap.String("wizard_id", c.wizardID), zap.Error(err))
			}
			return
		}

		var in struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &in); err != nil {
			h.reply(c, &Event{Type: EventError, WizardID: c.wizardID, Payload: "invalid json"})
			continue
		}
		switch in.Type {
		case "ping":
			h.reply(c, &Event{Type: EventPong, WizardID: c.wizardID})
		default:
			h.reply(c, &Event{Type: EventError, WizardID: c.wizardID, Payload: "unknown message type: " + in.Type})
		}
	}
}

// reply queues an event for c alone.
func (h *Hub) reply(c *connection, ev *Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.rooms[c.wizardID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
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
