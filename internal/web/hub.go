package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/atlas"
	"github.com/intelligrit/chronomap/internal/render"
	"github.com/intelligrit/chronomap/internal/timeline"
)

// Message types pushed to clients.
const (
	MsgCommand = "command"
	MsgStatus  = "status"
	MsgChapter = "chapter"
	MsgError   = "error"
)

const (
	outBuffer   = 1024
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
	maxReadSize = 4096
)

// Message is the envelope of every frame sent to a client.
type Message struct {
	Type    string            `json:"type"`
	Command *render.Command   `json:"command,omitempty"`
	Status  *atlas.Status     `json:"status,omitempty"`
	Chapter *timeline.Chapter `json:"chapter,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Hub mirrors one session's scene to every connected client and forwards
// their controls back to the session.
type Hub struct {
	session  *atlas.Session
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

// NewHub attaches a hub to session. Status and chapter updates are
// broadcast from the session's hooks.
func NewHub(session *atlas.Session, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		session: session,
		log:     log,
		upgrader: websocket.Upgrader{
			// Local tool: accept any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
	session.OnStatus(func(st atlas.Status) {
		h.broadcast(Message{Type: MsgStatus, Status: &st})
	})
	session.OnChapter(func(ch timeline.Chapter) {
		h.broadcast(Message{Type: MsgChapter, Chapter: &ch})
	})
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		out:  make(chan Message, outBuffer),
		done: make(chan struct{}),
	}
	if !h.add(c) {
		c.close()
		return
	}
	h.log.Info("client connected", zap.String("client", c.id), zap.String("addr", conn.RemoteAddr().String()))

	// Hold the client lock across Subscribe so live commands queue behind
	// the snapshot.
	c.mu.Lock()
	snapshot, cancel := h.session.Scene().Subscribe(render.SinkFunc(func(cmd render.Command) {
		c.push(Message{Type: MsgCommand, Command: &cmd})
	}))
	c.unsubscribe = cancel
	for i := range snapshot {
		c.pushLocked(Message{Type: MsgCommand, Command: &snapshot[i]})
	}
	st := h.session.Status()
	c.pushLocked(Message{Type: MsgStatus, Status: &st})
	c.mu.Unlock()

	go c.writeLoop()
	go c.readLoop()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

func (h *Hub) broadcast(m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.push(m)
	}
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	out  chan Message

	mu          sync.Mutex
	unsubscribe func()

	done      chan struct{}
	closeOnce sync.Once
}

// push never blocks: a client too slow to drain its buffer is dropped.
func (c *client) push(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushLocked(m)
}

func (c *client) pushLocked(m Message) {
	select {
	case <-c.done:
	case c.out <- m:
	default:
		c.hub.log.Warn("client too slow, dropping", zap.String("client", c.id))
		go c.close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		// The scene may be emitting into push right now; unsubscribe
		// without holding c.mu.
		c.mu.Lock()
		unsubscribe := c.unsubscribe
		c.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		_ = c.conn.Close()
		c.hub.remove(c)
		c.hub.log.Info("client disconnected", zap.String("client", c.id))
	})
}

func (c *client) readLoop() {
	defer c.close()
	c.conn.SetReadLimit(maxReadSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("websocket read", zap.String("client", c.id), zap.Error(err))
			}
			return
		}

		var ctl atlas.Control
		if err := json.Unmarshal(data, &ctl); err != nil {
			c.push(Message{Type: MsgError, Error: "malformed control: " + err.Error()})
			continue
		}
		c.hub.log.Debug("control", zap.String("client", c.id), zap.String("type", string(ctl.Type)))
		if err := c.hub.session.Send(ctl); err != nil {
			c.push(Message{Type: MsgError, Error: err.Error()})
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case m := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				c.hub.log.Debug("websocket write", zap.String("client", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
