package tracking

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"roadside-service/internal/feed"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *safeConn) readMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

func (c *safeConn) close() { c.ws.Close() }

// Hub manages WebSocket connections keyed by request id or owner id and
// pushes change-feed events to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*safeConn
}

// NewHub creates a tracking hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*safeConn)}
}

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/requests/{id}", h.handleRequestWS)
	r.Get("/users/{id}", h.handleUserWS)
	return r
}

func (h *Hub) handleRequestWS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "request:"+chi.URLParam(r, "id"))
}

func (h *Hub) handleUserWS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "user:"+chi.URLParam(r, "id"))
}

// serve upgrades the connection and registers it under the given key until
// the client disconnects.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, key string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	conn := &safeConn{ws: ws}

	h.mu.Lock()
	h.conns[key] = append(h.conns[key], conn)
	h.mu.Unlock()

	log.Printf("[ws] client connected to %s", key)

	// Block until the client disconnects
	for {
		if _, _, err := conn.readMessage(); err != nil {
			break
		}
	}

	h.removeConn(key, conn)
	conn.close()
	log.Printf("[ws] client disconnected from %s", key)
}

// Run consumes the given feed subscription and broadcasts each event to the
// connections watching that request or its owner. It returns when the
// subscription is stopped.
func (h *Hub) Run(sub *feed.Subscription) {
	for ev := range sub.Events() {
		msg := map[string]any{
			"type":       ev.Type,
			"request_id": ev.RequestID,
			"request":    ev.Request,
			"ts":         time.Now().Unix(),
		}
		h.broadcast("request:"+ev.RequestID, msg)
		h.broadcast("user:"+ev.RequesterID, msg)
	}
}

func (h *Hub) broadcast(key string, msg any) {
	h.mu.RLock()
	conns := h.conns[key]
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			log.Printf("[ws] write error: %v", err)
		}
	}
}

func (h *Hub) removeConn(key string, conn *safeConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[key]
	for i, c := range conns {
		if c == conn {
			h.conns[key] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[key]) == 0 {
		delete(h.conns, key)
	}
}
