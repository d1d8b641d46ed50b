// Package ws pushes received notices to websocket clients for local
// monitoring tools.
package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub tracks connected websocket clients and fans notices out to them.
type Hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Handle upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.log.Info().Str("addr", conn.RemoteAddr().String()).Msg("websocket client connected")

	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			h.log.Info().Str("addr", conn.RemoteAddr().String()).Msg("websocket client disconnected")
			return
		}
	}
}

// Broadcast sends msg to every connected client, dropping clients whose
// writes fail.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn().Err(err).Msg("websocket write failed, dropping client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve runs an HTTP server exposing the hub at /ws. It blocks until the
// listener fails.
func Serve(addr string, h *Hub) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.Handle)
	return http.ListenAndServe(addr, mux)
}
