// Package hub tracks the websocket connections of remote players.
package hub

import (
	"sync"

	"github.com/weiawesome/crowd-playback/internal/config"
	"github.com/weiawesome/crowd-playback/pkg/log"
)

// Hub owns the connected clients and the connection timing they share.
type Hub struct {
	cfg config.WebSocketConfig

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		cfg:     cfg,
		clients: make(map[string]*Client),
	}
}

// Register adds c.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()

	l := log.L()
	l.Debug().Str("client_id", c.ID).Str(log.FieldViewerID, c.ViewerID).Int("clients", n).Msg("client registered")
}

// Unregister removes c and stops its writer.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
	c.close()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll sends a close frame to every client and forgets them.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
