package ws

import (
	"sync"

	"github.com/codesync/codesync-backend/internal/protocol"
)

// Hub is the room-scoped fan-out. Publish hands each message to the target
// connection's own queue, so a slow reader never stalls the publisher.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]protocol.Conn // roomID -> connID -> conn
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]protocol.Conn)}
}

func (h *Hub) Subscribe(c protocol.Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[string]protocol.Conn)
		h.rooms[roomID] = rs
	}
	rs[c.ID()] = c
}

func (h *Hub) Unsubscribe(c protocol.Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[roomID]; ok {
		delete(rs, c.ID())
		if len(rs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Publish(roomID string, msg protocol.Message, excludeConnID string) {
	h.mu.RLock()
	targets := make([]protocol.Conn, 0, len(h.rooms[roomID]))
	for id, c := range h.rooms[roomID] {
		if id != excludeConnID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		_ = c.Send(msg) // best-effort; a full queue drops the connection
	}
}

// Subscribers reports how many connections are subscribed to roomID.
func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
