package ws

import (
	"context"
	"sync"
	"testing"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/protocol"

	"github.com/stretchr/testify/assert"
)

type recConn struct {
	id string

	mu   sync.Mutex
	msgs []protocol.Message
}

func (c *recConn) ID() string { return c.id }

func (c *recConn) Identity() domain.Identity { return domain.Identity{Username: c.id} }

func (c *recConn) Context() context.Context { return context.Background() }

func (c *recConn) Send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *recConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestHubPublishExcludesSender(t *testing.T) {
	t.Parallel()
	h := NewHub()
	a, b, c := &recConn{id: "a"}, &recConn{id: "b"}, &recConn{id: "c"}
	h.Subscribe(a, "R")
	h.Subscribe(b, "R")
	h.Subscribe(c, "OTHER")

	h.Publish("R", protocol.Message{Type: protocol.TypeCodeChange}, "a")
	assert.Equal(t, 0, a.count())
	assert.Equal(t, 1, b.count())
	assert.Equal(t, 0, c.count())

	h.Publish("R", protocol.Message{Type: protocol.TypeRoomUsers}, "")
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 2, b.count())
}

func TestHubUnsubscribeDropsEmptyRooms(t *testing.T) {
	t.Parallel()
	h := NewHub()
	a := &recConn{id: "a"}
	h.Subscribe(a, "R")
	h.Subscribe(a, "R")
	assert.Equal(t, 1, h.Subscribers("R"))

	h.Unsubscribe(a, "R")
	h.Unsubscribe(a, "R")
	assert.Equal(t, 0, h.Subscribers("R"))
	assert.Empty(t, h.rooms)

	h.Publish("R", protocol.Message{Type: protocol.TypeCodeChange}, "")
	assert.Equal(t, 0, a.count())
}
