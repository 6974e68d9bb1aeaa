package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/protocol"

	"github.com/gorilla/websocket"
)

var (
	ErrConnClosed   = errors.New("ws: connection closed")
	ErrSlowConsumer = errors.New("ws: send queue full")
)

const writeWait = 5 * time.Second

// wsConn is one authenticated websocket. Outbound messages go through a
// bounded queue drained by writePump; Send never blocks.
type wsConn struct {
	id    string
	ident domain.Identity
	conn  *websocket.Conn
	send  chan protocol.Message

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}
}

func newWsConn(id string, ident domain.Identity, c *websocket.Conn, sendBuffer int) *wsConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &wsConn{
		id:     id,
		ident:  ident,
		conn:   c,
		send:   make(chan protocol.Message, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }
func (c *wsConn) Identity() domain.Identity { return c.ident }
func (c *wsConn) Context() context.Context { return c.ctx }

func (c *wsConn) Send(msg protocol.Message) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		slog.Warn("ws slow consumer dropped", "conn", c.id, "user", c.ident.Username)
		c.Close()
		return ErrSlowConsumer
	}
}

// Close cancels the connection context and closes the socket, which ends the
// read loop. Safe to call from any goroutine, any number of times.
func (c *wsConn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.closed)
		_ = c.conn.Close()
	})
}

func (c *wsConn) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				slog.Debug("ws write failed", "conn", c.id, "err", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}
