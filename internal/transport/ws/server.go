package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Authenticator interface {
	Authenticate(token string) (domain.Identity, error)
}

// Handler receives decoded events. Disconnecting runs once per connection,
// after its context has been cancelled.
type Handler interface {
	Handle(ctx context.Context, conn protocol.Conn, in protocol.Inbound)
	Disconnecting(conn protocol.Conn)
}

type Options struct {
	SendBuffer     int
	PingPeriod     time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

func (o *Options) withDefaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 25 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 1 << 20
	}
}

type Server struct {
	upgrader websocket.Upgrader
	auth     Authenticator
	handler  Handler
	opts     Options

	mu    sync.Mutex
	conns map[string]*wsConn
}

func NewServer(auth Authenticator, handler Handler, opts Options) *Server {
	opts.withDefaults()
	s := &Server{
		auth:    auth,
		handler: handler,
		opts:    opts,
		conns:   make(map[string]*wsConn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// HandleWS upgrades GET /ws?token=... (or Authorization: Bearer ...). The
// token is verified before the upgrade.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = bearer(r.Header.Get("Authorization"))
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	ident, err := s.auth.Authenticate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(uuid.NewString(), ident, conn, s.opts.SendBuffer)
	slog.Info("ws connected", "conn", c.id, "user", ident.Username)
	s.track(c)
	defer s.untrack(c)

	go c.writePump(s.opts.PingPeriod)
	s.readLoop(c)

	c.Close()
	s.handler.Disconnecting(c)
	slog.Info("ws disconnected", "conn", c.id, "user", ident.Username)
}

// CloseAll drops every live connection. Each one still goes through the
// normal disconnect path. Hijacked sockets are not closed by http.Server.Shutdown.
func (s *Server) CloseAll() {
	s.mu.Lock()
	conns := make([]*wsConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	if len(conns) > 0 {
		slog.Info("ws connections closed", "count", len(conns))
	}
}

// Connections reports how many sockets are currently open.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(c *wsConn) {
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
}

func (s *Server) untrack(c *wsConn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
}

func (s *Server) readLoop(c *wsConn) {
	c.conn.SetReadLimit(s.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingPeriod))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingPeriod))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("ws read failed", "conn", c.id, "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingPeriod))

		var in protocol.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		s.handler.Handle(c.Context(), c, in)
	}
}

// checkOrigin admits requests without an Origin header (non-browser clients)
// and browsers from the configured origins. An empty list admits everyone.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func bearer(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
