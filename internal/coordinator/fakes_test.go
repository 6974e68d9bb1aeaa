package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/protocol"
)

var errStoreDown = errors.New("store unavailable")

type memStore struct {
	mu      sync.Mutex
	rooms   map[string]*domain.Room
	creates int

	failFind bool
	failGet  bool
	// blockFind and blockGet, when set, are waited on inside FindRoom and
	// GetBuffer; entering either is reported on calls
	blockFind chan struct{}
	blockGet  chan struct{}
	calls     chan string
}

func newMemStore() *memStore {
	return &memStore{rooms: make(map[string]*domain.Room)}
}

func (s *memStore) FindRoom(ctx context.Context, id string) (*domain.Room, error) {
	if s.blockFind != nil {
		s.entered("find")
		select {
		case <-s.blockFind:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFind {
		return nil, errStoreDown
	}
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r, nil
}

func (s *memStore) CreateRoom(_ context.Context, id, name, owner string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		return r, nil
	}
	s.creates++
	r := &domain.Room{ID: id, Name: name, Owner: owner, Code: map[string]string{}}
	s.rooms[id] = r
	return r, nil
}

func (s *memStore) GetBuffer(_ context.Context, roomID, lang string) (string, bool, error) {
	if s.blockGet != nil {
		s.entered("get")
		<-s.blockGet
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return "", false, errStoreDown
	}
	r, ok := s.rooms[roomID]
	if !ok {
		return "", false, nil
	}
	code, ok := r.Code[lang]
	return code, ok, nil
}

func (s *memStore) entered(op string) {
	if s.calls == nil {
		return
	}
	select {
	case s.calls <- op:
	default:
	}
}

func (s *memStore) setBuffer(roomID, lang, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID].Code[lang] = code
}

func (s *memStore) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

type fakeConn struct {
	id     string
	ident  domain.Identity
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	msgs []protocol.Message
}

func newConn(id, username string) *fakeConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakeConn{
		id:     id,
		ident:  domain.Identity{UserID: "u-" + username, Username: username, Color: domain.DefaultColor},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *fakeConn) ID() string { return c.id }
func (c *fakeConn) Identity() domain.Identity { return c.ident }
func (c *fakeConn) Context() context.Context { return c.ctx }

func (c *fakeConn) Send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *fakeConn) received() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *fakeConn) last() protocol.Message {
	msgs := c.received()
	if len(msgs) == 0 {
		return protocol.Message{}
	}
	return msgs[len(msgs)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

type memGateway struct {
	mu   sync.Mutex
	subs map[string]map[string]protocol.Conn

	// set before use; called outside mu
	onSubscribe func(c protocol.Conn, roomID string)
	onPublish   func(roomID string, msg protocol.Message)
}

func newMemGateway() *memGateway {
	return &memGateway{subs: make(map[string]map[string]protocol.Conn)}
}

func (g *memGateway) Subscribe(c protocol.Conn, roomID string) {
	if g.onSubscribe != nil {
		g.onSubscribe(c, roomID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.subs[roomID] == nil {
		g.subs[roomID] = make(map[string]protocol.Conn)
	}
	g.subs[roomID][c.ID()] = c
}

func (g *memGateway) Unsubscribe(c protocol.Conn, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.subs[roomID], c.ID())
	if len(g.subs[roomID]) == 0 {
		delete(g.subs, roomID)
	}
}

func (g *memGateway) Publish(roomID string, msg protocol.Message, exclude string) {
	if g.onPublish != nil {
		g.onPublish(roomID, msg)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, c := range g.subs[roomID] {
		if id != exclude {
			_ = c.Send(msg)
		}
	}
}

func (g *memGateway) subscribed(roomID, connID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.subs[roomID][connID]
	return ok
}
