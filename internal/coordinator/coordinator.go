package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/protocol"
	"github.com/codesync/codesync-backend/internal/registry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/codesync/codesync-backend/internal/coordinator")

// Store is the slice of the persistence layer the coordinator reads from.
type Store interface {
	FindRoom(ctx context.Context, id string) (*domain.Room, error)
	CreateRoom(ctx context.Context, id, name, owner string) (*domain.Room, error)
	GetBuffer(ctx context.Context, roomID, lang string) (code string, found bool, err error)
}

// Gateway is the room-scoped pub/sub exposed by the connection layer.
type Gateway interface {
	Subscribe(c protocol.Conn, roomID string)
	Unsubscribe(c protocol.Conn, roomID string)
	Publish(roomID string, msg protocol.Message, excludeConnID string)
}

// Coordinator runs the room protocol: join, edit relay, language switch and
// disconnect. Membership lives in the registry and rooms live in the store;
// the coordinator only holds per-room locks.
//
// Edits are relayed as whole buffers and the last writer wins. There is no
// merge of concurrent edits. A joiner starts from the stored buffer; edits
// relayed before it subscribed are not replayed, the next one catches it up.
type Coordinator struct {
	store    Store
	registry *registry.Registry
	gateway  Gateway

	// coalesces concurrent find-or-create calls for the same room id
	rooms singleflight.Group

	roomLocks [64]sync.Mutex
}

// storeTimeout bounds the shared find-or-create round trip.
const storeTimeout = 10 * time.Second

func New(store Store, reg *registry.Registry, gw Gateway) *Coordinator {
	return &Coordinator{
		store:    store,
		registry: reg,
		gateway:  gw,
	}
}

// Handle decodes one inbound envelope and routes it. Unknown types and
// undecodable payloads are dropped.
func (c *Coordinator) Handle(ctx context.Context, conn protocol.Conn, in protocol.Inbound) {
	ctx, span := tracer.Start(ctx, "ws "+in.Type)
	span.SetAttributes(attribute.String("ws.conn", conn.ID()))
	defer span.End()

	var err error
	switch in.Type {
	case protocol.TypeJoin:
		var p protocol.JoinPayload
		if json.Unmarshal(in.Payload, &p) != nil {
			return
		}
		span.SetAttributes(attribute.String("ws.room", p.RoomID))
		err = c.Join(ctx, conn, p.RoomID, p.Lang)

	case protocol.TypeCodeChange:
		var p protocol.CodeChangeIn
		if json.Unmarshal(in.Payload, &p) != nil {
			return
		}
		c.EditBroadcast(conn, p.RoomID, p.Lang, p.Code)

	case protocol.TypeLangChange:
		var p protocol.LangChangeIn
		if json.Unmarshal(in.Payload, &p) != nil {
			return
		}
		span.SetAttributes(attribute.String("ws.room", p.RoomID))
		err = c.LanguageSwitch(ctx, conn, p.RoomID, p.Lang)

	default:
		slog.DebugContext(ctx, "ws unknown event", "conn", conn.ID(), "type", in.Type)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
}

// Join attaches conn to roomID, creating the room on first use, and replies
// with the participant list and the buffer for lang. On failure the joiner gets
// an error event and nothing stays registered, so the client may retry.
//
// The joiner is subscribed to room traffic only after joined is queued, so no
// peer edit can reach it ahead of the buffer it starts from.
func (c *Coordinator) Join(ctx context.Context, conn protocol.Conn, roomID, lang string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		_ = conn.Send(protocol.Error("room id is required"))
		return domain.ErrInvalidInput
	}
	if lang == "" {
		lang = domain.DefaultLanguage
	}
	ident := conn.Identity()

	if err := c.ensureRoom(ctx, roomID, ident.Username); err != nil {
		return c.fail(ctx, conn, roomID, "failed to join room", err)
	}
	code, found, err := c.store.GetBuffer(ctx, roomID, lang)
	if err != nil {
		return c.fail(ctx, conn, roomID, "failed to load code", err)
	}

	unlock := c.lockRoom(roomID)
	defer unlock()

	c.registry.Add(roomID, domain.Participant{
		ConnID:   conn.ID(),
		UserID:   ident.UserID,
		Username: ident.Username,
		Color:    ident.Color,
	})
	// the connection may have closed while the store was answering. The
	// check comes after Add: a disconnect that misses this registration has
	// already cancelled the context.
	if conn.Context().Err() != nil {
		c.registry.Remove(roomID, conn.ID())
		return nil
	}

	users := toUsers(c.registry.List(roomID))
	_ = conn.Send(protocol.Message{
		Type: protocol.TypeJoined,
		Payload: protocol.JoinedPayload{
			Users: users,
			Code:  domain.ResolveBuffer(lang, code, found),
			Lang:  lang,
		},
	})
	c.gateway.Subscribe(conn, roomID)
	c.gateway.Publish(roomID, protocol.Message{
		Type:    protocol.TypeRoomUsers,
		Payload: protocol.RoomUsersPayload{Users: users},
	}, conn.ID())

	slog.InfoContext(ctx, "ws join", "room", roomID, "conn", conn.ID(), "user", ident.Username, "participants", len(users))
	return nil
}

// EditBroadcast relays a full buffer to everyone else in the room. Nothing is
// persisted; clients save through the HTTP API.
func (c *Coordinator) EditBroadcast(conn protocol.Conn, roomID, lang, code string) {
	if !c.registry.Has(roomID, conn.ID()) {
		return
	}
	c.gateway.Publish(roomID, protocol.Message{
		Type:    protocol.TypeCodeChange,
		Payload: protocol.CodeChangePayload{Lang: lang, Code: code},
	}, conn.ID())
}

// LanguageSwitch tells the other participants which language conn moved to,
// along with that language's buffer. The sender gets no reply and is expected
// to load its own copy.
func (c *Coordinator) LanguageSwitch(ctx context.Context, conn protocol.Conn, roomID, lang string) error {
	if !c.registry.Has(roomID, conn.ID()) {
		return nil
	}
	code, found, err := c.store.GetBuffer(ctx, roomID, lang)
	if err != nil {
		return c.fail(ctx, conn, roomID, "failed to load code", err)
	}
	c.gateway.Publish(roomID, protocol.Message{
		Type:    protocol.TypeLangChange,
		Payload: protocol.LangChangePayload{Lang: lang, Code: domain.ResolveBuffer(lang, code, found)},
	}, conn.ID())
	return nil
}

// Disconnecting removes conn from every room it is in and tells whoever is
// left. Safe to call more than once and for connections that never joined.
func (c *Coordinator) Disconnecting(conn protocol.Conn) {
	for _, roomID := range c.registry.RoomsOf(conn.ID()) {
		c.leave(conn, roomID)
	}
}

func (c *Coordinator) leave(conn protocol.Conn, roomID string) {
	unlock := c.lockRoom(roomID)
	defer unlock()

	username := conn.Identity().Username
	c.gateway.Unsubscribe(conn, roomID)
	remaining, removed := c.registry.Remove(roomID, conn.ID())
	if !removed {
		return
	}
	slog.Info("ws leave", "room", roomID, "conn", conn.ID(), "user", username, "remaining", len(remaining))
	if len(remaining) == 0 {
		return
	}
	c.gateway.Publish(roomID, protocol.Message{
		Type: protocol.TypeUserLeft,
		Payload: protocol.UserLeftPayload{
			Username: username,
			Users:    toUsers(remaining),
		},
	}, conn.ID())
}

// lockRoom serializes membership changes of one room together with the
// participant list they publish, so peers see lists in registry order.
func (c *Coordinator) lockRoom(roomID string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roomID))
	mu := &c.roomLocks[h.Sum32()%uint32(len(c.roomLocks))]
	mu.Lock()
	return mu.Unlock
}

// ensureRoom finds or creates roomID. Concurrent callers share one store
// round trip, which runs detached from any single caller: a joiner that goes
// away mid-lookup does not fail the others. Each caller still stops waiting
// when its own ctx is done.
func (c *Coordinator) ensureRoom(ctx context.Context, roomID, owner string) error {
	ch := c.rooms.DoChan(roomID, func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()

		room, err := c.store.FindRoom(sctx, roomID)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return c.store.CreateRoom(sctx, roomID, domain.DefaultRoomName(roomID), owner)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) fail(ctx context.Context, conn protocol.Conn, roomID, msg string, err error) error {
	slog.WarnContext(ctx, "ws "+msg, "room", roomID, "conn", conn.ID(), "err", err)
	_ = conn.Send(protocol.Error(msg))
	return fmt.Errorf("%s: %w", msg, err)
}

func toUsers(ps []domain.Participant) []protocol.User {
	out := make([]protocol.User, 0, len(ps))
	for _, p := range ps {
		out = append(out, protocol.User{
			Username: p.Username,
			Color:    p.Color,
			SocketID: p.ConnID,
		})
	}
	return out
}
