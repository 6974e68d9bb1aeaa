package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/registry"
	"github.com/codesync/codesync-backend/internal/store"

	"github.com/google/uuid"
)

// RoomView is a room plus how many connections are in it right now.
type RoomView struct {
	domain.Room
	ActiveUsers int
}

type Stats struct {
	ActiveRooms  int
	Participants int
}

type RoomService struct {
	rooms    store.RoomStore
	registry *registry.Registry
	newCode  func() string
}

func NewRoomService(rooms store.RoomStore, reg *registry.Registry) *RoomService {
	return &RoomService{
		rooms:    rooms,
		registry: reg,
		newCode:  NewRoomCode,
	}
}

// NewRoomCode returns an 8 character upper-case room code.
func NewRoomCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// CreateRoom creates a room under a fresh code. An empty name falls back to
// the default "Room <code>" label.
func (s *RoomService) CreateRoom(ctx context.Context, owner, name string) (*RoomView, error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		code := s.newCode()
		_, err := s.rooms.FindRoom(ctx, code)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrRoomNotFound) {
			return nil, fmt.Errorf("rooms.FindRoom: %w", err)
		}

		label := strings.TrimSpace(name)
		if label == "" {
			label = domain.DefaultRoomName(code)
		}
		room, err := s.rooms.CreateRoom(ctx, code, label, owner)
		if err != nil {
			return nil, fmt.Errorf("rooms.CreateRoom: %w", err)
		}
		slog.Info("room created", "room", room.ID, "owner", owner)
		return s.view(room), nil
	}
	return nil, errors.New("could not allocate a free room code")
}

// GetRoom returns the room with every saved buffer.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*RoomView, error) {
	room, err := s.rooms.FindRoom(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return s.view(room), nil
}

// ListRooms returns owner's rooms, most recently updated first.
func (s *RoomService) ListRooms(ctx context.Context, owner string, limit int, cursor string) ([]RoomView, string, error) {
	rooms, next, err := s.rooms.ListByOwner(ctx, owner, limit, cursor)
	if err != nil {
		return nil, "", err
	}
	out := make([]RoomView, 0, len(rooms))
	for i := range rooms {
		out = append(out, *s.view(&rooms[i]))
	}
	return out, next, nil
}

// SaveCode stores one language buffer, creating the room on first save with
// the caller as owner.
func (s *RoomService) SaveCode(ctx context.Context, caller domain.Identity, id, lang, code string) error {
	id = strings.TrimSpace(id)
	lang = strings.TrimSpace(lang)
	if id == "" {
		return &domain.ValidationError{Msg: "room id required"}
	}
	if lang == "" {
		return &domain.ValidationError{Msg: "lang required"}
	}

	err := s.rooms.SetBuffer(ctx, id, lang, code)
	if errors.Is(err, domain.ErrRoomNotFound) {
		if _, err = s.rooms.CreateRoom(ctx, id, domain.DefaultRoomName(id), caller.Username); err != nil {
			return fmt.Errorf("rooms.CreateRoom: %w", err)
		}
		err = s.rooms.SetBuffer(ctx, id, lang, code)
	}
	if err != nil {
		return fmt.Errorf("rooms.SetBuffer: %w", err)
	}
	return nil
}

func (s *RoomService) Stats() Stats {
	return Stats{
		ActiveRooms:  s.registry.RoomCount(),
		Participants: s.registry.ParticipantCount(),
	}
}

func (s *RoomService) view(room *domain.Room) *RoomView {
	return &RoomView{Room: *room, ActiveUsers: len(s.registry.List(room.ID))}
}
