package domain

import "time"

// Room is the durable collaboration session. Code holds one buffer per language key.
type Room struct {
	ID        string            `db:"room_id"`
	Name      string            `db:"name"`
	Owner     string            `db:"owner"`
	Code      map[string]string `db:"-"`
	CreatedAt time.Time         `db:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"`
}

// DefaultRoomName is the label given to rooms created implicitly by a join or a save.
func DefaultRoomName(id string) string {
	return "Room " + id
}
