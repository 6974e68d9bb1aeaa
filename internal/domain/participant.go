package domain

import "time"

// Participant is one live connection's membership in a room. ConnID is unique per
// connection, not per account, so two tabs of the same user are two participants.
type Participant struct {
	ConnID   string
	RoomID   string
	UserID   string
	Username string
	Color    string
	JoinedAt time.Time
}
