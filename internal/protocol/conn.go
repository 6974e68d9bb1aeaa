package protocol

import (
	"context"

	"github.com/codesync/codesync-backend/internal/domain"
)

// Conn is a live client connection as seen by the coordinator and the gateway.
//
// Context is cancelled when the connection goes away, before the disconnect
// handler runs. Send must not block: implementations queue the message.
type Conn interface {
	ID() string
	Identity() domain.Identity
	Context() context.Context
	Send(msg Message) error
}
