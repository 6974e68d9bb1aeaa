package protocol

import "encoding/json"

// Event names carried in Message.Type. They match the browser client.
const (
	TypeJoin       = "join"        // client -> server
	TypeJoined     = "joined"      // reply to the joiner only
	TypeCodeChange = "code_change" // both directions
	TypeLangChange = "lang_change" // both directions
	TypeRoomUsers  = "room_users"  // participant list changed
	TypeUserLeft   = "user_left"   // someone disconnected
	TypeError      = "error"       // failure visible to one connection
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Inbound is the decoding side of Message; the payload is kept raw until the type is known.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type User struct {
	Username string `json:"username"`
	Color    string `json:"color"`
	SocketID string `json:"socketId"`
}

type JoinPayload struct {
	RoomID string `json:"roomId"`
	Lang   string `json:"lang"`
}

type JoinedPayload struct {
	Users []User `json:"users"`
	Code  string `json:"code"`
	Lang  string `json:"lang"`
}

// CodeChangeIn is what a client sends; the relayed CodeChangePayload drops the room id.
type CodeChangeIn struct {
	RoomID string `json:"roomId"`
	Lang   string `json:"lang"`
	Code   string `json:"code"`
}

type CodeChangePayload struct {
	Lang string `json:"lang"`
	Code string `json:"code"`
}

type LangChangeIn struct {
	RoomID string `json:"roomId"`
	Lang   string `json:"lang"`
}

type LangChangePayload struct {
	Lang string `json:"lang"`
	Code string `json:"code"`
}

type RoomUsersPayload struct {
	Users []User `json:"users"`
}

type UserLeftPayload struct {
	Username string `json:"username"`
	Users    []User `json:"users"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func Error(msg string) Message {
	return Message{Type: TypeError, Payload: ErrorPayload{Message: msg}}
}
