package http

import "time"

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserItem struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Color    string `json:"color"`
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  UserItem `json:"user"`
}

type MeResponse struct {
	User UserItem `json:"user"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type SaveCodeRequest struct {
	Lang string `json:"lang"`
	Code string `json:"code"`
}

type RoomItem struct {
	RoomID      string            `json:"roomId"`
	Name        string            `json:"name"`
	Owner       string            `json:"owner"`
	Code        map[string]string `json:"code,omitempty"`
	ActiveUsers int               `json:"activeUsers"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type RoomResponse struct {
	Room RoomItem `json:"room"`
}

type RoomsListResponse struct {
	Rooms      []RoomItem `json:"rooms"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

type StatsResponse struct {
	ActiveRooms  int `json:"activeRooms"`
	Participants int `json:"participants"`
}
