package domain

import "time"

const DefaultColor = "#6c63ff"

type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Color        string    `db:"color"`
	CreatedAt    time.Time `db:"created_at"`
}

// Identity is the verified caller attached to a request or a websocket connection.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Color    string
}
