package postgres

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	color         TEXT NOT NULL DEFAULT '#6c63ff',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT users_username_key UNIQUE (username),
	CONSTRAINT users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS rooms (
	room_id    TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	owner      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS rooms_owner_updated_idx ON rooms (owner, updated_at DESC, room_id DESC);

CREATE TABLE IF NOT EXISTS room_code (
	room_id    TEXT NOT NULL REFERENCES rooms (room_id) ON DELETE CASCADE,
	lang       TEXT NOT NULL,
	code       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (room_id, lang)
);
`

const (
	queryGetRoom = `
		SELECT room_id, name, owner, created_at, updated_at
		FROM rooms
		WHERE room_id = $1`
	queryGetRoomCode = `
		SELECT lang, code
		FROM room_code
		WHERE room_id = $1`
	// concurrent creators race on the primary key; the loser inserts nothing
	// and reads back the winner's row
	queryInsertRoom = `
		INSERT INTO rooms (room_id, name, owner)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id) DO NOTHING`
	queryGetBuffer = `
		SELECT code
		FROM room_code
		WHERE room_id = $1 AND lang = $2`
	queryTouchRoom = `
		UPDATE rooms
		SET updated_at = now()
		WHERE room_id = $1`
	queryUpsertBuffer = `
		INSERT INTO room_code (room_id, lang, code)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, lang) DO UPDATE
		SET code = EXCLUDED.code, updated_at = now()`
	queryListRoomsByOwner = `
		SELECT room_id, name, owner, created_at, updated_at
		FROM rooms
		WHERE owner = $1
		  AND ($2::timestamptz IS NULL OR updated_at < $2
		       OR (updated_at = $2 AND room_id < $3))
		ORDER BY updated_at DESC, room_id DESC
		LIMIT $4`

	queryCreateUser = `
		INSERT INTO users (username, email, password_hash, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	queryGetUserByUsername = `
		SELECT id, username, email, password_hash, color, created_at
		FROM users
		WHERE username = $1`
	queryGetUserByID = `
		SELECT id, username, email, password_hash, color, created_at
		FROM users
		WHERE id = $1`
)
