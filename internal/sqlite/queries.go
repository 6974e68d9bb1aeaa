package sqlite

// timestamps are unix nanoseconds so that ordering and cursors keep full
// precision
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	color         TEXT NOT NULL DEFAULT '#6c63ff',
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	room_id    TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	owner      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rooms_owner_updated ON rooms(owner, updated_at DESC, room_id DESC);

CREATE TABLE IF NOT EXISTS room_code (
	room_id    TEXT NOT NULL,
	lang       TEXT NOT NULL,
	code       TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (room_id, lang),
	FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE
);
`

const (
	queryGetRoom          = `SELECT room_id, name, owner, created_at, updated_at FROM rooms WHERE room_id = ?`
	queryGetRoomCode      = `SELECT lang, code FROM room_code WHERE room_id = ?`
	queryInsertRoom       = `INSERT OR IGNORE INTO rooms (room_id, name, owner, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	queryGetBuffer        = `SELECT code FROM room_code WHERE room_id = ? AND lang = ?`
	queryTouchRoom        = `UPDATE rooms SET updated_at = ? WHERE room_id = ?`
	queryUpsertBuffer     = `
		INSERT INTO room_code (room_id, lang, code, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (room_id, lang) DO UPDATE SET code = excluded.code, updated_at = excluded.updated_at`
	queryListRoomsByOwner = `
		SELECT room_id, name, owner, created_at, updated_at
		FROM rooms
		WHERE owner = ?
		  AND (? IS NULL OR updated_at < ? OR (updated_at = ? AND room_id < ?))
		ORDER BY updated_at DESC, room_id DESC
		LIMIT ?`

	queryCreateUser        = `INSERT INTO users (username, email, password_hash, color, created_at) VALUES (?, ?, ?, ?, ?)`
	queryGetUserByUsername = `SELECT id, username, email, password_hash, color, created_at FROM users WHERE username = ?`
	queryGetUserByID       = `SELECT id, username, email, password_hash, color, created_at FROM users WHERE id = ?`
)
