// Package sqlite is the single-file backend, used for local development and
// tests. It keeps one open connection, so writes are serialized.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/store"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database file (and its directory) if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	slog.Info("sqlite opened", "path", path)
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		slog.Warn("sqlite close", "err", err)
	}
}

func (s *Store) FindRoom(ctx context.Context, id string) (*domain.Room, error) {
	var (
		rm                   = domain.Room{Code: map[string]string{}}
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, queryGetRoom, id).
		Scan(&rm.ID, &rm.Name, &rm.Owner, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	rm.CreatedAt, rm.UpdatedAt = fromNanos(createdAt), fromNanos(updatedAt)

	rows, err := s.db.QueryContext(ctx, queryGetRoomCode, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var lang, code string
		if err := rows.Scan(&lang, &code); err != nil {
			return nil, err
		}
		rm.Code[lang] = code
	}
	return &rm, rows.Err()
}

func (s *Store) CreateRoom(ctx context.Context, id, name, owner string) (*domain.Room, error) {
	now := s.now().UnixNano()
	if _, err := s.db.ExecContext(ctx, queryInsertRoom, id, name, owner, now, now); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return s.FindRoom(ctx, id)
}

func (s *Store) GetBuffer(ctx context.Context, roomID, lang string) (string, bool, error) {
	var code string
	err := s.db.QueryRowContext(ctx, queryGetBuffer, roomID, lang).Scan(&code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return code, true, nil
}

func (s *Store) SetBuffer(ctx context.Context, roomID, lang, code string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now().UnixNano()
	res, err := tx.ExecContext(ctx, queryTouchRoom, now, roomID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrRoomNotFound
	}
	if _, err := tx.ExecContext(ctx, queryUpsertBuffer, roomID, lang, code, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListByOwner(ctx context.Context, owner string, limit int, cursorStr string) ([]domain.Room, string, error) {
	cur, err := store.DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}
	limit = store.ClampLimit(limit)

	var after, afterID any
	if cur != nil {
		after = cur.UpdatedAt.UnixNano()
		afterID = cur.ID
	}

	rows, err := s.db.QueryContext(ctx, queryListRoomsByOwner, owner, after, after, after, afterID, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0, limit)
	for rows.Next() {
		var (
			rm                   domain.Room
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Owner, &createdAt, &updatedAt); err != nil {
			return nil, "", err
		}
		rm.CreatedAt, rm.UpdatedAt = fromNanos(createdAt), fromNanos(updatedAt)
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if n := len(rooms); n > 0 {
		next = store.NextCursor(rooms[n-1].UpdatedAt, rooms[n-1].ID, n, limit)
	}
	return rooms, next, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	created := s.now()
	res, err := s.db.ExecContext(ctx, queryCreateUser, u.Username, u.Email, u.PasswordHash, u.Color, created.UnixNano())
	if err != nil {
		return mapSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	u.CreatedAt = fromNanos(created.UnixNano())
	return nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUser(ctx, queryGetUserByUsername, username)
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getUser(ctx, queryGetUserByID, id)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		u         domain.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Color, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u.CreatedAt = fromNanos(createdAt)
	return &u, nil
}

func mapSQLiteError(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		field := "username"
		if strings.Contains(se.Error(), "users.email") {
			field = "email"
		}
		return &domain.FieldTakenError{Field: field}
	}
	return err
}

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
