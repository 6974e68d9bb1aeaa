package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// FindRoom loads the room together with every saved language buffer.
func (r *RoomRepository) FindRoom(ctx context.Context, id string) (*domain.Room, error) {
	rm, err := getRoom(ctx, r.db, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, queryGetRoomCode, id)
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
	return rm, rows.Err()
}

func (r *RoomRepository) CreateRoom(ctx context.Context, id, name, owner string) (*domain.Room, error) {
	if _, err := r.db.Exec(ctx, queryInsertRoom, id, name, owner); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return r.FindRoom(ctx, id)
}

func (r *RoomRepository) GetBuffer(ctx context.Context, roomID, lang string) (string, bool, error) {
	var code string
	err := r.db.QueryRow(ctx, queryGetBuffer, roomID, lang).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return code, true, nil
}

func (r *RoomRepository) SetBuffer(ctx context.Context, roomID, lang, code string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, queryTouchRoom, roomID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrRoomNotFound
		}
		_, err = tx.Exec(ctx, queryUpsertBuffer, roomID, lang, code)
		return err
	})
}

func (r *RoomRepository) ListByOwner(ctx context.Context, owner string, limit int, cursorStr string) ([]domain.Room, string, error) {
	cur, err := store.DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}
	limit = store.ClampLimit(limit)

	var updatedAt any
	var id any
	if cur != nil {
		updatedAt = cur.UpdatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, queryListRoomsByOwner, owner, updatedAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0, limit)
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Owner, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			return nil, "", err
		}
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

func getRoom(ctx context.Context, q querier, id string) (*domain.Room, error) {
	rm := domain.Room{Code: map[string]string{}}
	err := q.QueryRow(ctx, queryGetRoom, id).
		Scan(&rm.ID, &rm.Name, &rm.Owner, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}
