package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/codesync/codesync-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx so repositories can run
// inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store is the postgres backend: rooms, per-language buffers and users.
type Store struct {
	pool *pgxpool.Pool
	*RoomRepository
	*UserRepository
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return &Store{
		pool:           pool,
		RoomRepository: NewRoomRepository(pool),
		UserRepository: NewUserRepository(pool),
	}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ping(ctx, s.pool) }

func (s *Store) Close() { s.pool.Close() }

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 - unique violation
		if pgErr.Code == "23505" {
			return &domain.FieldTakenError{Field: fieldFromConstraint(pgErr.ConstraintName)}
		}
	}
	return err
}

func fieldFromConstraint(name string) string {
	switch name {
	case "users_email_key":
		return "email"
	default:
		return "username"
	}
}
