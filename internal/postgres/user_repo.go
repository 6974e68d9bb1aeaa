package postgres

import (
	"context"
	"errors"

	"github.com/codesync/codesync-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts u and fills in ID and CreatedAt. A duplicate username or
// email comes back as *domain.FieldTakenError.
func (r *UserRepository) CreateUser(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx, queryCreateUser, u.Username, u.Email, u.PasswordHash, u.Color).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, queryGetUserByUsername, username)
}

func (r *UserRepository) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, queryGetUserByID, id)
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, sql, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Color,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, mapPgError(err)
	}
	return &u, nil
}
