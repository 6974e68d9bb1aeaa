package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/security"
	"github.com/codesync/codesync-backend/internal/store"
)

type AuthResult struct {
	User        *domain.User
	AccessToken string
}

type AuthService struct {
	users      store.UserStore
	jwt        *security.JWTSigner
	passPolicy security.BcryptConfig
	now        func() time.Time
}

func NewAuthService(
	users store.UserStore,
	jwt *security.JWTSigner,
	passPolicy security.BcryptConfig,
	now func() time.Time,
) *AuthService {
	if now == nil {
		now = time.Now
	}

	return &AuthService{
		users:      users,
		jwt:        jwt,
		passPolicy: passPolicy,
		now:        now,
	}
}

// Register creates an account. Username and email are stored trimmed and
// lower-cased, so both are case-insensitive on login.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = normalize(username)
	email = normalize(email)
	if username == "" || email == "" || password == "" {
		return nil, &domain.ValidationError{Msg: "All fields required"}
	}
	if err := security.CheckPasswordLength(password, &s.passPolicy); err != nil {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("Password min %d chars", s.minLength())}
	}

	hash, err := security.HashPassword(password, &s.passPolicy)
	if err != nil {
		slog.Error("auth.register.hashPassword failed", slog.Any("err", err))
		return nil, err
	}

	u := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Color:        domain.DefaultColor,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if !errors.Is(err, domain.ErrUserExists) {
			slog.Error("auth.register.createUser failed", slog.Any("err", err))
		}
		return nil, err
	}

	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = normalize(username)
	if username == "" || password == "" {
		return nil, &domain.ValidationError{Msg: "Fields required"}
	}

	u, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := security.ComparePassword(u.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(u)
}

// Me loads the account behind a verified identity.
func (s *AuthService) Me(ctx context.Context, ident domain.Identity) (*domain.User, error) {
	id, err := strconv.ParseInt(ident.UserID, 10, 64)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return s.users.FindUserByID(ctx, id)
}

// Authenticate verifies an access token.
func (s *AuthService) Authenticate(token string) (domain.Identity, error) {
	return s.jwt.Identity(token)
}

func (s *AuthService) issue(u *domain.User) (*AuthResult, error) {
	token, err := s.jwt.SignAccessToken(u, s.now())
	if err != nil {
		slog.Error("auth.signAccessToken failed", slog.Any("err", err))
		return nil, err
	}
	return &AuthResult{User: u, AccessToken: token}, nil
}

func (s *AuthService) minLength() int {
	if s.passPolicy.MinLength > 0 {
		return s.passPolicy.MinLength
	}
	return 6
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
