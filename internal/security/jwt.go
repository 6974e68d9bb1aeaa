package security

import (
	"fmt"
	"strconv"
	"time"

	"github.com/codesync/codesync-backend/internal/domain"

	"github.com/golang-jwt/jwt"
)

// JWTSigner issues and verifies HS256 access tokens. The same token
// authenticates REST calls and the websocket handshake.
type JWTSigner struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
}

func NewJWTSigner(secret []byte, issuer string, ttl, clockSkew time.Duration) *JWTSigner {
	return &JWTSigner{
		secret:    secret,
		issuer:    issuer,
		ttl:       ttl,
		clockSkew: clockSkew,
	}
}

func (s *JWTSigner) TTL() time.Duration {
	return s.ttl
}

// AccessClaims carries the profile fields clients show next to a cursor, so
// the websocket layer never has to hit the store to learn who is connected.
type AccessClaims struct {
	jwt.StandardClaims
	Username string `json:"username"`
	Email    string `json:"email"`
	Color    string `json:"color"`
}

// Valid is checked by ParseAndValidate with clock skew applied.
func (c AccessClaims) Valid() error { return nil }

// SignAccessToken issues a token with sub=user id and exp=now+ttl.
func (s *JWTSigner) SignAccessToken(u *domain.User, now time.Time) (string, error) {
	claims := AccessClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
		Username: u.Username,
		Email:    u.Email,
		Color:    u.Color,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

func (s *JWTSigner) ParseAndValidate(tokenStr string, now time.Time) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if !claims.VerifyIssuer(s.issuer, true) {
		return nil, ErrInvalidIssuer
	}

	nbf := time.Unix(claims.NotBefore, 0).Add(-s.clockSkew)
	exp := time.Unix(claims.ExpiresAt, 0).Add(s.clockSkew)
	if claims.ExpiresAt == 0 || now.Before(nbf) || now.After(exp) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

// Identity verifies tokenStr and returns the caller it names.
func (s *JWTSigner) Identity(tokenStr string) (domain.Identity, error) {
	claims, err := s.ParseAndValidate(tokenStr, time.Now())
	if err != nil {
		return domain.Identity{}, err
	}
	if _, err := SubjectAsUserID(claims); err != nil {
		return domain.Identity{}, err
	}
	color := claims.Color
	if color == "" {
		color = domain.DefaultColor
	}
	return domain.Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Color:    color,
	}, nil
}

func SubjectAsUserID(claims *AccessClaims) (int64, error) {
	if claims == nil || claims.Subject == "" {
		return 0, ErrInvalidSubject
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidSubject
	}
	return id, nil
}
