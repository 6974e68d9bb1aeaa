package security

import (
	"golang.org/x/crypto/bcrypt"
)

type BcryptConfig struct {
	Cost      int // bcrypt.DefaultCost when zero
	MinLength int // 6 when zero
}

func (c *BcryptConfig) minLength() int {
	if c != nil && c.MinLength > 0 {
		return c.MinLength
	}
	return 6
}

// CheckPasswordLength reports ErrPasswordTooShort without hashing.
func CheckPasswordLength(plain string, cfg *BcryptConfig) error {
	if len(plain) < cfg.minLength() {
		return ErrPasswordTooShort
	}
	return nil
}

func HashPassword(plain string, cfg *BcryptConfig) (string, error) {
	if err := CheckPasswordLength(plain, cfg); err != nil {
		return "", err
	}
	cost := bcrypt.DefaultCost
	if cfg != nil && cfg.Cost > 0 {
		cost = cfg.Cost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

func ComparePassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
