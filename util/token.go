package util

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	jwtSecret   []byte
	jwtSecretMu sync.RWMutex
)

// SetJWTSecret installs the HMAC secret used to validate service tokens.
// Call during startup; an empty secret disables token validation (dev mode).
func SetJWTSecret(secret string) {
	jwtSecretMu.Lock()
	defer jwtSecretMu.Unlock()
	jwtSecret = []byte(secret)
}

// JWTSecretConfigured reports whether a secret is installed.
func JWTSecretConfigured() bool {
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	return len(jwtSecret) > 0
}

// GenerateServiceToken issues a signed service token. Used by operators and
// by tests; the engine itself never mints tokens for end users.
func GenerateServiceToken(subject string, ttl time.Duration) (string, error) {
	jwtSecretMu.RLock()
	secret := jwtSecret
	jwtSecretMu.RUnlock()
	if len(secret) == 0 {
		return "", fmt.Errorf("jwt secret not configured")
	}

	claims := jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateServiceToken parses and verifies a service token.
func ValidateServiceToken(tokenString string) error {
	jwtSecretMu.RLock()
	secret := jwtSecret
	jwtSecretMu.RUnlock()
	if len(secret) == 0 {
		return fmt.Errorf("jwt secret not configured")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid service token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid service token")
	}
	return nil
}
