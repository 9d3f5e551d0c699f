// Package auth issues and verifies access tokens. Authenticated users carry
// a signed JWT; anonymous players carry an opaque cookie token that is never
// trusted by itself — it only re-associates a connection with a seat the
// session already knows about.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/farhorizons/tabletop/internal/models"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the JWT payload for authenticated users.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// NewToken signs an HS256 access token for an authenticated user.
func NewToken(secret []byte, user models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies a JWT and returns the user it identifies.
func ParseToken(secret []byte, token string) (*models.User, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &models.User{ID: id, Name: claims.Name, IsAuthenticated: true}, nil
}

const anonPrefix = "anon."

// NewAnonToken mints the cookie token handed to an anonymous player when
// they first join a session.
func NewAnonToken(playerID string) string {
	return anonPrefix + playerID
}

// PlayerIDFromAnonToken extracts the claimed player id from an anonymous
// cookie token. The claim is untrusted input: callers must check the id
// against the session's membership before honoring it.
func PlayerIDFromAnonToken(token string) (string, bool) {
	if !strings.HasPrefix(token, anonPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(token, anonPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}
