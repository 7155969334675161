package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when there is no token to inspect.
var ErrNoSession = errors.New("session: not signed in")

// Identity is what the token says about its holder. The signature is not
// checked; the backend remains the authority.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// Identity decodes the current token's claims without verification.
func (g *Gate) Identity() (Identity, error) {
	token := g.Token()
	if token == "" {
		return Identity{}, ErrNoSession
	}
	return ParseIdentity(token)
}

// ParseIdentity decodes raw's claims without verification.
func ParseIdentity(raw string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Identity{}, fmt.Errorf("session: decode token: %w", err)
	}

	var id Identity
	if sub, err := claims.GetSubject(); err == nil {
		id.Subject = sub
	}
	if id.Subject == "" {
		if v, ok := claims["id"].(string); ok {
			id.Subject = v
		}
	}
	if v, ok := claims["email"].(string); ok {
		id.Email = v
	}
	if v, ok := claims["name"].(string); ok {
		id.Name = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}
