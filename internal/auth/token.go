// Package auth verifies identity-provider credentials: session tokens on
// API requests and signatures on provisioning webhooks. It never issues
// credentials; authentication itself is delegated to the provider.
package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tickerdeck/tickerdeck/internal/domain"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Verifier validates session tokens issued by the identity provider.
// Tokens are HS256 JWTs signed with the shared session secret; the
// subject claim carries the provider's user id.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a session token and returns the caller's
// identity. Name and email claims are optional; the subject is not.
func (v *Verifier) Verify(tokenString string) (*domain.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.Join(ErrInvalidToken, errors.New("missing subject claim"))
	}

	ident := &domain.Identity{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		ident.Email = email
	}
	if first, ok := claims["first_name"].(string); ok {
		ident.FirstName = first
	}
	if last, ok := claims["last_name"].(string); ok {
		ident.LastName = last
	}

	return ident, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingToken
	}
	return parts[1], nil
}
