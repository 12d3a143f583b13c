package domain

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	identityContextKey contextKey = iota
	requestIDContextKey
)

// Identity is the authenticated caller, as asserted by the identity
// provider's session token. Minimal struct for context storage; the full
// user row lives in the database.
type Identity struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// NewContextWithIdentity returns a new context with the identity attached.
func NewContextWithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// IdentityFromContext retrieves the identity from context.
// Returns nil if the request is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	ident, _ := ctx.Value(identityContextKey).(*Identity)
	return ident
}

// MustIdentity retrieves the identity from context, panicking if absent.
// Only for handlers behind the auth middleware; the panic is caught by
// the recovery middleware.
func MustIdentity(ctx context.Context) *Identity {
	ident := IdentityFromContext(ctx)
	if ident == nil {
		panic("identity required in context but not found")
	}
	return ident
}

// IsAuthenticated returns true if there is an identity in context.
func IsAuthenticated(ctx context.Context) bool {
	return IdentityFromContext(ctx) != nil
}

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}
