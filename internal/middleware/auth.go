package middleware

import (
	"net/http"

	"github.com/tickerdeck/tickerdeck/internal/auth"
	"github.com/tickerdeck/tickerdeck/internal/domain"
)

// RequireAuth verifies the bearer session token and stores the caller's
// identity in the request context. Requests without a valid token get a
// 401; handlers behind this middleware may use domain.MustIdentity.
func RequireAuth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				respondUnauthorized(w, r)
				return
			}

			ident, err := verifier.Verify(token)
			if err != nil {
				respondUnauthorized(w, r)
				return
			}

			ctx := domain.NewContextWithIdentity(r.Context(), ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
