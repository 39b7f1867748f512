package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/fashionplace-backend/api/responses"
	"github.com/angelmondragon/fashionplace-backend/pkg/auth/session"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
	"github.com/angelmondragon/fashionplace-backend/pkg/logger"
)

// SessionTokenHeader carries the anonymous shopper's token.
const SessionTokenHeader = "X-Session-Token"

// GuestSession validates the X-Session-Token header when present and stashes
// the token in the request context. Requests without the header pass
// through untouched; a token Redis no longer knows is rejected.
func GuestSession(sessions session.GuestValidator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(SessionTokenHeader))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, err := sessions.Validate(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate guest session"))
				return
			}
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown session token"))
				return
			}

			ctx := WithSessionToken(r.Context(), token)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, token)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
