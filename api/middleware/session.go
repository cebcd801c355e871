package middleware

import (
	"net/http"

	"github.com/angelmondragon/storefront-cart/internal/session"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// SessionHeader carries the cart session between the storefront and the API.
const SessionHeader = "X-Session-Id"

// Session resolves the shopper's cart session from SessionHeader. A missing
// or malformed id gets a fresh one, echoed back so the client can keep it.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := r.Header.Get(SessionHeader)
			sessionID, err := session.ParseID(raw)
			if err != nil {
				sessionID = session.NewID()
				if logg != nil && raw != "" {
					logg.Warn(logg.WithField(ctx, "session_header", raw), "session.id.invalid")
				}
			}

			w.Header().Set(SessionHeader, sessionID)
			ctx = WithSessionID(ctx, sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
