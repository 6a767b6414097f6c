// Package authn guards routes behind a valid session cookie. The parsed
// claims are placed on the request context for handlers downstream.
package authn

import (
	"context"
	"log/slog"
	"net/http"

	"auth_service/internal/lib/api/cookies"
	resp "auth_service/internal/lib/api/response"
	sl "auth_service/internal/lib/logger"
	"auth_service/internal/lib/token"

	"github.com/go-chi/render"
)

type ctxKey struct{}

// New rejects requests without a valid, unexpired session token. Missing
// cookie and failed verification get distinct messages; expired and
// malformed are deliberately merged for sessions.
func New(log *slog.Logger, tokens *token.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := cookies.Session(r)
			if raw == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized, please log in"))

				return
			}

			claims, err := tokens.Parse(raw, token.PurposeSession)
			if err != nil {
				log.Info("rejected session token", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid or expired token"))

				return
			}

			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), ctxKey{}, claims),
			))
		})
	}
}

// Claims returns the session claims stored by the middleware.
func Claims(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(token.Claims)
	return claims, ok
}
