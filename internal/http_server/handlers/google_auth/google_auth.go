// Package googleAuth implements the browser-facing half of Google sign-in:
// the consent redirect and the callback that turns an authorization code
// into a local session.
package googleAuth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"auth_service/internal/auth"
	"auth_service/internal/lib/api/cookies"
	sl "auth_service/internal/lib/logger"
	"auth_service/internal/oauth/google"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

const stateTTL = 10 * time.Minute

// StateStore keeps the one-time state nonce and the originating page for the
// duration of the consent round-trip.
type StateStore interface {
	SetOAuthState(ctx context.Context, state, redirectTo string, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (string, bool, error)
}

// CodeResolver exchanges an authorization code for a verified profile.
type CodeResolver interface {
	AuthCodeURL(state string) string
	ResolveCode(ctx context.Context, code string) (google.Profile, error)
}

// Begin stores a state nonce and redirects the browser to the provider's
// consent screen. An optional ?redirect= query records where to land after
// login; it is kept server-side, never round-tripped through the provider.
// Only relative paths are accepted: the callback later 302s to this value,
// so an absolute URL here would be an open redirect.
func Begin(
	log *slog.Logger,
	states StateStore,
	resolver CodeResolver,
	frontendURL string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.googleAuth.Begin"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		redirectTo := r.URL.Query().Get("redirect")
		if !isLocalPath(redirectTo) {
			redirectTo = frontendURL + "/dashboard"
		}

		state := uuid.NewString()

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := states.SetOAuthState(ctx, state, redirectTo, stateTTL); err != nil {
			log.Error("failed to store oauth state", sl.Err(err))

			http.Redirect(w, r, frontendURL+"/login?error=oauth", http.StatusFound)

			return
		}

		http.Redirect(w, r, resolver.AuthCodeURL(state), http.StatusFound)
	}
}

// isLocalPath reports whether target is a same-site relative path. "//host"
// and "/\host" are scheme-relative in browsers, so a single leading slash is
// not enough.
func isLocalPath(target string) bool {
	if !strings.HasPrefix(target, "/") {
		return false
	}
	return !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
}

// Callback resolves the provider's code into a session. Any failure sends
// the browser back to the login page with an error indicator; details stay
// in the logs.
func Callback(
	log *slog.Logger,
	states StateStore,
	resolver CodeResolver,
	authService *auth.Auth,
	frontendURL string,
	secureCookies bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.googleAuth.Callback"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		loginError := frontendURL + "/login?error=oauth"

		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if code == "" || state == "" {
			log.Warn("callback missing code or state")

			http.Redirect(w, r, loginError, http.StatusFound)

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		redirectTo, ok, err := states.ConsumeOAuthState(ctx, state)
		if err != nil {
			log.Error("failed to consume oauth state", sl.Err(err))

			http.Redirect(w, r, loginError, http.StatusFound)

			return
		}
		if !ok {
			log.Warn("unknown or replayed oauth state")

			http.Redirect(w, r, loginError, http.StatusFound)

			return
		}

		profile, err := resolver.ResolveCode(ctx, code)
		if err != nil {
			log.Error("failed to resolve authorization code", sl.Err(err))

			http.Redirect(w, r, loginError, http.StatusFound)

			return
		}

		sessionToken, created, err := authService.OAuthLogin(ctx, profile)
		if err != nil {
			if errors.Is(err, auth.ErrUnverifiedProviderEmail) {
				log.Warn("provider email not verified")
			} else {
				log.Error("oauth login failed", sl.Err(err))
			}

			http.Redirect(w, r, loginError, http.StatusFound)

			return
		}

		log.Info("oauth login succeeded", slog.Bool("created", created))

		cookies.SetSession(w, sessionToken, secureCookies)

		http.Redirect(w, r, redirectTo, http.StatusFound)
	}
}
