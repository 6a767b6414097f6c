package googleAuth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"auth_service/internal/auth/authtest"
	googleAuth "auth_service/internal/http_server/handlers/google_auth"
	"auth_service/internal/lib/api/cookies"
	"auth_service/internal/lib/token"
	"auth_service/internal/oauth/google"

	"github.com/stretchr/testify/require"
)

const frontendURL = "https://app.example.com"

type fakeStates struct {
	mu     sync.Mutex
	states map[string]string
	fail   bool
}

func newFakeStates() *fakeStates {
	return &fakeStates{states: make(map[string]string)}
}

func (f *fakeStates) SetOAuthState(_ context.Context, state, redirectTo string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("redis unreachable")
	}
	f.states[state] = redirectTo
	return nil
}

func (f *fakeStates) ConsumeOAuthState(_ context.Context, state string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	redirectTo, ok := f.states[state]
	delete(f.states, state)
	return redirectTo, ok, nil
}

type fakeResolver struct {
	profile google.Profile
	err     error
}

func (f *fakeResolver) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + url.QueryEscape(state)
}

func (f *fakeResolver) ResolveCode(_ context.Context, code string) (google.Profile, error) {
	if code != "good-code" {
		return google.Profile{}, errors.New("invalid_grant")
	}
	return f.profile, f.err
}

func TestBegin(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := &fakeResolver{}

	t.Run("redirects to consent screen", func(t *testing.T) {
		states := newFakeStates()
		handler := googleAuth.Begin(log, states, resolver, frontendURL)

		req := httptest.NewRequest(http.MethodGet, "/google?redirect=/settings", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusFound, rr.Code)

		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "accounts.google.com", loc.Host)

		state := loc.Query().Get("state")
		require.NotEmpty(t, state)
		require.Equal(t, "/settings", states.states[state])
	})

	t.Run("default landing page", func(t *testing.T) {
		states := newFakeStates()
		handler := googleAuth.Begin(log, states, resolver, frontendURL)

		req := httptest.NewRequest(http.MethodGet, "/google", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusFound, rr.Code)
		require.Len(t, states.states, 1)
		for _, redirectTo := range states.states {
			require.Equal(t, frontendURL+"/dashboard", redirectTo)
		}
	})

	t.Run("absolute redirect targets refused", func(t *testing.T) {
		// The callback 302s to the stored value, so anything that escapes
		// the site must fall back to the default landing page.
		for _, target := range []string{
			"https://evil.example/phish",
			"//evil.example/phish",
			`/\evil.example/phish`,
			"evil.example",
		} {
			states := newFakeStates()
			handler := googleAuth.Begin(log, states, resolver, frontendURL)

			req := httptest.NewRequest(http.MethodGet, "/google?redirect="+url.QueryEscape(target), nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			require.Equal(t, http.StatusFound, rr.Code, "redirect %q", target)
			for _, redirectTo := range states.states {
				require.Equal(t, frontendURL+"/dashboard", redirectTo, "redirect %q", target)
			}
		}
	})

	t.Run("state store down", func(t *testing.T) {
		states := newFakeStates()
		states.fail = true
		handler := googleAuth.Begin(log, states, resolver, frontendURL)

		req := httptest.NewRequest(http.MethodGet, "/google", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusFound, rr.Code)
		require.Equal(t, frontendURL+"/login?error=oauth", rr.Header().Get("Location"))
	})
}

func TestCallback(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	loginError := frontendURL + "/login?error=oauth"

	newCallback := func(t *testing.T, resolver googleAuth.CodeResolver) (http.HandlerFunc, *fakeStates, *authtest.Store, *token.Engine) {
		a, store, _, engine := authtest.New(t)
		states := newFakeStates()
		return googleAuth.Callback(log, states, resolver, a, frontendURL, false), states, store, engine
	}

	goodResolver := &fakeResolver{profile: google.Profile{
		Subject: "g-1", Email: "a@b.com", EmailVerified: true,
	}}

	t.Run("success", func(t *testing.T) {
		handler, states, store, engine := newCallback(t, goodResolver)
		require.NoError(t, states.SetOAuthState(context.Background(), "st-1", "/settings", 0))

		req := httptest.NewRequest(http.MethodGet, "/google/callback?code=good-code&state=st-1", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusFound, rr.Code)
		require.Equal(t, "/settings", rr.Header().Get("Location"))
		require.Equal(t, 1, store.Count())

		var session *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == cookies.SessionCookieName {
				session = c
			}
		}
		require.NotNil(t, session)

		claims, err := engine.Parse(session.Value, token.PurposeSession)
		require.NoError(t, err)
		require.True(t, claims.Verified)
	})

	t.Run("missing code or state", func(t *testing.T) {
		handler, _, _, _ := newCallback(t, goodResolver)

		for _, target := range []string{
			"/google/callback",
			"/google/callback?code=good-code",
			"/google/callback?state=st-1",
		} {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			require.Equal(t, http.StatusFound, rr.Code)
			require.Equal(t, loginError, rr.Header().Get("Location"))
		}
	})

	t.Run("replayed state", func(t *testing.T) {
		handler, states, _, _ := newCallback(t, goodResolver)
		require.NoError(t, states.SetOAuthState(context.Background(), "st-1", "/settings", 0))

		for i, wantLocation := range []string{"/settings", loginError} {
			req := httptest.NewRequest(http.MethodGet, "/google/callback?code=good-code&state=st-1", nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			require.Equal(t, http.StatusFound, rr.Code, "attempt %d", i)
			require.Equal(t, wantLocation, rr.Header().Get("Location"), "attempt %d", i)
		}
	})

	t.Run("bad code", func(t *testing.T) {
		handler, states, store, _ := newCallback(t, goodResolver)
		require.NoError(t, states.SetOAuthState(context.Background(), "st-1", "/settings", 0))

		req := httptest.NewRequest(http.MethodGet, "/google/callback?code=bad-code&state=st-1", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusFound, rr.Code)
		require.Equal(t, loginError, rr.Header().Get("Location"))
		require.Equal(t, 0, store.Count())
	})

	t.Run("unverified provider email", func(t *testing.T) {
		resolver := &fakeResolver{profile: google.Profile{
			Subject: "g-1", Email: "a@b.com", EmailVerified: false,
		}}
		handler, states, store, _ := newCallback(t, resolver)
		require.NoError(t, states.SetOAuthState(context.Background(), "st-1", "/settings", 0))

		req := httptest.NewRequest(http.MethodGet, "/google/callback?code=good-code&state=st-1", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusFound, rr.Code)
		require.Equal(t, loginError, rr.Header().Get("Location"))
		require.Equal(t, 0, store.Count())
	})
}
