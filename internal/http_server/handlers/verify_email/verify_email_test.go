package verifyEmail_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"auth_service/internal/auth/authtest"
	verifyEmail "auth_service/internal/http_server/handlers/verify_email"
	resp "auth_service/internal/lib/api/response"
	"auth_service/internal/lib/token"
	"auth_service/internal/notify"

	"github.com/stretchr/testify/require"
)

func TestVerifyEmailHandler(t *testing.T) {
	t.Parallel()

	a, store, notifier, engine := authtest.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	uid, _, err := a.Register(context.Background(), "a@b.com", "Abcd1234")
	require.NoError(t, err)

	verifyToken := notifier.ByPurpose(notify.PurposeEmailVerify)[0].Token

	handler := verifyEmail.New(log, a)

	get := func(rawToken string) *httptest.ResponseRecorder {
		target := "/verify-email"
		if rawToken != "" {
			target += "?token=" + url.QueryEscape(rawToken)
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("missing token", func(t *testing.T) {
		rr := get("")
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "Missing token", body.Error)
	})

	t.Run("malformed token", func(t *testing.T) {
		rr := get("garbage")
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "Invalid token", body.Error)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := engine.Issue(uid, token.PurposeEmailVerify, -time.Second, false)
		require.NoError(t, err)

		rr := get(expired)
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "Token expired", body.Error)
	})

	t.Run("session token refused", func(t *testing.T) {
		session, err := engine.Issue(uid, token.PurposeSession, time.Hour, false)
		require.NoError(t, err)

		rr := get(session)
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "Invalid token", body.Error)
	})

	t.Run("valid token, twice", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rr := get(verifyToken)
			require.Equal(t, http.StatusOK, rr.Code)

			var body verifyEmail.Response
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			require.Equal(t, resp.StatusOK, body.Status)
			require.Equal(t, "Email verified successfully", body.Message)
		}

		u, err := store.UserByID(context.Background(), uid)
		require.NoError(t, err)
		require.True(t, u.Verified)
	})

	t.Run("subject deleted", func(t *testing.T) {
		store.Delete(uid)

		rr := get(verifyToken)
		require.Equal(t, http.StatusNotFound, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "User not found", body.Error)
	})
}
