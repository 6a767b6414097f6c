package resetPassword_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"auth_service/internal/auth"
	"auth_service/internal/auth/authtest"
	resetPassword "auth_service/internal/http_server/handlers/reset_password"
	resp "auth_service/internal/lib/api/response"
	"auth_service/internal/notify"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestResetPasswordHandler(t *testing.T) {
	t.Parallel()

	a, _, notifier, _ := authtest.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	_, _, err := a.Register(ctx, "a@b.com", "Abcd1234")
	require.NoError(t, err)
	require.NoError(t, a.ForgotPassword(ctx, "a@b.com"))

	resetToken := notifier.ByPurpose(notify.PurposePasswordReset)[0].Token

	handler := resetPassword.New(log, validator.New(), a)

	post := func(rawToken, pass string) *httptest.ResponseRecorder {
		payload, err := json.Marshal(map[string]string{"token": rawToken, "password": pass})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/reset-password",
			bytes.NewReader(payload))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("same password", func(t *testing.T) {
		rr := post(resetToken, "Abcd1234")
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "New password must differ from the current one", body.Error)
	})

	t.Run("short password", func(t *testing.T) {
		rr := post(resetToken, "short")
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "field Pass is too short", body.Error)
	})

	t.Run("malformed token", func(t *testing.T) {
		rr := post("garbage", "NewPass99")
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "Invalid token", body.Error)
	})

	t.Run("success then replay", func(t *testing.T) {
		rr := post(resetToken, "NewPass99")
		require.Equal(t, http.StatusOK, rr.Code)

		var body resetPassword.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, resp.StatusOK, body.Status)
		require.Equal(t, "Password reset successfully", body.Message)

		_, err := a.Login(ctx, "a@b.com", "NewPass99")
		require.NoError(t, err)
		_, err = a.Login(ctx, "a@b.com", "Abcd1234")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)

		rr = post(resetToken, "Another11")
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		var replay resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&replay))
		require.Equal(t, "Invalid token", replay.Error)
	})
}
