package forgotPassword_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"auth_service/internal/auth/authtest"
	forgotPassword "auth_service/internal/http_server/handlers/forgot_password"
	resp "auth_service/internal/lib/api/response"
	"auth_service/internal/notify"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestForgotPasswordHandler(t *testing.T) {
	t.Parallel()

	a, _, notifier, _ := authtest.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, _, err := a.Register(context.Background(), "a@b.com", "Abcd1234")
	require.NoError(t, err)

	handler := forgotPassword.New(log, validator.New(), a)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/forgot-password",
			bytes.NewReader([]byte(body)))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("known account", func(t *testing.T) {
		rr := post(`{"email": "a@b.com"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var body forgotPassword.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, resp.StatusOK, body.Status)
		require.Equal(t, "Password reset email sent", body.Message)

		require.Len(t, notifier.ByPurpose(notify.PurposePasswordReset), 1)
	})

	t.Run("unknown account", func(t *testing.T) {
		rr := post(`{"email": "nobody@b.com"}`)
		require.Equal(t, http.StatusNotFound, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "User not found", body.Error)
	})

	t.Run("invalid email", func(t *testing.T) {
		rr := post(`{"email": "not-an-email"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var body resp.Response
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, "field Email is not a valid email", body.Error)
	})
}
