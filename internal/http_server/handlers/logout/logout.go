package logout

import (
	"log/slog"
	"net/http"

	"auth_service/internal/lib/api/cookies"
	resp "auth_service/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Message string `json:"message"`
}

// New clears the session cookie. Tokens are stateless, so nothing is
// invalidated server-side; a copied token stays valid until expiry.
func New(log *slog.Logger, secureCookies bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		cookies.ClearSession(w, secureCookies)

		log.Info("user logged out")

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Logged out successfully",
		})
	}
}
