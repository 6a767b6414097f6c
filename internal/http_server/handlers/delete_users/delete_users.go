package deleteUsers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "auth_service/internal/lib/api/response"
	sl "auth_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Purger interface {
	DeleteAllUsers(ctx context.Context) (int64, error)
}

type Response struct {
	resp.Response
	Deleted int64 `json:"deleted"`
}

// New is the bulk purge maintenance hook. It is not part of the account
// lifecycle and should not be routable in production deployments.
func New(log *slog.Logger, purger Purger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.deleteUsers.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		deleted, err := purger.DeleteAllUsers(ctx)
		if err != nil {
			log.Error("failed to delete users", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Warn("all users deleted", slog.Int64("count", deleted))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Deleted:  deleted,
		})
	}
}
