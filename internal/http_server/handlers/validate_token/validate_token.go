package validateToken

import (
	"net/http"

	resp "auth_service/internal/lib/api/response"

	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Message string `json:"message"`
}

// New reports whether the caller's session is valid. The authn middleware
// already rejected anything invalid, so reaching here is success.
func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Token is valid",
		})
	}
}
