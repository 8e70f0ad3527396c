package protected

import (
	"log/slog"
	"net/http"

	"eduauth/internal/http_server/middleware/authz"
	resp "eduauth/internal/lib/api/response"
	"eduauth/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	User models.UserView `json:"user"`
}

// New returns the caller's own public account view. All access decisions are
// made by the guard chain mounted in front of this handler.
func New(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.protected.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := authz.Principal(r.Context())
		if !ok {
			log.Error("no principal in request context")

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     user.View(),
		})
	}
}
