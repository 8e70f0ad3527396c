package verifyEmail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"eduauth/internal/auth"
	resp "eduauth/internal/lib/api/response"
	sl "eduauth/internal/lib/logger"
	"eduauth/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	User models.UserView `json:"user"`
}

type EmailVerifier interface {
	VerifyEmail(ctx context.Context, token string) (models.User, error)
}

func New(
	log *slog.Logger,
	authService EmailVerifier,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verifyEmail.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Warn("missing verification token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid or expired verification token."))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := authService.VerifyEmail(ctx, token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid or expired verification token."))

				return
			}

			log.Error("failed to verify email", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("email verified successfully", slog.String("uid", user.ID.Hex()))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     user.View(),
		})
	}
}
