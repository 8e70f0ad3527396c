package resetConfirm

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
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type Response struct {
	resp.Response
	User models.UserView `json:"user"`
}

type PasswordResetConfirmer interface {
	ConfirmPasswordReset(ctx context.Context, token, newPass string) (models.User, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService PasswordResetConfirmer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resetPasswordConfirm.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := authService.ConfirmPasswordReset(ctx, req.Token, req.NewPassword)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid or expired password reset token."))

				return
			}

			log.Error("failed to confirm password reset", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("password reset confirmed", slog.String("uid", user.ID.Hex()))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     user.View(),
		})
	}
}
