package resendEmail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"eduauth/internal/auth"
	resp "eduauth/internal/lib/api/response"
	sl "eduauth/internal/lib/logger"
	"eduauth/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Response struct {
	resp.Response
	Message string `json:"message"`
}

type VerificationResender interface {
	ResendVerification(ctx context.Context, email string) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService VerificationResender,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resendVerificationEmail.New"

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

		if err := authService.ResendVerification(ctx, req.Email); err != nil {
			switch {
			case errors.Is(err, storage.ErrUserNotFound):
				log.Info("User not found")

				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found."))

			case errors.Is(err, auth.ErrAlreadyVerified):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Email already verified."))

			default:
				log.Error("failed to resend verification email", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("Verification email resent")

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Verification email resent successfully.",
		})
	}
}
