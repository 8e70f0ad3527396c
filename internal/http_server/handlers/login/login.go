package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"eduauth/internal/auth"
	resp "eduauth/internal/lib/api/response"
	sl "eduauth/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Response struct {
	resp.Response
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UserLoginer interface {
	Login(ctx context.Context, email, pass string) (string, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService UserLoginer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

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

		accessToken, err := authService.Login(ctx, req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				w.Header().Set("WWW-Authenticate", "Bearer")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Incorrect email or password"))

			case errors.Is(err, auth.ErrEmailNotVerified):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Account not verified. Please verify your email."))

			case errors.Is(err, auth.ErrUserInactive):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Account is inactive. Please contact support."))

			default:
				log.Error("failed to login user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("User logged in successfully")

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			AccessToken: accessToken,
			TokenType:   "bearer",
		})
	}
}
