package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduauth/internal/auth"
	"eduauth/internal/config"
	"eduauth/internal/http_server/handlers/login"
	"eduauth/internal/http_server/handlers/protected"
	"eduauth/internal/http_server/handlers/register"
	resendEmail "eduauth/internal/http_server/handlers/resend_verification_email"
	resetConfirm "eduauth/internal/http_server/handlers/reset_password_confirm"
	resetRequest "eduauth/internal/http_server/handlers/reset_password_request"
	verifyEmail "eduauth/internal/http_server/handlers/verify_email"
	"eduauth/internal/http_server/middleware/authz"
	jwtlib "eduauth/internal/lib/jwt"
	sl "eduauth/internal/lib/logger"
	rateLimit "eduauth/internal/middleware/ratelimit"
	"eduauth/internal/notifier"
	"eduauth/internal/notifier/amqppub"
	"eduauth/internal/notifier/smtpmail"
	"eduauth/internal/storage/mongostore"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting eduauth service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := mongostore.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect mongodb", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close(context.Background())

	sender, cleanup, err := setupSender(cfg)
	if err != nil {
		log.Error("failed to set up mail sender", sl.Err(err))
		os.Exit(1)
	}
	defer cleanup()

	codec, err := jwtlib.NewCodec(
		cfg.Tokens.Secret,
		cfg.Tokens.Algorithm,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
	)
	if err != nil {
		log.Error("failed to set up token codec", sl.Err(err))
		os.Exit(1)
	}

	mailNotifier := notifier.New(log, sender, cfg)

	authService := auth.New(
		log,
		storage,
		storage,
		storage,
		mailNotifier,
		codec,
		cfg.BcryptCost,
		cfg.Tokens.VerificationTokenTTL,
		cfg.Tokens.ResetTokenTTL,
	)

	guard := authz.New(log, storage, codec)

	router := setupRouter(log, authService, guard)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	guard *authz.Guard,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.With(rateLimit.Register()).
			Post("/register", register.New(log, validate, authService))
		r.With(rateLimit.VerifyEmail()).
			Get("/verify-email", verifyEmail.New(log, authService))
		r.With(rateLimit.ResendVerificationEmail()).
			Post("/resend-verification-email", resendEmail.New(log, validate, authService))
		r.With(rateLimit.Login()).
			Post("/login", login.New(log, validate, authService))
		r.With(rateLimit.ResetPasswordRequest()).
			Post("/reset-password-request", resetRequest.New(log, validate, authService))
		r.With(rateLimit.ResetPasswordConfirm()).
			Post("/reset-password-confirm", resetConfirm.New(log, validate, authService))

		r.With(guard.RequireStudent()).
			Get("/protected/student", protected.New(log))
		r.With(guard.RequireTeacherOrAdmin()).
			Get("/protected/teacher", protected.New(log))
		r.With(guard.RequireAdmin()).
			Get("/protected/admin", protected.New(log))
		r.With(guard.RequireActive()).
			Get("/protected/any-active", protected.New(log))
	})

	return r
}

// setupSender picks the mail transport: queued via AMQP when a broker URL is
// configured (delivery happens in cmd/mailsender), direct SMTP otherwise.
func setupSender(cfg *config.Config) (notifier.Sender, func(), error) {
	if cfg.RabbitMQ.URL != "" {
		client, err := amqppub.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			return nil, nil, err
		}

		return client, client.Close, nil
	}

	return smtpmail.New(cfg.SMTP), func() {}, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
