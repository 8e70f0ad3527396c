package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"eduauth/internal/config"
	sl "eduauth/internal/lib/logger"
	"eduauth/internal/models"
	"eduauth/internal/notifier/amqppub"
	"eduauth/internal/notifier/smtpmail"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// mailsender drains the mail queue and delivers each message over SMTP. Run
// it alongside the API when a RabbitMQ URL is configured.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad("./config/config.yaml")
	log := setupLogger(cfg.Env)

	log.Info("starting mailsender", slog.String("env", cfg.Env))

	if cfg.RabbitMQ.URL == "" {
		log.Error("rabbitmq url is not configured")
		os.Exit(1)
	}

	client, err := amqppub.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer client.Close()

	mailer := smtpmail.New(cfg.SMTP)

	done := make(chan struct{})

	go func() {
		defer close(done)

		err := client.StartReading(ctx, func(raw []byte) {
			var msg models.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Error("failed to unmarshal message", sl.Err(err))
				return
			}

			if err := mailer.Send(ctx, msg); err != nil {
				log.Error("failed to send message", slog.String("to", msg.To), sl.Err(err))
				return
			}

			log.Info("message sent successfully", slog.String("to", msg.To))
		})
		if err != nil {
			log.Error("failed to start reading", sl.Err(err))
			return
		}
	}()

	log.Info("consumer successfully started")

	select {
	case <-ctx.Done():
		log.Info("shutting down consumer...")
	case <-done:
		log.Info("consumer finished the work")
	}

	log.Info("service gracefully stopped")
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
