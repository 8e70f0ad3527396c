package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eduauth/internal/config"
	sl "eduauth/internal/lib/logger"
	"eduauth/internal/models"
)

const sendTimeout = 15 * time.Second

type Sender interface {
	Send(ctx context.Context, msg models.Message) error
}

// Notifier composes verification and password-reset emails and hands them to
// the configured sender on a detached goroutine. Delivery never blocks or
// fails the request that triggered it; failures are logged only.
type Notifier struct {
	log             *slog.Logger
	sender          Sender
	baseURL         string
	fromName        string
	verificationTTL time.Duration
	resetTTL        time.Duration
}

func New(log *slog.Logger, sender Sender, cfg *config.Config) *Notifier {
	return &Notifier{
		log:             log,
		sender:          sender,
		baseURL:         cfg.BaseURL,
		fromName:        cfg.SMTP.FromName,
		verificationTTL: cfg.Tokens.VerificationTokenTTL,
		resetTTL:        cfg.Tokens.ResetTokenTTL,
	}
}

func (n *Notifier) SendVerificationEmail(email, token string) {
	link := fmt.Sprintf("%s/auth/verify-email?token=%s", n.baseURL, token)

	body := fmt.Sprintf(`<html>
<body>
<p>Hello,</p>
<p>Thank you for registering with EduAuth!</p>
<p>To complete your registration and activate your account, please verify your email address by clicking the link below or using the token provided:</p>
<p><a href="%s">Verify My Email</a></p>
<p>If the link doesn't work, you can use this token: <strong>%s</strong></p>
<p>This link will expire in %.0f minutes.</p>
<p>If you did not register for an account, please ignore this email.</p>
<p>Best regards,</p>
<p>%s</p>
</body>
</html>`, link, token, n.verificationTTL.Minutes(), n.fromName)

	n.dispatch(models.Message{
		To:      email,
		Subject: "Verify Your EduAuth Account",
		Body:    body,
		HTML:    true,
	})
}

func (n *Notifier) SendPasswordResetEmail(email, token string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", n.baseURL, token)

	body := fmt.Sprintf(`<html>
<body>
<p>Hello,</p>
<p>You have requested to reset your password for your EduAuth account.</p>
<p>To reset your password, please click the link below or use the token provided:</p>
<p><a href="%s">Reset My Password</a></p>
<p>If the link doesn't work, you can use this token: <strong>%s</strong></p>
<p>This link will expire in %.0f minutes.</p>
<p>If you did not request a password reset, please ignore this email.</p>
<p>Best regards,</p>
<p>%s</p>
</body>
</html>`, link, token, n.resetTTL.Minutes(), n.fromName)

	n.dispatch(models.Message{
		To:      email,
		Subject: "EduAuth Password Reset Request",
		Body:    body,
		HTML:    true,
	})
}

func (n *Notifier) dispatch(msg models.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := n.sender.Send(ctx, msg); err != nil {
			n.log.Error("failed to send email",
				slog.String("to", msg.To),
				slog.String("subject", msg.Subject),
				sl.Err(err),
			)
		}
	}()
}
