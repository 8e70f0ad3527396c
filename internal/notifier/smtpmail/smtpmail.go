package smtpmail

import (
	"context"
	"fmt"

	"eduauth/internal/config"
	"eduauth/internal/models"

	"gopkg.in/gomail.v2"
)

// Mailer delivers messages over SMTP.
type Mailer struct {
	dialer      *gomail.Dialer
	fromName    string
	fromAddress string
}

func New(cfg config.SMTP) *Mailer {
	return &Mailer{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		fromName:    cfg.FromName,
		fromAddress: cfg.FromAddress,
	}
}

func (m *Mailer) Send(ctx context.Context, msg models.Message) error {
	const op = "smtpmail.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	mail := gomail.NewMessage()
	mail.SetHeader("To", msg.To)
	mail.SetAddressHeader("From", m.fromAddress, m.fromName)
	mail.SetHeader("Subject", msg.Subject)

	if msg.HTML {
		mail.SetBody("text/html", msg.Body)
	} else {
		mail.SetBody("text/plain", msg.Body)
	}

	if err := m.dialer.DialAndSend(mail); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
