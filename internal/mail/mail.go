// Package mail delivers one-time passwords to users. Delivery happens on
// the login path, before any policy evaluation; nothing here touches the
// decision core.
package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"geocrypt/internal/config"
)

// Sender delivers an OTP to a user.
type Sender interface {
	SendOTP(ctx context.Context, to, username, code string) error
}

// SMTPSender sends OTP mail over plain SMTP with optional auth.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender returns an SMTP-backed sender for the given configuration.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// SendOTP sends the code to the given address.
func (s *SMTPSender) SendOTP(ctx context.Context, to, username, code string) error {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your GeoCrypt verification code\r\n\r\n"+
		"Hello %s,\r\n\r\nYour one-time verification code is: %s\r\n\r\n"+
		"It expires in 5 minutes. If you did not request it, contact your administrator.\r\n",
		s.cfg.From, to, username, code)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var a smtp.Auth
	if s.cfg.Username != "" {
		a = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, a, s.cfg.From, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("send otp mail to %s: %w", to, err)
	}
	return nil
}

// LogSender logs the code instead of mailing it. Used when SMTP is not
// configured so local runs still complete the login flow.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender returns a log-backed sender.
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

// SendOTP logs the code for the operator to relay manually.
func (s *LogSender) SendOTP(ctx context.Context, to, username, code string) error {
	s.log.Warn().
		Str("to", to).
		Str("username", username).
		Str("otp", code).
		Msg("SMTP not configured, OTP logged instead of mailed")
	return nil
}
