package notification

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/asoasiko/server/internal/shared/config"
)

// SMTPEmailSender sends emails via SMTP.
type SMTPEmailSender struct {
	config *config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPEmailSender creates a new SMTP email sender.
func NewSMTPEmailSender(cfg *config.SMTPConfig, logger *zap.Logger) *SMTPEmailSender {
	return &SMTPEmailSender{
		config: cfg,
		logger: logger,
	}
}

// Send delivers an HTML email to the destination address.
func (s *SMTPEmailSender) Send(ctx context.Context, destination, subject, body string) error {
	from := s.config.FromAddress
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, destination, subject, body)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.User != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.FromAddress, []string{destination}, []byte(msg)); err != nil {
		s.logger.Error("failed to send email",
			zap.String("to", destination),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("email sent", zap.String("to", destination), zap.String("subject", subject))
	return nil
}
