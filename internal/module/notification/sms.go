package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asoasiko/server/internal/shared/config"
)

// TwilioSMSSender sends SMS messages through the Twilio REST API.
// The subject argument of Send is ignored; SMS has no subject line.
type TwilioSMSSender struct {
	config *config.SMSConfig
	client *http.Client
	logger *zap.Logger
}

// NewTwilioSMSSender creates a new Twilio SMS sender.
func NewTwilioSMSSender(cfg *config.SMSConfig, logger *zap.Logger) *TwilioSMSSender {
	return &TwilioSMSSender{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Send delivers an SMS to the destination phone number.
func (s *TwilioSMSSender) Send(ctx context.Context, destination, subject, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(s.config.BaseURL, "/"), s.config.AccountSID)

	form := url.Values{}
	form.Set("To", destination)
	form.Set("From", s.config.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("failed to send sms", zap.String("to", destination), zap.Error(err))
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Error("sms provider rejected message",
			zap.String("to", destination),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
		)
		return fmt.Errorf("send sms: provider returned status %d", resp.StatusCode)
	}

	s.logger.Info("sms sent", zap.String("to", destination))
	return nil
}
