package notifications

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Sender delivers one plain-text email.
type Sender interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// SendGridClient sends mail through the SendGrid v3 API.
type SendGridClient struct {
	apiKey   string
	fromName string
	log      *zap.Logger
}

func NewSendGridClient(apiKey, fromName string, logger *zap.Logger) *SendGridClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridClient{apiKey: apiKey, fromName: fromName, log: logger}
}

func (c *SendGridClient) Send(ctx context.Context, from, to, subject, body string) error {
	if c.apiKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if from == "" {
		return fmt.Errorf("from address is empty")
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(c.fromName, from),
		subject,
		mail.NewEmail("", to),
		body,
		fmt.Sprintf("<pre>%s</pre>", body),
	)

	response, err := sendgrid.NewSendClient(c.apiKey).SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", response.StatusCode, response.Body)
	}

	c.log.Info("mail_sent",
		zap.Int("status", response.StatusCode),
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// LogSender writes mail to the log instead of delivering it. Used when no
// SendGrid key is configured.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, from, to, subject, body string) error {
	logger := s.Log
	if logger == nil {
		logger = zap.L()
	}
	logger.Info("mail_logged",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
