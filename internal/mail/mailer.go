package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
)

// Mailer delivers one HTML email. Implementations are invoked
// fire-and-forget after commit; callers log failures and never propagate
// them.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

const sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

type sendGridMailer struct {
	apiKey string
	from   string
	client *http.Client
}

type logMailer struct {
	logger *zap.Logger
	from   string
}

// NewMailer returns a SendGrid-backed mailer, or a log-only mailer when no
// API key is configured so development environments stay self-contained.
func NewMailer(cfg config.NotificationConfig, logger *zap.Logger) Mailer {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("NOTIFY_SENDGRID_API_KEY not set; outbound mail will only be logged")
		return &logMailer{logger: logger, from: cfg.EmailFrom}
	}
	return &sendGridMailer{
		apiKey: cfg.SendGridAPIKey,
		from:   cfg.EmailFrom,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *sendGridMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": to}}},
		},
		"from":    map[string]string{"email": m.from},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/html", "value": htmlBody},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendGridEndpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

func (m *logMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.logger.Info("mail suppressed (no provider configured)",
		zap.String("from", m.from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(htmlBody)))
	return nil
}
