package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"flowtrack/platform/config"
	"flowtrack/platform/logger"
)

// WebhookSender posts TDDM notifications to the configured automation hook.
// A nil sender (webhook disabled) silently drops notifications.
type WebhookSender struct {
	url  string
	http *http.Client
	log  *logger.Logger
}

var _ Sender = (*WebhookSender)(nil)

func NewWebhookSender(cfg config.WebhookConfig, log *logger.Logger) *WebhookSender {
	if !cfg.IsWebhookEnabled() {
		return nil
	}
	return &WebhookSender{
		url:  cfg.GetTDDMWebhookURL(),
		http: &http.Client{Timeout: cfg.GetWebhookTimeout()},
		log:  log,
	}
}

func (s *WebhookSender) SendTDDM(ctx context.Context, payload TDDMNotification) error {
	if s == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal TDDM payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		s.log.WebhookEvent(payload.CRN, false, err.Error())
		return fmt.Errorf("TDDM webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.log.WebhookEvent(payload.CRN, false, fmt.Sprintf("status %d", resp.StatusCode))
		return fmt.Errorf("TDDM webhook returned status %d: %s", resp.StatusCode, string(text))
	}

	// The automation platform replies with plain text ("Accepted"); drain it
	// so the connection can be reused.
	io.Copy(io.Discard, resp.Body)
	s.log.WebhookEvent(payload.CRN, true, "")
	return nil
}
