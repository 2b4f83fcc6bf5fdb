package backend

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kilupskalvis/talentflow/internal/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body when a secret is
// configured.
const SignatureHeader = "X-TalentFlow-Signature"

// WebhookEvent represents the payload sent to webhook URLs.
type WebhookEvent struct {
	Event         string       `json:"event"`
	CandidateID   string       `json:"candidateId"`
	CandidateName string       `json:"candidateName"`
	PreviousStage models.Stage `json:"previousStage"`
	NewStage      models.Stage `json:"newStage"`
	Author        string       `json:"author"`
	Timestamp     string       `json:"timestamp"`
}

// WebhookConfig holds the configured webhook URLs and signing secret.
type WebhookConfig struct {
	URLs   []string
	Secret string
	Retry  time.Duration // base delay between delivery attempts
}

// WebhookNotifier sends HTTP POST notifications to configured webhook URLs.
type WebhookNotifier struct {
	config *WebhookConfig
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewWebhookNotifier creates a webhook notifier. Returns nil if no URLs are configured.
func NewWebhookNotifier(cfg *WebhookConfig, logger *slog.Logger) *WebhookNotifier {
	if cfg == nil || len(cfg.URLs) == 0 {
		return nil
	}
	if cfg.Retry <= 0 {
		cfg.Retry = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// NotifyStageChange sends a stage_change event to all configured URLs.
// Runs asynchronously and does not block the caller.
func (wn *WebhookNotifier) NotifyStageChange(c *models.Candidate, ev *models.TimelineEvent) {
	if wn == nil {
		return
	}

	event := &WebhookEvent{
		Event:         string(models.EventStageChange),
		CandidateID:   c.ID,
		CandidateName: c.Name,
		PreviousStage: ev.PreviousStage,
		NewStage:      ev.NewStage,
		Author:        ev.Author,
		Timestamp:     ev.CreatedAt.UTC().Format(time.RFC3339),
	}

	wn.wg.Add(1)
	go func() {
		defer wn.wg.Done()
		wn.send(event)
	}()
}

// Wait blocks until every pending delivery has finished.
func (wn *WebhookNotifier) Wait() {
	if wn == nil {
		return
	}
	wn.wg.Wait()
}

// send delivers the webhook event to all configured URLs.
func (wn *WebhookNotifier) send(event *WebhookEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		wn.logger.Error("webhook: marshal event", "error", err)
		return
	}

	for _, url := range wn.config.URLs {
		if err := wn.post(url, data); err != nil {
			wn.logger.Warn("webhook: delivery failed", "url", url, "error", err)
		} else {
			wn.logger.Debug("webhook: delivered", "url", url, "event", event.Event)
		}
	}
}

// Sign returns the hex HMAC-SHA256 of data under secret.
func Sign(secret string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// post sends a single webhook POST with retry (up to 2 retries).
func (wn *WebhookNotifier) post(url string, data []byte) error {
	const maxRetries = 2

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "talentflow-server/1.0")
		if wn.config.Secret != "" {
			req.Header.Set(SignatureHeader, "sha256="+Sign(wn.config.Secret, data))
		}

		resp, err := wn.client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * wn.config.Retry)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
		if resp.StatusCode < 500 {
			return lastErr // don't retry 4xx
		}
		time.Sleep(time.Duration(attempt+1) * wn.config.Retry)
	}

	return lastErr
}
