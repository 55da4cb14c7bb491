package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/voxgate/voxgate/internal/webhook"
)

// WebhookReporterConfig wires a signed HTTP sink.
type WebhookReporterConfig struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
}

// WebhookReporter posts events to an operator endpoint, signing each body
// so the receiver can authenticate the gateway.
type WebhookReporter struct {
	url        string
	secret     string
	client     *http.Client
	maxRetries int
	logger     *slog.Logger
}

func NewWebhookReporter(cfg WebhookReporterConfig, logger *slog.Logger) *WebhookReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &WebhookReporter{
		url:        cfg.URL,
		secret:     cfg.Secret,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

type envelope struct {
	Type  string `json:"type"`
	Event any    `json:"event"`
}

func (r *WebhookReporter) ReportStt(ctx context.Context, event SttEvent) {
	event.Seconds = event.Duration.Seconds()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	r.deliver(ctx, envelope{Type: "stt.session", Event: event})
}

func (r *WebhookReporter) ReportGeneration(ctx context.Context, event GenerationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	r.deliver(ctx, envelope{Type: "llm.generation", Event: event})
}

func (r *WebhookReporter) deliver(ctx context.Context, payload envelope) {
	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("marshal analytics event", slog.String("error", err.Error()))
		return
	}
	if err := r.postWithRetries(ctx, body); err != nil {
		r.logger.Warn("analytics delivery failed",
			slog.String("type", payload.Type),
			slog.String("error", err.Error()))
	}
}

func (r *WebhookReporter) postWithRetries(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		if err := r.post(ctx, body); err != nil {
			lastErr = err
			delay := time.Duration(attempt) * 250 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		return nil
	}
	return lastErr
}

func (r *WebhookReporter) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		req.Header.Set(webhook.SignatureHeader, webhook.Sign(r.secret, body))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
