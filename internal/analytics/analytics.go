// Package analytics reports session and generation outcomes to an operator
// sink. Reporting is best effort: a sink failure never disturbs the request
// that produced the event.
package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SttEvent records one finished realtime transcription session.
type SttEvent struct {
	Provider  string        `json:"provider"`
	Duration  time.Duration `json:"-"`
	Seconds   float64       `json:"duration_seconds"`
	Timestamp time.Time     `json:"timestamp"`
}

// GenerationEvent records one chat completion, streamed or not.
type GenerationEvent struct {
	GenerationID string          `json:"generation_id"`
	Model        string          `json:"model"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	LatencyMS    int64           `json:"latency_ms"`
	HTTPStatus   int             `json:"http_status"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Reporter receives events. Implementations must be safe for concurrent
// use and must not block on slow sinks longer than their own timeouts.
type Reporter interface {
	ReportStt(ctx context.Context, event SttEvent)
	ReportGeneration(ctx context.Context, event GenerationEvent)
}

// Nop discards every event.
type Nop struct{}

func (Nop) ReportStt(context.Context, SttEvent)               {}
func (Nop) ReportGeneration(context.Context, GenerationEvent) {}
