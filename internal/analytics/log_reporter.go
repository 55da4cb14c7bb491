package analytics

import (
	"context"
	"log/slog"
)

// LogReporter writes events to structured logs. It is the default sink and
// the fallback when no webhook is configured.
type LogReporter struct {
	logger *slog.Logger
}

func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) ReportStt(ctx context.Context, event SttEvent) {
	r.logger.InfoContext(ctx, "stt session finished",
		slog.String("provider", event.Provider),
		slog.Duration("duration", event.Duration),
	)
}

func (r *LogReporter) ReportGeneration(ctx context.Context, event GenerationEvent) {
	r.logger.InfoContext(ctx, "generation finished",
		slog.String("generation_id", event.GenerationID),
		slog.String("model", event.Model),
		slog.Int("input_tokens", event.InputTokens),
		slog.Int("output_tokens", event.OutputTokens),
		slog.Int64("latency_ms", event.LatencyMS),
		slog.Int("http_status", event.HTTPStatus),
		slog.String("total_cost", event.TotalCost.String()),
	)
}
