package public

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/voxgate/voxgate/internal/analytics"
	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.ListenAddr = ":0"
	cfg.Server.BodyLimitMB = 20
	cfg.Providers.Default = "deepgram"
	cfg.Providers.DeepgramAPIKey = "dg-test"
	cfg.Relay.ConnectTimeout = 2 * time.Second
	cfg.Relay.MaxPayloadBytes = 5 << 20
	cfg.LLM.APIKey = "or-test"
	cfg.LLM.Timeout = 5 * time.Second
	cfg.Analytics.Sink = "none"
	cfg.Health.Window = 5 * time.Minute
	cfg.Health.WarnErrorRate = 0.2
	cfg.Health.FailErrorRate = 0.5
	return cfg
}

// capturingReporter retains events for assertions.
type capturingReporter struct {
	mu          sync.Mutex
	sttEvents   []analytics.SttEvent
	generations []analytics.GenerationEvent
}

func (r *capturingReporter) ReportStt(_ context.Context, event analytics.SttEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sttEvents = append(r.sttEvents, event)
}

func (r *capturingReporter) ReportGeneration(_ context.Context, event analytics.GenerationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations = append(r.generations, event)
}

func (r *capturingReporter) lastGeneration() (analytics.GenerationEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.generations) == 0 {
		return analytics.GenerationEvent{}, false
	}
	return r.generations[len(r.generations)-1], true
}

func (r *capturingReporter) sttCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sttEvents)
}

func newTestApp(t *testing.T, cfg *config.Config) (*fiber.App, *app.Container, *capturingReporter) {
	t.Helper()

	container, err := app.NewContainer(t.Context(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	reporter := &capturingReporter{}
	container.Analytics = reporter

	fapp := fiber.New(fiber.Config{DisableStartupMessage: true})
	Register(fapp, container)
	return fapp, container, reporter
}
