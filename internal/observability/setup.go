package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Provider owns the metric pipeline: an OTel meter provider backed by a
// Prometheus exporter, plus the counters the gateway records directly.
type Provider struct {
	meterProvider *metric.MeterProvider
	promExporter  *prometheus.Exporter
	promHandler   http.Handler
	shutdownFuncs []func(context.Context) error

	httpRequestCounter  *promreg.CounterVec
	httpRequestLatency  *promreg.HistogramVec
	relaySessionCounter *promreg.CounterVec
	relayDurationHist   *promreg.HistogramVec
	llmTokensCounter    *promreg.CounterVec
	llmLatencyHist      *promreg.HistogramVec
}

func Setup(ctx context.Context, enableMetrics bool) (*Provider, error) {
	if !enableMetrics {
		return nil, nil
	}

	provider := &Provider{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("voxgate"),
		),
	)
	if err != nil {
		return nil, err
	}

	registry := promreg.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(promExporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	provider.meterProvider = mp
	provider.promExporter = promExporter
	provider.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	provider.shutdownFuncs = append(provider.shutdownFuncs, mp.Shutdown)

	httpRequests := promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: "voxgate",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	latencyBuckets := []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10}
	httpLatency := promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: "voxgate",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   latencyBuckets,
		},
		[]string{"method", "route", "status"},
	)
	relaySessions := promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: "voxgate",
			Name:      "relay_sessions_total",
			Help:      "Total realtime relay sessions by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	relayDuration := promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: "voxgate",
			Name:      "relay_session_duration_seconds",
			Help:      "Duration of realtime relay sessions.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"provider"},
	)
	llmTokens := promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: "voxgate",
			Name:      "llm_tokens_total",
			Help:      "Total prompt/completion tokens proxied.",
		},
		[]string{"model", "type"},
	)
	llmLatency := promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: "voxgate",
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of proxied chat completion requests.",
			Buckets:   latencyBuckets,
		},
		[]string{"model", "status"},
	)
	for _, collector := range []promreg.Collector{httpRequests, httpLatency, relaySessions, relayDuration, llmTokens, llmLatency} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}
	provider.httpRequestCounter = httpRequests
	provider.httpRequestLatency = httpLatency
	provider.relaySessionCounter = relaySessions
	provider.relayDurationHist = relayDuration
	provider.llmTokensCounter = llmTokens
	provider.llmLatencyHist = llmLatency

	return provider, nil
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) RecordHTTPRequest(_ context.Context, method, route string, status int, duration time.Duration) {
	if p == nil {
		return
	}

	statusLabel := strconv.Itoa(status)

	if p.httpRequestCounter != nil {
		p.httpRequestCounter.WithLabelValues(method, route, statusLabel).Inc()
	}

	if p.httpRequestLatency != nil {
		p.httpRequestLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
	}
}

// RecordRelaySession notes a finished relay session. outcome is "ok" or
// "error".
func (p *Provider) RecordRelaySession(provider string, outcome string, duration time.Duration) {
	if p == nil {
		return
	}
	if p.relaySessionCounter != nil {
		p.relaySessionCounter.WithLabelValues(provider, outcome).Inc()
	}
	if p.relayDurationHist != nil {
		p.relayDurationHist.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

func (p *Provider) RecordLLMRequest(model string, status int, duration time.Duration) {
	if p == nil || p.llmLatencyHist == nil {
		return
	}
	p.llmLatencyHist.WithLabelValues(model, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (p *Provider) RecordLLMTokens(model string, promptTokens, completionTokens int64) {
	if p == nil || p.llmTokensCounter == nil {
		return
	}
	if promptTokens > 0 {
		p.llmTokensCounter.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		p.llmTokensCounter.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}
