package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/voxgate/voxgate/internal/adapters"
	"github.com/voxgate/voxgate/internal/analytics"
	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/health"
	"github.com/voxgate/voxgate/internal/llmproxy"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/providers"
)

// Container aggregates runtime dependencies for handlers.
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	Selector      *providers.Selector
	Adapters      *adapters.Registry
	Health        *health.Registry
	Analytics     analytics.Reporter
	LLM           *llmproxy.Client
	Observability *observability.Provider
}

// NewContainer wires the service graph from configuration.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaultProvider := providers.Deepgram
	if cfg.Providers.Default != "" {
		parsed, err := providers.Parse(cfg.Providers.Default)
		if err != nil {
			return nil, err
		}
		defaultProvider = parsed
	}

	var priority []providers.Provider
	for _, name := range cfg.Providers.Priority {
		p, err := providers.Parse(name)
		if err != nil {
			return nil, err
		}
		priority = append(priority, p)
	}

	overrides := make(map[providers.Provider]string, len(cfg.Providers.URLOverrides))
	for name, u := range cfg.Providers.URLOverrides {
		p, err := providers.Parse(name)
		if err != nil {
			return nil, err
		}
		overrides[p] = u
	}

	selector := providers.NewSelector(providers.SelectorConfig{
		Keys:            cfg.ProviderKeys(),
		DefaultProvider: defaultProvider,
		Priority:        priority,
		URLOverrides:    overrides,
	})

	var awsCreds aws.CredentialsProvider
	if cfg.Providers.AWSAccessKeyID != "" {
		awsCreds = credentials.NewStaticCredentialsProvider(
			cfg.Providers.AWSAccessKeyID,
			cfg.Providers.AWSSecretAccessKey,
			"",
		)
	}

	apiBases := make(map[providers.Provider]string, len(cfg.Providers.APIBaseOverrides))
	for name, base := range cfg.Providers.APIBaseOverrides {
		p, err := providers.Parse(name)
		if err != nil {
			return nil, err
		}
		apiBases[p] = base
	}

	registry := adapters.NewRegistry(adapters.Options{
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
		APIBases:       apiBases,
		AWSRegion:      cfg.Providers.AWSRegion,
		AWSCredentials: awsCreds,
	})

	reporter, err := buildReporter(cfg.Analytics, logger)
	if err != nil {
		return nil, err
	}

	obs, err := observability.Setup(ctx, cfg.Observability.EnableMetrics)
	if err != nil {
		return nil, fmt.Errorf("observability setup: %w", err)
	}

	llm := llmproxy.NewClient(llmproxy.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		ModelsDefault:     cfg.LLM.ModelsDefault,
		ModelsToolCalling: cfg.LLM.ModelsToolCalling,
		Timeout:           cfg.LLM.Timeout,
		AppURL:            cfg.LLM.AppURL,
		AppName:           cfg.LLM.AppName,
	})

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Selector:      selector,
		Adapters:      registry,
		Health:        health.NewRegistry(cfg.Health.Window),
		Analytics:     reporter,
		LLM:           llm,
		Observability: obs,
	}, nil
}

// HealthThresholds returns the configured error-rate thresholds.
func (c *Container) HealthThresholds() health.Thresholds {
	return health.Thresholds{
		WarnErrorRate: c.Config.Health.WarnErrorRate,
		FailErrorRate: c.Config.Health.FailErrorRate,
		StaleAfter:    c.Config.Health.StaleAfter,
	}
}

func buildReporter(cfg config.AnalyticsConfig, logger *slog.Logger) (analytics.Reporter, error) {
	switch cfg.Sink {
	case "", "none":
		return analytics.Nop{}, nil
	case "log":
		return analytics.NewLogReporter(logger), nil
	case "webhook":
		return analytics.NewWebhookReporter(analytics.WebhookReporterConfig{
			URL:        cfg.Webhook.URL,
			Secret:     cfg.Webhook.Secret,
			Timeout:    cfg.Webhook.Timeout,
			MaxRetries: cfg.Webhook.MaxRetries,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown analytics sink %q", cfg.Sink)
	}
}
