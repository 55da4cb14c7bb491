package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/voxgate/voxgate/internal/providers"
)

// Config captures the runtime configuration for the gateway service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Relay         RelayConfig         `mapstructure:"relay"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Analytics     AnalyticsConfig     `mapstructure:"analytics"`
	Billing       BillingConfig       `mapstructure:"billing"`
	Health        HealthConfig        `mapstructure:"health"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	ReadHeaderTimeout     time.Duration `mapstructure:"read_header_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
}

// ProvidersConfig holds per-vendor credentials and routing policy.
type ProvidersConfig struct {
	DeepgramAPIKey   string `mapstructure:"deepgram_api_key"`
	SonioxAPIKey     string `mapstructure:"soniox_api_key"`
	AssemblyAIAPIKey string `mapstructure:"assemblyai_api_key"`
	GladiaAPIKey     string `mapstructure:"gladia_api_key"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`

	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	AWSRegion          string `mapstructure:"aws_region"`

	Default          string            `mapstructure:"default"`
	Priority         []string          `mapstructure:"priority"`
	URLOverrides     map[string]string `mapstructure:"url_overrides"`
	APIBaseOverrides map[string]string `mapstructure:"api_base_overrides"`
}

// RelayConfig tunes the websocket relay.
type RelayConfig struct {
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxPayloadBytes int64         `mapstructure:"max_payload_bytes"`
}

// LLMConfig configures the chat completion upstream.
type LLMConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	ModelsDefault     []string      `mapstructure:"models_default"`
	ModelsToolCalling []string      `mapstructure:"models_tool_calling"`
	Timeout           time.Duration `mapstructure:"timeout"`
	AppURL            string        `mapstructure:"app_url"`
	AppName           string        `mapstructure:"app_name"`
}

// AnalyticsConfig selects the usage event sink.
type AnalyticsConfig struct {
	Sink    string                 `mapstructure:"sink"`
	Webhook AnalyticsWebhookConfig `mapstructure:"webhook"`
}

type AnalyticsWebhookConfig struct {
	URL        string        `mapstructure:"url"`
	Secret     string        `mapstructure:"secret"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// BillingConfig secures inbound billing webhooks.
type BillingConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// HealthConfig tunes provider health evaluation.
type HealthConfig struct {
	Window        time.Duration `mapstructure:"window"`
	WarnErrorRate float64       `mapstructure:"warn_error_rate"`
	FailErrorRate float64       `mapstructure:"fail_error_rate"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
}

type ObservabilityConfig struct {
	EnableMetrics bool `mapstructure:"enable_metrics"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else {
		if cfg := os.Getenv("VOXGATE_CONFIG_FILE"); cfg != "" {
			v.SetConfigFile(cfg)
			explicitFile = true
		}
	}

	if !explicitFile {
		// Allow standard lookup locations when no explicit file is provided.
		v.SetConfigName("voxgate")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("VOXGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and normalizes derived fields.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must be provided")
	}
	if c.Server.BodyLimitMB <= 0 {
		return fmt.Errorf("server.body_limit_mb must be > 0")
	}

	if c.Providers.Default != "" {
		if _, err := providers.Parse(c.Providers.Default); err != nil {
			return fmt.Errorf("providers.default: %w", err)
		}
	}
	for _, name := range c.Providers.Priority {
		if _, err := providers.Parse(name); err != nil {
			return fmt.Errorf("providers.priority: %w", err)
		}
	}
	for name := range c.Providers.URLOverrides {
		if _, err := providers.Parse(name); err != nil {
			return fmt.Errorf("providers.url_overrides: %w", err)
		}
	}
	for name := range c.Providers.APIBaseOverrides {
		if _, err := providers.Parse(name); err != nil {
			return fmt.Errorf("providers.api_base_overrides: %w", err)
		}
	}
	if (c.Providers.AWSAccessKeyID == "") != (c.Providers.AWSSecretAccessKey == "") {
		return fmt.Errorf("providers.aws_access_key_id and providers.aws_secret_access_key must be set together")
	}
	if c.Providers.AWSAccessKeyID != "" && c.Providers.AWSRegion == "" {
		return fmt.Errorf("providers.aws_region must be provided when AWS credentials are set")
	}

	if c.Relay.ConnectTimeout <= 0 {
		return fmt.Errorf("relay.connect_timeout must be > 0")
	}
	if c.Relay.MaxPayloadBytes <= 0 {
		return fmt.Errorf("relay.max_payload_bytes must be > 0")
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be > 0")
	}

	switch c.Analytics.Sink {
	case "none", "log":
	case "webhook":
		if c.Analytics.Webhook.URL == "" {
			return fmt.Errorf("analytics.webhook.url must be provided when sink is webhook")
		}
		if c.Analytics.Webhook.Secret == "" {
			return fmt.Errorf("analytics.webhook.secret must be provided when sink is webhook")
		}
		if c.Analytics.Webhook.Timeout <= 0 {
			c.Analytics.Webhook.Timeout = 5 * time.Second
		}
		if c.Analytics.Webhook.MaxRetries <= 0 {
			c.Analytics.Webhook.MaxRetries = 3
		}
	default:
		return fmt.Errorf("analytics.sink must be one of none, log, webhook")
	}

	if c.Health.Window <= 0 {
		return fmt.Errorf("health.window must be > 0")
	}
	if c.Health.WarnErrorRate <= 0 || c.Health.WarnErrorRate >= 1 {
		return fmt.Errorf("health.warn_error_rate must be between 0 and 1 exclusive")
	}
	if c.Health.FailErrorRate <= c.Health.WarnErrorRate || c.Health.FailErrorRate > 1 {
		return fmt.Errorf("health.fail_error_rate must be greater than warn_error_rate and at most 1")
	}
	if c.Health.StaleAfter <= 0 {
		return fmt.Errorf("health.stale_after must be > 0")
	}

	return nil
}

// ProviderKeys maps configured API keys by provider name.
func (c *Config) ProviderKeys() map[providers.Provider]string {
	keys := make(map[providers.Provider]string)
	set := func(p providers.Provider, key string) {
		if strings.TrimSpace(key) != "" {
			keys[p] = key
		}
	}
	set(providers.Deepgram, c.Providers.DeepgramAPIKey)
	set(providers.Soniox, c.Providers.SonioxAPIKey)
	set(providers.AssemblyAI, c.Providers.AssemblyAIAPIKey)
	set(providers.Gladia, c.Providers.GladiaAPIKey)
	set(providers.OpenAI, c.Providers.OpenAIAPIKey)
	if c.Providers.AWSAccessKeyID != "" {
		keys[providers.AmazonTranscribe] = c.Providers.AWSAccessKeyID
	}
	return keys
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 50)
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")

	v.SetDefault("providers.default", "deepgram")
	v.SetDefault("providers.priority", []string{})
	v.SetDefault("providers.url_overrides", map[string]string{})

	v.SetDefault("relay.connect_timeout", "5s")
	v.SetDefault("relay.max_payload_bytes", 5*1024*1024)

	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.models_default", []string{})
	v.SetDefault("llm.models_tool_calling", []string{})
	v.SetDefault("llm.timeout", "300s")

	v.SetDefault("analytics.sink", "log")
	v.SetDefault("analytics.webhook.timeout", "5s")
	v.SetDefault("analytics.webhook.max_retries", 3)

	v.SetDefault("health.window", "5m")
	v.SetDefault("health.warn_error_rate", 0.2)
	v.SetDefault("health.fail_error_rate", 0.5)
	v.SetDefault("health.stale_after", "10m")

	v.SetDefault("observability.enable_metrics", true)
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
