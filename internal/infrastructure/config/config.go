package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/internal/providers"
	"github.com/cassiomorais/giftpay/pkg/retry"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "GIFTPAY"

var knownProviders = []payment.ProviderType{
	payment.ProviderAbacatePay,
	payment.ProviderStripe,
	payment.ProviderMercadoPago,
}

type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Poller        PollerConfig        `mapstructure:"poller"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"` // requests per minute per client IP
	CORS            CORSConfig    `mapstructure:"cors"`
	// AuthSecret signs the service tokens of API callers. Empty disables authentication.
	AuthSecret          string        `mapstructure:"auth_secret"`
	HSTSMaxAge          time.Duration `mapstructure:"hsts_max_age"` // zero disables HSTS
	TrustForwardedProto bool          `mapstructure:"trust_forwarded_proto"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
	OriginTTL         time.Duration `mapstructure:"origin_ttl"`
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
}

type PaymentConfig struct {
	DefaultPixProvider         string        `mapstructure:"default_pix_provider"`
	DefaultCardProvider        string        `mapstructure:"default_card_provider"`
	ProviderOrder              []string      `mapstructure:"provider_order"`
	StatusRetryAttempts        uint          `mapstructure:"status_retry_attempts"`
	StatusRetryDelay           time.Duration `mapstructure:"status_retry_delay"`
	CircuitBreakerMinRequests  uint32        `mapstructure:"circuit_breaker_min_requests"`
	CircuitBreakerFailureRatio float64       `mapstructure:"circuit_breaker_failure_ratio"`
	CircuitBreakerTimeout      time.Duration `mapstructure:"circuit_breaker_timeout"`
	CircuitBreakerInterval     time.Duration `mapstructure:"circuit_breaker_interval"`
	// MockProvider registers the in-memory gateway. Never allowed in production.
	MockProvider bool `mapstructure:"mock_provider"`
}

// ProviderConfig holds one gateway's credentials. A provider is configured iff APIKey is set.
type ProviderConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Environment string        `mapstructure:"environment"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ProvidersConfig struct {
	AbacatePay  ProviderConfig `mapstructure:"abacatepay"`
	Stripe      ProviderConfig `mapstructure:"stripe"`
	MercadoPago ProviderConfig `mapstructure:"mercadopago"`
}

type PollerConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
}

// WorkerConfig tunes the status worker that follows created payments.
type WorkerConfig struct {
	BatchSize     int64         `mapstructure:"batch_size"`
	BlockDuration time.Duration `mapstructure:"block_duration"`
	ConsumerGroup string        `mapstructure:"consumer_group"`
	MaxInFlight   int           `mapstructure:"max_in_flight"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
	ServiceName    string `mapstructure:"service_name"`
}

func Load() (*Config, error) {
	// .env is a local convenience; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/giftpay")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Redis.Enabled && c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}

	configured := c.configuredProviders()
	for key, name := range map[string]string{
		"payment.default_pix_provider":  c.Payment.DefaultPixProvider,
		"payment.default_card_provider": c.Payment.DefaultCardProvider,
	} {
		if name == "" {
			continue
		}
		if !slices.Contains(knownProviders, payment.ProviderType(name)) {
			errs = append(errs, fmt.Errorf("%s: unknown provider %q", key, name))
		} else if _, ok := configured[payment.ProviderType(name)]; !ok {
			errs = append(errs, fmt.Errorf("%s: provider %q has no api_key", key, name))
		}
	}
	for _, name := range c.Payment.ProviderOrder {
		if !slices.Contains(knownProviders, payment.ProviderType(name)) {
			errs = append(errs, fmt.Errorf("payment.provider_order: unknown provider %q", name))
		}
	}

	if r := c.Payment.CircuitBreakerFailureRatio; r <= 0 || r > 1 {
		errs = append(errs, fmt.Errorf("payment.circuit_breaker_failure_ratio must be in (0, 1], got %v", r))
	}
	if c.Poller.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poller.interval must be positive"))
	}
	if c.Poller.MaxDuration < c.Poller.Interval {
		errs = append(errs, fmt.Errorf("poller.max_duration must not be shorter than poller.interval"))
	}

	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must be positive"))
	}

	if c.IsProduction() && c.Payment.MockProvider {
		errs = append(errs, fmt.Errorf("payment.mock_provider is not allowed in production"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("instance_id", defaultInstanceID())

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "45s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.auth_secret", "")
	v.SetDefault("server.hsts_max_age", "8760h")
	v.SetDefault("server.trust_forwarded_proto", false)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.connect_retries", 3)
	v.SetDefault("redis.connect_retry_delay", "1s")
	v.SetDefault("redis.origin_ttl", "48h")
	v.SetDefault("redis.idempotency_ttl", "24h")

	// Payment defaults
	v.SetDefault("payment.default_pix_provider", "")
	v.SetDefault("payment.default_card_provider", "")
	v.SetDefault("payment.provider_order", []string{})
	v.SetDefault("payment.status_retry_attempts", 3)
	v.SetDefault("payment.status_retry_delay", "200ms")
	v.SetDefault("payment.circuit_breaker_min_requests", 10)
	v.SetDefault("payment.circuit_breaker_failure_ratio", 0.6)
	v.SetDefault("payment.circuit_breaker_timeout", "30s")
	v.SetDefault("payment.circuit_breaker_interval", "60s")
	v.SetDefault("payment.mock_provider", false)

	// Provider defaults; keys must exist for env overrides to bind.
	for _, p := range knownProviders {
		prefix := "providers." + string(p) + "."
		v.SetDefault(prefix+"api_key", "")
		v.SetDefault(prefix+"base_url", "")
		v.SetDefault(prefix+"environment", "")
		v.SetDefault(prefix+"timeout", providers.DefaultTimeout.String())
	}

	// Poller defaults
	v.SetDefault("poller.interval", "3s")
	v.SetDefault("poller.max_duration", "10m")

	// Worker defaults
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.block_duration", "2s")
	v.SetDefault("worker.consumer_group", "status-pollers")
	v.SetDefault("worker.max_in_flight", 100)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)
	v.SetDefault("observability.service_name", "giftpay")
}

// normalize lowercases environment names so every downstream comparison sees one spelling.
func (c *Config) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	for _, pc := range []*ProviderConfig{&c.Providers.AbacatePay, &c.Providers.Stripe, &c.Providers.MercadoPago} {
		pc.Environment = strings.ToLower(strings.TrimSpace(pc.Environment))
	}
}

// IsProduction reports whether the process runs against live gateways.
func (c *Config) IsProduction() bool {
	return providers.IsProductionEnvironment(c.Environment)
}

func (c *Config) providerConfig(t payment.ProviderType) ProviderConfig {
	switch t {
	case payment.ProviderAbacatePay:
		return c.Providers.AbacatePay
	case payment.ProviderStripe:
		return c.Providers.Stripe
	case payment.ProviderMercadoPago:
		return c.Providers.MercadoPago
	}
	return ProviderConfig{}
}

func (c *Config) configuredProviders() map[payment.ProviderType]providers.Config {
	out := make(map[payment.ProviderType]providers.Config)
	for _, t := range knownProviders {
		pc := c.providerConfig(t)
		if pc.APIKey == "" {
			continue
		}
		env := pc.Environment
		if env == "" {
			env = c.Environment
		}
		out[t] = providers.Config{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Environment: env,
			Timeout:     pc.Timeout,
		}
	}
	return out
}

// ProviderSettings builds the registry configuration.
func (c *Config) ProviderSettings() providers.Settings {
	order := make([]payment.ProviderType, 0, len(c.Payment.ProviderOrder))
	for _, name := range c.Payment.ProviderOrder {
		order = append(order, payment.ProviderType(strings.TrimSpace(name)))
	}

	settings := providers.Settings{
		Providers:   c.configuredProviders(),
		Order:       order,
		DefaultPix:  payment.ProviderType(c.Payment.DefaultPixProvider),
		DefaultCard: payment.ProviderType(c.Payment.DefaultCardProvider),
	}
	if c.Payment.MockProvider {
		settings.Providers[providers.ProviderMock] = providers.Config{APIKey: "mock", Environment: c.Environment}
	}
	return settings
}

// BreakerSettings returns the per-provider circuit breaker tuning.
func (c *Config) BreakerSettings() providers.BreakerSettings {
	return providers.BreakerSettings{
		MinRequests:  c.Payment.CircuitBreakerMinRequests,
		FailureRatio: c.Payment.CircuitBreakerFailureRatio,
		OpenTimeout:  c.Payment.CircuitBreakerTimeout,
		Interval:     c.Payment.CircuitBreakerInterval,
	}
}

// StatusRetry returns the retry policy for status lookups.
func (c *Config) StatusRetry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = c.Payment.StatusRetryAttempts
	if c.Payment.StatusRetryDelay > 0 {
		cfg.InitialDelay = c.Payment.StatusRetryDelay
	}
	return cfg
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "giftpay"
	}
	return host
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
