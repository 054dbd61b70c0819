package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MARKETHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "MARKETHUB_APP_ENV"
	EnvPort               = "MARKETHUB_APP_PORT"
	EnvAPIProductionURL   = "MARKETHUB_API_PRODUCTION_URL"
	EnvAPILocalURL        = "MARKETHUB_API_LOCAL_URL"
	EnvAPIUseProduction   = "MARKETHUB_API_USE_PRODUCTION"
	EnvAPIFallback        = "MARKETHUB_API_FALLBACK"
	EnvJWTSecret          = "MARKETHUB_JWT_SECRET"
	EnvRedisURL           = "MARKETHUB_REDIS_URL"
	EnvPaymentPoll        = "MARKETHUB_PAYMENT_POLL_INTERVAL"
	EnvPaymentTimeout     = "MARKETHUB_PAYMENT_TIMEOUT"
	EnvPaymentGrace       = "MARKETHUB_PAYMENT_SUCCESS_GRACE"
	EnvPaymentRetention   = "MARKETHUB_PAYMENT_RETENTION"
	EnvKafkaBrokers       = "MARKETHUB_KAFKA_BROKERS"
	EnvCORSAllowedOrigins = "MARKETHUB_CORS_ALLOWED_ORIGINS"
)

type Config struct {
	App       AppConfig
	API       APIConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Payment   PaymentConfig
	Checkout  CheckoutConfig
	Session   SessionConfig
	Kafka     KafkaConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Payment.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETHUB_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MARKETHUB_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"MARKETHUB_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"MARKETHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// APIConfig selects the marketplace API the gateway drives.
type APIConfig struct {
	ProductionURL string        `envconfig:"MARKETHUB_API_PRODUCTION_URL" default:"https://markethub-cjf9.onrender.com/api/v1"`
	LocalURL      string        `envconfig:"MARKETHUB_API_LOCAL_URL" default:"http://localhost:5000/api/v1"`
	UseProduction bool          `envconfig:"MARKETHUB_API_USE_PRODUCTION" default:"true"`
	Fallback      bool          `envconfig:"MARKETHUB_API_FALLBACK" default:"true"`
	Timeout       time.Duration `envconfig:"MARKETHUB_API_TIMEOUT" default:"15s"`
}

// BaseURL returns the primary marketplace target.
func (a APIConfig) BaseURL() string {
	if a.UseProduction {
		return a.ProductionURL
	}
	return a.LocalURL
}

// FallbackURL returns the secondary target, or "" when fallback does not apply.
func (a APIConfig) FallbackURL() string {
	if !a.Fallback || !a.UseProduction {
		return ""
	}
	if strings.TrimRight(a.LocalURL, "/") == strings.TrimRight(a.ProductionURL, "/") {
		return ""
	}
	return a.LocalURL
}

func (a APIConfig) validate() error {
	for name, raw := range map[string]string{
		EnvAPIProductionURL: a.ProductionURL,
		EnvAPILocalURL:      a.LocalURL,
	} {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute url, got %q", name, raw)
		}
	}
	return nil
}

// JWTConfig holds the secret shared with the marketplace API for access tokens.
type JWTConfig struct {
	Secret string        `envconfig:"MARKETHUB_JWT_SECRET" required:"true"`
	Leeway time.Duration `envconfig:"MARKETHUB_JWT_LEEWAY" default:"30s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKETHUB_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PaymentConfig drives the STK push poller cadence.
type PaymentConfig struct {
	PollInterval time.Duration `envconfig:"MARKETHUB_PAYMENT_POLL_INTERVAL" default:"3s"`
	Timeout      time.Duration `envconfig:"MARKETHUB_PAYMENT_TIMEOUT" default:"120s"`
	SuccessGrace time.Duration `envconfig:"MARKETHUB_PAYMENT_SUCCESS_GRACE" default:"2s"`
	// Retention is how long a finished attempt stays readable before it is forgotten.
	Retention time.Duration `envconfig:"MARKETHUB_PAYMENT_RETENTION" default:"15m"`
}

func (p PaymentConfig) validate() error {
	if p.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvPaymentPoll)
	}
	if p.Timeout <= p.PollInterval {
		return fmt.Errorf("%s must exceed the poll interval", EnvPaymentTimeout)
	}
	if p.SuccessGrace < 0 {
		return fmt.Errorf("%s must not be negative", EnvPaymentGrace)
	}
	if p.Retention <= p.SuccessGrace {
		return fmt.Errorf("%s must exceed the success grace", EnvPaymentRetention)
	}
	return nil
}

type CheckoutConfig struct {
	LockTTL time.Duration `envconfig:"MARKETHUB_CHECKOUT_LOCK_TTL" default:"30s"`
}

type SessionConfig struct {
	ProfileCacheTTL time.Duration `envconfig:"MARKETHUB_SESSION_PROFILE_CACHE_TTL" default:"5m"`
}

// KafkaConfig is optional; an empty broker list disables event publishing.
type KafkaConfig struct {
	Brokers []string `envconfig:"MARKETHUB_KAFKA_BROKERS"`
	Topic   string   `envconfig:"MARKETHUB_KAFKA_TOPIC" default:"markethub.checkout-events"`
}

// Enabled reports whether at least one broker is configured.
func (k KafkaConfig) Enabled() bool {
	for _, b := range k.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"MARKETHUB_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

// RateLimitConfig sets fixed-window limits per route group. A zero limit disables that check.
type RateLimitConfig struct {
	CheckoutWindow    time.Duration `envconfig:"MARKETHUB_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit   int           `envconfig:"MARKETHUB_RATE_LIMIT_CHECKOUT_IP" default:"30"`
	CheckoutUserLimit int           `envconfig:"MARKETHUB_RATE_LIMIT_CHECKOUT_USER" default:"6"`
	APIWindow         time.Duration `envconfig:"MARKETHUB_RATE_LIMIT_API_WINDOW" default:"1m"`
	APIIPLimit        int           `envconfig:"MARKETHUB_RATE_LIMIT_API_IP" default:"600"`
	APIUserLimit      int           `envconfig:"MARKETHUB_RATE_LIMIT_API_USER" default:"300"`
}
