package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Environment string `env:"GO_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Server    ServerConfig
	Redis     RedisConfig
	Services  ServicesConfig
	Auth      AuthConfig
	Manifest  ManifestConfig
	Readiness ReadinessConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `env:"SERVER_PORT,required,notEmpty"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"1048576"`
}

// RedisConfig holds cache connection settings. An empty address disables
// Redis.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// ServicesConfig holds external service API keys and configuration
type ServicesConfig struct {
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
}

// AuthConfig holds the secret protecting operator routes. Operator routes
// are disabled when it is empty.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
}

// ManifestConfig controls which manifest is served and how it is checked.
type ManifestConfig struct {
	// Path overrides the manifest compiled into the binary.
	Path string `env:"MANIFEST_PATH"`
	// SourceRoot enables package discovery against a checked out tree.
	SourceRoot         string        `env:"MANIFEST_SOURCE_ROOT"`
	MaintainedReleases []string      `env:"MAINTAINED_RUNTIME_RELEASES" envSeparator:","`
	ReportCacheTTL     time.Duration `env:"MANIFEST_REPORT_CACHE_TTL" envDefault:"1m"`
	// ReportRefreshInterval recomputes the cached report in the background.
	// Zero disables the job.
	ReportRefreshInterval time.Duration `env:"MANIFEST_REPORT_REFRESH_INTERVAL" envDefault:"5m"`
}

// ReadinessConfig holds dependency check settings
type ReadinessConfig struct {
	CheckTimeout time.Duration `env:"READINESS_CHECK_TIMEOUT" envDefault:"3s"`
	CacheTTL     time.Duration `env:"READINESS_CACHE_TTL" envDefault:"10s"`
	// ProbeInterval keeps the dependency gauges current between scrapes of
	// /ready. Zero disables the job.
	ProbeInterval time.Duration `env:"READINESS_PROBE_INTERVAL" envDefault:"30s"`
}

// RateLimitConfig holds per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	ValidatePerMinute int `env:"RATE_LIMIT_VALIDATE_RPM" envDefault:"60"`
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) {
			for _, e := range aggErr.Errors {
				var missing env.EnvVarIsNotSetError
				if errors.As(e, &missing) {
					return nil, fmt.Errorf("%s is not set: %w", missing.Key, ErrEmptyEnvironmentVariable)
				}
				var empty env.EmptyEnvVarError
				if errors.As(e, &empty) {
					return nil, fmt.Errorf("%s is not set: %w", empty.Key, ErrEmptyEnvironmentVariable)
				}
			}
		}
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT %d out of range", cfg.Server.Port)
	}
	if cfg.RateLimit.ValidatePerMinute < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_VALIDATE_RPM %d must not be negative", cfg.RateLimit.ValidatePerMinute)
	}
	for i, r := range cfg.Manifest.MaintainedReleases {
		cfg.Manifest.MaintainedReleases[i] = strings.TrimSpace(r)
	}
	return cfg, nil
}

// IsProduction reports whether GO_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
