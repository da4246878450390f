package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServiceName    string `env:"SERVICE_NAME" envDefault:"dmsync"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"false"`
	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	JaegerURL      string `env:"JAEGER_URL" envDefault:"http://localhost:14268/api/traces"`
	ObsHTTPAddr    string `env:"HTTP_ADDR" envDefault:":8090"`

	// Client
	APIBaseURL      string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	APIToken        string        `env:"API_TOKEN"`
	UserID          string        `env:"USER_ID"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	HistoryPageSize int           `env:"HISTORY_PAGE_SIZE" envDefault:"30"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	UploadTimeout   time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"2m"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"`

	// Conversation cache, disabled when empty
	RedisAddr            string        `env:"REDIS_ADDR"`
	ConversationCacheTTL time.Duration `env:"CONVERSATION_CACHE_TTL" envDefault:"1h"`

	// Development server
	Port              string `env:"PORT" envDefault:"8080"`
	PublicURL         string `env:"PUBLIC_URL"`
	JWTSecret         string `env:"JWT_SECRET" envDefault:"secret"`
	JWTIssuer         string `env:"JWT_ISSUER" envDefault:"dmsync-auth"`
	JWTAudience       string `env:"JWT_AUDIENCE" envDefault:"dmsync-clients"`
	RateLimitRequests int    `env:"RATE_LIMIT_REQUESTS" envDefault:"600"`
	RateLimitWindow   string `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ObsHTTPAddr = fixPort(cfg.ObsHTTPAddr)
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.HistoryPageSize <= 0 || cfg.HistoryPageSize > 500 {
		cfg.HistoryPageSize = 30
	}
	return cfg, nil
}

func fixPort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
