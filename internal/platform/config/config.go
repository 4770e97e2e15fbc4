package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8000"`
	AppURL      string `env:"APP_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	WebSocketPath            string        `env:"WS_PATH" default:"/ws"`
	WebSocketMaxMessageBytes int64         `env:"WS_MAX_MESSAGE_BYTES" default:"1048576"` // 1 MiB
	HeartbeatInterval        time.Duration `env:"WS_HEARTBEAT_INTERVAL" default:"30s"`
	SendBufferSize           int           `env:"WS_SEND_BUFFER" default:"16"`
	MaxConnections           int64         `env:"WS_MAX_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP      int           `env:"WS_MAX_CONNECTIONS_PER_IP" default:"50"`
	ConnectRate              float64       `env:"WS_CONNECT_RATE" default:"5"`
	ConnectBurst             int           `env:"WS_CONNECT_BURST" default:"10"`
	RedisConnectsPerMinute   int           `env:"WS_REDIS_CONNECTS_PER_MINUTE" default:"60"`
	RedisConnectBurst        int           `env:"WS_REDIS_CONNECT_BURST" default:"20"`
	TrustProxyHeaders        bool          `env:"TRUST_PROXY_HEADERS" default:"false"`

	StatusSyncInterval time.Duration `env:"STATUS_SYNC_INTERVAL" default:"30s"`

	APIRateLimit float64 `env:"API_RATE_LIMIT" default:"20"`
	APIRateBurst int     `env:"API_RATE_BURST" default:"40"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	if !strings.HasPrefix(cfg.WebSocketPath, "/") {
		return fmt.Errorf("WS_PATH must start with '/', got %q", cfg.WebSocketPath)
	}
	if cfg.WebSocketMaxMessageBytes <= 0 {
		return errors.New("WS_MAX_MESSAGE_BYTES must be positive")
	}
	if cfg.HeartbeatInterval < time.Second {
		return fmt.Errorf("WS_HEARTBEAT_INTERVAL must be at least 1s, got %v", cfg.HeartbeatInterval)
	}
	if cfg.StatusSyncInterval < time.Second {
		return fmt.Errorf("STATUS_SYNC_INTERVAL must be at least 1s, got %v", cfg.StatusSyncInterval)
	}

	positives := map[string]float64{
		"WS_SEND_BUFFER":               float64(cfg.SendBufferSize),
		"WS_MAX_CONNECTIONS":           float64(cfg.MaxConnections),
		"WS_MAX_CONNECTIONS_PER_IP":    float64(cfg.MaxConnectionsPerIP),
		"WS_CONNECT_RATE":              cfg.ConnectRate,
		"WS_CONNECT_BURST":             float64(cfg.ConnectBurst),
		"WS_REDIS_CONNECTS_PER_MINUTE": float64(cfg.RedisConnectsPerMinute),
		"WS_REDIS_CONNECT_BURST":       float64(cfg.RedisConnectBurst),
		"API_RATE_LIMIT":               cfg.APIRateLimit,
		"API_RATE_BURST":               float64(cfg.APIRateBurst),
	}
	for name, value := range positives {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.IsProduction() {
		if err := requireSecureSSL(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	return nil
}

func requireSecureSSL(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
