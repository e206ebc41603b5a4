package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment     string
	LogLevel        string
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Store   StoreConfig
	Redis   RedisConfig
	Session SessionConfig
	Kafka   KafkaConfig

	Client ClientConfig
}

type StoreConfig struct {
	Driver string // "memory" or "redis"
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

// KafkaConfig enables the checkout consumer when Brokers is not empty.
type KafkaConfig struct {
	Brokers       []string
	CheckoutTopic string
	GroupID       string
}

// ClientConfig is read by cartctl.
type ClientConfig struct {
	BaseURL           string
	Session           string
	ToastDuration     time.Duration
	SequenceResponses bool
	BreakerEnabled    bool
	BreakerMaxFails   uint32
	BreakerOpenFor    time.Duration
}

// Load reads environment variables, then an optional .env file, then defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetConfigName(".env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_PORT", "5002")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_COOKIE", "session")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CHECKOUT_TOPIC", "checkout-outbox")
	v.SetDefault("KAFKA_GROUP_ID", "cart-api")
	v.SetDefault("CART_API_URL", "http://localhost:5002")
	v.SetDefault("CART_SESSION", "")
	v.SetDefault("TOAST_DURATION", "3s")
	v.SetDefault("SEQUENCE_RESPONSES", false)
	v.SetDefault("BREAKER_ENABLED", false)
	v.SetDefault("BREAKER_MAX_FAILURES", 5)
	v.SetDefault("BREAKER_OPEN_TIMEOUT", "30s")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Environment:     v.GetString("ENVIRONMENT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		HTTPPort:        v.GetString("HTTP_PORT"),
		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		Store: StoreConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Session: SessionConfig{
			CookieName: v.GetString("SESSION_COOKIE"),
			TTL:        v.GetDuration("SESSION_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(v.GetString("KAFKA_BROKERS")),
			CheckoutTopic: v.GetString("CHECKOUT_TOPIC"),
			GroupID:       v.GetString("KAFKA_GROUP_ID"),
		},
		Client: ClientConfig{
			BaseURL:           strings.TrimSpace(v.GetString("CART_API_URL")),
			Session:           strings.TrimSpace(v.GetString("CART_SESSION")),
			ToastDuration:     v.GetDuration("TOAST_DURATION"),
			SequenceResponses: v.GetBool("SEQUENCE_RESPONSES"),
			BreakerEnabled:    v.GetBool("BREAKER_ENABLED"),
			BreakerMaxFails:   v.GetUint32("BREAKER_MAX_FAILURES"),
			BreakerOpenFor:    v.GetDuration("BREAKER_OPEN_TIMEOUT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("STORE_DRIVER must be memory or redis, got %q", c.Store.Driver)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
