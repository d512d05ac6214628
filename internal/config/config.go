package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	SSO      SSOConfig
	Telegram TelegramConfig
	WhatsApp WhatsAppConfig
	Kafka    KafkaConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSOrigins           string
}

// MongoConfig holds the ticket document store connection.
type MongoConfig struct {
	URI               string
	Database          string
	TicketCollection  string
	ConnectTimeoutSec int
}

// PostgresConfig holds the audit history DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session token and login throttling parameters.
type AuthConfig struct {
	JWTSecret          string
	TokenTTLHours      int
	LoginAttemptLimit  int
	LoginWindowSeconds int
}

// SSOConfig lists the upstream identity endpoints, tried in order.
type SSOConfig struct {
	URLs                  []string
	AttemptTimeoutSeconds int
}

// TelegramConfig configures the Telegram bot transport.
type TelegramConfig struct {
	BotToken       string
	APIEndpoint    string
	TimeoutSeconds int
}

// WhatsAppConfig configures the WhatsApp bot gateway transport.
type WhatsAppConfig struct {
	GatewayURL     string
	TimeoutSeconds int
}

// KafkaConfig configures the optional domain event stream.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

var (
	ErrMissingSSOURLs   = errors.New("SSO_URLS must list at least one identity endpoint")
	ErrMissingJWTSecret = errors.New("AUTH_JWT_SECRET must be set")
)

// Load reads configuration from the given env files (default .env) and the
// environment. It fails when the SSO endpoints or the signing secret are absent.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSOrigins:           getEnv("CORS_ORIGINS", "*"),
		},
		Mongo: MongoConfig{
			URI:               getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
			Database:          getEnv("MONGO_DATABASE", "helpdesk"),
			TicketCollection:  getEnv("MONGO_TICKET_COLLECTION", "tickets"),
			ConnectTimeoutSec: getEnvAsInt("MONGO_CONNECT_TIMEOUT_SECONDS", 10),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:          os.Getenv("AUTH_JWT_SECRET"),
			TokenTTLHours:      getEnvAsInt("AUTH_TOKEN_TTL_HOURS", 8),
			LoginAttemptLimit:  getEnvAsInt("AUTH_LOGIN_ATTEMPT_LIMIT", 10),
			LoginWindowSeconds: getEnvAsInt("AUTH_LOGIN_WINDOW_SECONDS", 300),
		},
		SSO: SSOConfig{
			URLs:                  getEnvAsList("SSO_URLS"),
			AttemptTimeoutSeconds: getEnvAsInt("SSO_ATTEMPT_TIMEOUT_SECONDS", 5),
		},
		Telegram: TelegramConfig{
			BotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
			APIEndpoint:    getEnv("TELEGRAM_API_ENDPOINT", "https://api.telegram.org/bot%s/%s"),
			TimeoutSeconds: getEnvAsInt("TELEGRAM_TIMEOUT_SECONDS", 10),
		},
		WhatsApp: WhatsAppConfig{
			GatewayURL:     os.Getenv("WHATSAPP_GATEWAY_URL"),
			TimeoutSeconds: getEnvAsInt("WHATSAPP_TIMEOUT_SECONDS", 10),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "helpdesk.ticket-events"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	if len(c.SSO.URLs) == 0 {
		return ErrMissingSSOURLs
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AttemptTimeout returns the per-endpoint SSO timeout.
func (s SSOConfig) AttemptTimeout() time.Duration {
	if s.AttemptTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.AttemptTimeoutSeconds) * time.Second
}

// TokenTTL returns the session token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLHours <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// LoginWindow returns the login throttling window.
func (a AuthConfig) LoginWindow() time.Duration {
	return time.Duration(a.LoginWindowSeconds) * time.Second
}

// ConnectTimeout returns the Mongo connect timeout.
func (m MongoConfig) ConnectTimeout() time.Duration {
	return time.Duration(m.ConnectTimeoutSec) * time.Second
}

// Timeout returns the Bot API request timeout.
func (t TelegramConfig) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Timeout returns the WhatsApp gateway request timeout.
func (w WhatsAppConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList splits a comma separated variable, preserving order and
// dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
