package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Mail     MailConfig
	Links    LinksConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
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
	Level       string
	Development bool
}

// AuthConfig defines token and credential parameters.
type AuthConfig struct {
	JWTSecret                string
	JWTIssuer                string
	JWTAudience              string
	AccessTokenTTLMinutes    int
	RefreshTokenValidityDays int
	ActionTokenTTLMinutes    int
	BcryptCost               int
	AllowAdminRegistration   bool
}

// MailConfig holds SMTP transport settings. An empty SMTPHost logs mail instead of sending it.
type MailConfig struct {
	SMTPHost       string
	SMTPPort       int
	Username       string
	Password       string
	FromAddress    string
	FromName       string
	TemplatePath   string
	TimeoutSeconds int
}

// LinksConfig holds the front-end callback URLs embedded in emails.
type LinksConfig struct {
	ConfirmEmailURL  string
	ResetPasswordURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "account-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Auth: AuthConfig{
			JWTSecret:                getEnv("JWT_SECRET", "dev-secret-change-me-dev-secret-change-me"),
			JWTIssuer:                getEnv("JWT_VALID_ISSUER", "account-service"),
			JWTAudience:              getEnv("JWT_VALID_AUDIENCE", "account-service-clients"),
			AccessTokenTTLMinutes:    getEnvAsInt("JWT_TOKEN_VALIDITY_IN_MINUTES", 15),
			RefreshTokenValidityDays: getEnvAsInt("JWT_REFRESH_TOKEN_VALIDITY_IN_DAYS", 7),
			ActionTokenTTLMinutes:    getEnvAsInt("AUTH_ACTION_TOKEN_TTL_MINUTES", 24*60),
			BcryptCost:               getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AllowAdminRegistration:   getEnvAsBool("AUTH_ALLOW_ADMIN_REGISTRATION", true),
		},
		Mail: MailConfig{
			SMTPHost:       os.Getenv("MAIL_SMTP_HOST"),
			SMTPPort:       getEnvAsInt("MAIL_SMTP_PORT", 587),
			Username:       os.Getenv("MAIL_USERNAME"),
			Password:       os.Getenv("MAIL_PASSWORD"),
			FromAddress:    getEnv("MAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:       getEnv("MAIL_FROM_NAME", "Map of Activities"),
			TemplatePath:   os.Getenv("MAIL_TEMPLATE_PATH"),
			TimeoutSeconds: getEnvAsInt("MAIL_SEND_TIMEOUT_SECONDS", 10),
		},
		Links: LinksConfig{
			ConfirmEmailURL:  getEnv("LINKS_CONFIRM_EMAIL_URL", "http://localhost:9000/#/start-menu"),
			ResetPasswordURL: getEnv("LINKS_RESET_PASSWORD_URL", "http://localhost:9000/#/reset-password"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the token layer cannot work with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		return fmt.Errorf("invalid JWT_TOKEN_VALIDITY_IN_MINUTES: %d", c.Auth.AccessTokenTTLMinutes)
	}
	if c.Auth.RefreshTokenValidityDays <= 0 {
		return fmt.Errorf("invalid JWT_REFRESH_TOKEN_VALIDITY_IN_DAYS: %d", c.Auth.RefreshTokenValidityDays)
	}
	if c.Auth.ActionTokenTTLMinutes <= 0 {
		return fmt.Errorf("invalid AUTH_ACTION_TOKEN_TTL_MINUTES: %d", c.Auth.ActionTokenTTLMinutes)
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

// AccessTokenTTL returns the access token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenValidityDays) * 24 * time.Hour
}

// ActionTokenTTL returns how long confirmation and reset codes stay redeemable.
func (a AuthConfig) ActionTokenTTL() time.Duration {
	return time.Duration(a.ActionTokenTTLMinutes) * time.Minute
}

// SendTimeout bounds a single mail delivery.
func (m MailConfig) SendTimeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
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
