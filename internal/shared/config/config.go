package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	EventStore EventStoreConfig
	Auth       AuthConfig
	Identity   IdentityConfig
	Assist     AssistConfig
	Automation AutomationConfig
	Electoral  ElectoralConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// EventStoreConfig holds configuration for EventStoreDB, which carries
// the member/message insert streams consumed by connected dashboards.
type EventStoreConfig struct {
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// IdentityConfig configures the external identity store where login
// credentials live.
type IdentityConfig struct {
	URL     string
	Enabled bool
	Timeout time.Duration
}

// AssistConfig configures the external content-generation service.
type AssistConfig struct {
	URL     string
	Enabled bool
	Timeout time.Duration
	Retries int
}

// AutomationConfig configures the external workflow/notification
// dispatcher webhook.
type AutomationConfig struct {
	WebhookURL string
	Enabled    bool
	Timeout    time.Duration
}

// ElectoralConfig configures the legacy electoral-results registry
// (SQL Server) used for the one-time bulk import of verified office
// holders.
type ElectoralConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	Encrypt   bool
	ImportRun bool
}

func (e ElectoralConfig) DSN() string {
	dsn := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		e.Host, e.Port, e.Database, e.User, e.Password)
	if e.Encrypt {
		dsn += ";encrypt=true;TrustServerCertificate=true"
	}
	return dsn
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "plataforma"),
			Password: getEnv("DB_PASSWORD", "plataforma"),
			Database: getEnv("DB_NAME", "plataforma"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:    getEnv("JWT_ISSUER", "plataforma"),
		},
		Identity: IdentityConfig{
			URL:     getEnv("IDENTITY_STORE_URL", "http://localhost:9099"),
			Enabled: getEnvBool("IDENTITY_STORE_ENABLED", true),
			Timeout: getEnvDuration("IDENTITY_STORE_TIMEOUT", 5*time.Second),
		},
		Assist: AssistConfig{
			URL:     getEnv("ASSIST_SERVICE_URL", "http://localhost:5000"),
			Enabled: getEnvBool("ASSIST_ENABLED", true),
			Timeout: getEnvDuration("ASSIST_TIMEOUT", 10*time.Second),
			Retries: getEnvInt("ASSIST_RETRIES", 2),
		},
		Automation: AutomationConfig{
			WebhookURL: getEnv("AUTOMATION_WEBHOOK_URL", "http://localhost:5678/webhook/plataforma"),
			Enabled:    getEnvBool("AUTOMATION_ENABLED", true),
			Timeout:    getEnvDuration("AUTOMATION_TIMEOUT", 5*time.Second),
		},
		Electoral: ElectoralConfig{
			Host:      getEnv("ELECTORAL_DB_HOST", "localhost"),
			Port:      getEnvInt("ELECTORAL_DB_PORT", 1433),
			User:      getEnv("ELECTORAL_DB_USER", "sa"),
			Password:  getEnv("ELECTORAL_DB_PASSWORD", ""),
			Database:  getEnv("ELECTORAL_DB_NAME", "resultados"),
			Encrypt:   getEnvBool("ELECTORAL_DB_ENCRYPT", false),
			ImportRun: getEnvBool("ELECTORAL_IMPORT_RUN", false),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
