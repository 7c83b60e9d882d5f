package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	JWT      JWTConfig
	Sentry   SentryConfig
	Fraud    FraudConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int // per-request timeout in seconds
	CORSOrigins    string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL     string
	Enabled bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in hours
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN     string
	Enabled bool
}

// FraudConfig holds fraud-engine configuration
type FraudConfig struct {
	RulesPath       string // optional YAML file overriding the built-in rule lists
	CacheTTLSeconds int    // assessment cache TTL
	HistoryLimit    int    // max submission-history entries loaded per check
	VoIPLookupURL   string // optional VoIP lookup provider; empty disables the check
	VoIPLookupKey   string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 30),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "leadintake"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Expiration: getEnvAsInt("JWT_EXPIRATION", 24),
		},
		Sentry: SentryConfig{
			DSN:     getEnv("SENTRY_DSN", ""),
			Enabled: getEnvAsBool("SENTRY_ENABLED", false),
		},
		Fraud: FraudConfig{
			RulesPath:       getEnv("FRAUD_RULES_PATH", ""),
			CacheTTLSeconds: getEnvAsInt("FRAUD_CACHE_TTL", 300),
			HistoryLimit:    getEnvAsInt("FRAUD_HISTORY_LIMIT", 50),
			VoIPLookupURL:   getEnv("FRAUD_VOIP_LOOKUP_URL", ""),
			VoIPLookupKey:   getEnv("FRAUD_VOIP_LOOKUP_KEY", ""),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
