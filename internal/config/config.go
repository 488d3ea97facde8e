package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Signals  SignalsConfig
	Provider ProviderConfig
	Pipeline PipelineConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers        []string
	IngestionTopic string
	ReviewTopic    string
	ConsumerGroup  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// SignalsConfig holds signal computation tunables
type SignalsConfig struct {
	CacheTTL        time.Duration
	ExpenseLookback int // days used to average monthly expenses
}

// ProviderConfig holds natural-language provider settings
type ProviderConfig struct {
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// PipelineConfig holds generation pipeline settings
type PipelineConfig struct {
	GenerationBudget time.Duration // soft target, recorded not enforced
	BatchWorkers     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8082"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "spendsense"),
			Password: getEnv("DB_PASSWORD", "spendsense"),
			DBName:   getEnv("DB_NAME", "spendsense"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:        parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			IngestionTopic: getEnv("KAFKA_INGESTION_TOPIC", "spendsense.ingestion"),
			ReviewTopic:    getEnv("KAFKA_REVIEW_TOPIC", "spendsense.review"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "spendsense-core"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Signals: SignalsConfig{
			CacheTTL:        getDuration("SIGNAL_CACHE_TTL", 15*time.Minute),
			ExpenseLookback: getInt("EXPENSE_LOOKBACK_DAYS", 90),
		},
		Provider: ProviderConfig{
			Model:      getEnv("GENAI_MODEL", "gemini-2.0-flash"),
			Timeout:    getDuration("GENAI_TIMEOUT", 10*time.Second),
			MaxRetries: getInt("GENAI_MAX_RETRIES", 2),
		},
		Pipeline: PipelineConfig{
			GenerationBudget: getDuration("GENERATION_BUDGET", 5*time.Second),
			BatchWorkers:     getInt("BATCH_WORKERS", 4),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
