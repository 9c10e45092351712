package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Forecast ForecastConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string `validate:"required,numeric"`
	Host         string
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
}

// RedisConfig holds prediction cache configuration
type RedisConfig struct {
	Enabled       bool
	Addr          string `validate:"required_if=Enabled true"`
	Password      string
	DB            int           `validate:"gte=0"`
	PredictionTTL time.Duration `validate:"gte=0"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled   bool
	Brokers   []string `validate:"required_if=Enabled true"`
	Topic     string   `validate:"required_if=Enabled true"`
	BarsTopic string
	GroupID   string
}

// ForecastConfig holds forecaster hyperparameters and scheduling
type ForecastConfig struct {
	Model           string  `validate:"oneof=forest ridge"`
	Trees           int     `validate:"gt=0"`
	MaxDepth        int     `validate:"gt=0"`
	MinSamplesLeaf  int     `validate:"gt=0"`
	MaxFeatures     int     `validate:"gte=0"`
	Seed            uint64
	RidgeLambda     float64 `validate:"gt=0"`
	HistoryLimit    int     `validate:"gte=57"`
	RetrainSchedule string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `validate:"oneof=json console"`
}

// Load reads configuration from environment variables. A .env file in the
// working directory, if present, is loaded first without overriding
// variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stockforecast"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:       getEnvBool("REDIS_ENABLED", true),
			Addr:          getEnv("REDIS_ADDR", "localhost:6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvInt("REDIS_DB", 0),
			PredictionTTL: getEnvDuration("REDIS_PREDICTION_TTL", 15*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:   getEnvBool("KAFKA_ENABLED", false),
			Brokers:   splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:     getEnv("KAFKA_TOPIC", "stock-events"),
			BarsTopic: getEnv("KAFKA_BARS_TOPIC", "market-bars"),
			GroupID:   getEnv("KAFKA_GROUP_ID", "stock-forecast-service"),
		},
		Forecast: ForecastConfig{
			Model:           getEnv("FORECAST_MODEL", "forest"),
			Trees:           getEnvInt("FORECAST_TREES", 100),
			MaxDepth:        getEnvInt("FORECAST_MAX_DEPTH", 10),
			MinSamplesLeaf:  getEnvInt("FORECAST_MIN_SAMPLES_LEAF", 1),
			MaxFeatures:     getEnvInt("FORECAST_MAX_FEATURES", 0),
			Seed:            uint64(getEnvInt("FORECAST_SEED", 42)),
			RidgeLambda:     getEnvFloat("FORECAST_RIDGE_LAMBDA", 1.0),
			HistoryLimit:    getEnvInt("FORECAST_HISTORY_LIMIT", 365),
			RetrainSchedule: getEnv("FORECAST_RETRAIN_SCHEDULE", "0 30 6 * * MON-FRI"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Addr returns the host:port the HTTP server listens on
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
