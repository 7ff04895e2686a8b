// internal/infrastructure/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI string
	MongoDB  string

	// Postgres (reference data: minimums, airports)
	PostgresDSN string

	// Weather provider
	WeatherEndpoint string
	WeatherToken    string

	// Suggestion generator
	GeneratorEndpoint string
	GeneratorToken    string
	GeneratorTimeout  time.Duration

	// Notification gateway
	NotifierEndpoint string
	NotifierToken    string

	// Pipeline
	PipelineWorkers  int
	MaxAttempts      int
	BaseBackoff      time.Duration
	JobTimeout       time.Duration
	SyncWaitCeiling  time.Duration

	// Cascade
	FanoutWorkers    int
	PerFlightTimeout time.Duration

	// Reschedule requests
	RequestTTL    time.Duration
	SweepInterval time.Duration

	// Look-ahead check scheduling
	CheckInterval   time.Duration
	LookAheadWindow time.Duration

	// Safety evaluator
	MarginFraction float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI: getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "flightsched"),

		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=postgres dbname=flightsched port=5432 sslmode=disable"),

		WeatherEndpoint: getEnv("WEATHER_ENDPOINT", ""),
		WeatherToken:    getEnv("WEATHER_TOKEN", ""),

		GeneratorEndpoint: getEnv("GENERATOR_ENDPOINT", ""),
		GeneratorToken:    getEnv("GENERATOR_TOKEN", ""),
		GeneratorTimeout:  time.Duration(getEnvAsInt("GENERATOR_TIMEOUT", 30)) * time.Second,

		NotifierEndpoint: getEnv("NOTIFIER_ENDPOINT", ""),
		NotifierToken:    getEnv("NOTIFIER_TOKEN", ""),

		PipelineWorkers: getEnvAsInt("PIPELINE_WORKERS", 4),
		MaxAttempts:     getEnvAsInt("JOB_MAX_ATTEMPTS", 3),
		BaseBackoff:     time.Duration(getEnvAsInt("JOB_BASE_BACKOFF", 5)) * time.Second,
		JobTimeout:      time.Duration(getEnvAsInt("JOB_TIMEOUT", 60)) * time.Second,
		SyncWaitCeiling: time.Duration(getEnvAsInt("SYNC_WAIT_CEILING", 30)) * time.Second,

		FanoutWorkers:    getEnvAsInt("FANOUT_WORKERS", 3),
		PerFlightTimeout: time.Duration(getEnvAsInt("PER_FLIGHT_TIMEOUT", 30)) * time.Second,

		RequestTTL:    time.Duration(getEnvAsInt("REQUEST_TTL_HOURS", 48)) * time.Hour,
		SweepInterval: time.Duration(getEnvAsInt("SWEEP_INTERVAL", 300)) * time.Second,

		CheckInterval:   time.Duration(getEnvAsInt("CHECK_INTERVAL", 900)) * time.Second,
		LookAheadWindow: time.Duration(getEnvAsInt("LOOKAHEAD_HOURS", 72)) * time.Hour,

		MarginFraction: getEnvAsFloat("MARGIN_FRACTION", 0.15),
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
