// Package config loads the bot configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaytranslate/relaytranslate/internal/translation"
)

// Errors reported by Validate.
var (
	ErrMissingTelegramToken = errors.New("TELEGRAM_TOKEN is not set")
	ErrMissingAPIKey        = errors.New("DEEPSEEK_API_KEY is not set")
	ErrInvalidPoolSize      = errors.New("WORKER_POOL_SIZE must be positive")
)

// Config holds the process configuration.
type Config struct {
	TelegramToken string
	APIKey        string

	// TargetLanguage is the language Chinese messages are translated into.
	TargetLanguage string
	PolicyFile     string

	BaseURL string
	Model   string

	Port           string
	WorkerPoolSize int

	// HealthCheckInterval schedules a self-check cycle. Zero leaves cycles
	// to the external poller of the health endpoint.
	HealthCheckInterval time.Duration

	LogLevel                string
	Environment             string
	TelemetryEnabled        bool
	OTLPEndpoint            string
	TelemetryExportInterval time.Duration
	TraceSampleRatio        float64

	PubSubProjectID string
	PubSubTopic     string
}

// FromEnv creates a Config from environment variables. Malformed numeric
// values fall back to their defaults.
func FromEnv() Config {
	poolSize, err := strconv.Atoi(getEnvOrDefault("WORKER_POOL_SIZE", "5"))
	if err != nil {
		poolSize = 5
	}
	interval, err := time.ParseDuration(getEnvOrDefault("HEALTH_CHECK_INTERVAL", "0s"))
	if err != nil || interval < 0 {
		interval = 0
	}
	// OTEL_METRIC_EXPORT_INTERVAL is in milliseconds.
	exportMillis, err := strconv.Atoi(os.Getenv("OTEL_METRIC_EXPORT_INTERVAL"))
	if err != nil || exportMillis < 0 {
		exportMillis = 0
	}
	sampleRatio, err := strconv.ParseFloat(os.Getenv("OTEL_TRACES_SAMPLER_ARG"), 64)
	if err != nil {
		sampleRatio = 0
	}

	return Config{
		TelegramToken:       os.Getenv("TELEGRAM_TOKEN"),
		APIKey:              os.Getenv("DEEPSEEK_API_KEY"),
		TargetLanguage:      getEnvOrDefault("TARGET_LANGUAGE", "ur"),
		PolicyFile:          os.Getenv("TRANSLATION_POLICY_FILE"),
		BaseURL:             getEnvOrDefault("DEEPSEEK_BASE_URL", translation.DefaultBaseURL),
		Model:               getEnvOrDefault("DEEPSEEK_MODEL", translation.DefaultModel),
		Port:                getEnvOrDefault("APP_PORT", getEnvOrDefault("PORT", "8000")),
		WorkerPoolSize:      poolSize,
		HealthCheckInterval: interval,
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		Environment:         getEnvOrDefault("APP_ENV", "development"),
		TelemetryEnabled:    os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:        getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		PubSubProjectID:     os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:         os.Getenv("PUBSUB_TOPIC"),

		TelemetryExportInterval: time.Duration(exportMillis) * time.Millisecond,
		TraceSampleRatio:        sampleRatio,
	}
}

// Validate reports every missing or invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, ErrMissingTelegramToken)
	}
	if c.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if c.WorkerPoolSize <= 0 {
		errs = append(errs, ErrInvalidPoolSize)
	}
	if c.PolicyFile == "" {
		if _, err := c.targetPolicy(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Policy returns the translation policy: the YAML table from PolicyFile if
// set, otherwise the built-in policy for TargetLanguage.
func (c Config) Policy() (translation.Policy, error) {
	if c.PolicyFile != "" {
		return translation.LoadPolicy(c.PolicyFile)
	}
	return c.targetPolicy()
}

// targetPolicy resolves TargetLanguage to one of the built-in policies. A
// language the detector knows but no built-in policy targets ("zh") is
// rejected here.
func (c Config) targetPolicy() (translation.Policy, error) {
	target, err := translation.ParseLanguage(c.TargetLanguage)
	if err != nil {
		return translation.Policy{}, fmt.Errorf("TARGET_LANGUAGE %q: %w", c.TargetLanguage, err)
	}
	policy, err := translation.PolicyFor(target)
	if err != nil {
		return translation.Policy{}, fmt.Errorf("TARGET_LANGUAGE %q: %w", c.TargetLanguage, err)
	}
	return policy, nil
}

// Level returns the zerolog level for LogLevel, defaulting to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// PubSubEnabled reports whether translation events should be published.
func (c Config) PubSubEnabled() bool {
	return c.PubSubProjectID != "" && c.PubSubTopic != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
