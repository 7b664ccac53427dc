package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the assist gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Public base URL for this service, used only for logging the voice stream endpoint.
	// Optional; if unset, logs ws://localhost:PORT/streams/voice.
	PublicURL string `envconfig:"PUBLIC_URL" default:""`

	// Comma-separated list of origins allowed by CORS. Empty allows all.
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`

	// Summarization provider (Hugging Face inference API).
	// The key is not required at load time: a missing key is reported per request.
	HFAPIKey       string `envconfig:"HF_API_KEY" default:""`
	HFSummarizeURL string `envconfig:"HF_SUMMARIZE_URL" default:"https://api-inference.huggingface.co/models/facebook/bart-large-cnn"`

	// Translation provider (LibreTranslate)
	TranslateURL    string `envconfig:"TRANSLATE_URL" default:"https://libretranslate.de/translate"`
	TranslateAPIKey string `envconfig:"TRANSLATE_API_KEY" default:""` // Optional; sent as api_key when set

	// Deepgram live transcription. Without a key the speech capability is unavailable.
	DeepgramAPIKey     string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel      string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage   string `envconfig:"DEEPGRAM_LANGUAGE" default:"en-US"`
	DeepgramEncoding   string `envconfig:"DEEPGRAM_ENCODING" default:"linear16"`
	DeepgramSampleRate int    `envconfig:"DEEPGRAM_SAMPLE_RATE" default:"16000"`

	// Resilience configuration (speech capability only; inference calls are never retried)
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`         // Maximum reconnection attempts
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"`           // Reconnection backoff in milliseconds

	// Observability configuration
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty         bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled    bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
	SentryDSN         string `envconfig:"SENTRY_DSN" default:""`          // Empty disables error reporting
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.HFSummarizeURL) == "" {
		return fmt.Errorf("HF_SUMMARIZE_URL must not be empty")
	}
	if strings.TrimSpace(c.TranslateURL) == "" {
		return fmt.Errorf("TRANSLATE_URL must not be empty")
	}
	if c.DeepgramSampleRate <= 0 {
		return fmt.Errorf("DEEPGRAM_SAMPLE_RATE must be positive, got %d", c.DeepgramSampleRate)
	}
	return nil
}

// AllowedOrigins splits CORSAllowedOrigins into a trimmed list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
