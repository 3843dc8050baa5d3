package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/rahul4469/visionai/internal/models"
)

type Config struct {
	// Server config
	Server ServerConfig

	// CSRF and session cookie config
	Security SecurityConfig

	// inference API config
	Inference InferenceConfig

	// upload limits
	Limits LimitsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	Environment  string // development, staging, production
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	CSRFSecret        string
	SessionCookieName string
	SessionDuration   time.Duration
	SecureCookies     bool // true in production
}

// InferenceConfig holds the OpenAI-compatible endpoint settings.
// Empty APIKey or BaseURL is not a load error; the client refuses to call out.
type InferenceConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LimitsConfig holds request size limits.
type LimitsConfig struct {
	MaxUploadBytes int64
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []error

	cfg.Server = ServerConfig{
		Port:         getEnvOrDefault("SERVER_PORT", "8080"),
		Environment:  getEnvOrDefault("APP_ENV", "development"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second, &errs),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 90*time.Second, &errs),
		IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second, &errs),
	}

	sessionHours, err := strconv.Atoi(getEnvOrDefault("SESSION_DURATION_HOURS", "24"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid SESSION_DURATION_HOURS: %w", err))
	}

	cfg.Security = SecurityConfig{
		CSRFSecret:        os.Getenv("CSRF_SECRET"),
		SessionCookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "visionai_session"),
		SessionDuration:   time.Duration(sessionHours) * time.Hour,
		SecureCookies:     cfg.Server.Environment == "production",
	}

	cfg.Inference = InferenceConfig{
		APIKey:  os.Getenv("AI_INTEGRATIONS_OPENROUTER_API_KEY"),
		BaseURL: os.Getenv("AI_INTEGRATIONS_OPENROUTER_BASE_URL"),
		Model:   getEnvOrDefault("VISION_MODEL", "google/gemini-2.0-flash-001"),
		Timeout: getDuration("INFERENCE_TIMEOUT", 60*time.Second, &errs),
	}

	maxUploadMB, err := strconv.Atoi(getEnvOrDefault("MAX_UPLOAD_MB", "10"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err))
	}
	cfg.Limits = LimitsConfig{
		MaxUploadBytes: int64(maxUploadMB) << 20,
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration parsing failed:\n%w", errors.Join(errs...))
	}

	// A development server gets a throwaway CSRF key so it runs without setup.
	if cfg.Security.CSRFSecret == "" && cfg.IsDevelopment() {
		key, err := models.GenerateToken(32)
		if err != nil {
			return nil, fmt.Errorf("generate CSRF secret: %w", err)
		}
		cfg.Security.CSRFSecret = key
		log.Println("Warning: CSRF_SECRET not set, using a random key for this process")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present and valid.
func (c *Config) validate() error {
	var errs []error

	if c.Security.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	} else if len(c.Security.CSRFSecret) < 32 {
		errs = append(errs, errors.New("CSRF_SECRET must be at least 32 characters"))
	}

	if c.Security.SessionDuration <= 0 {
		errs = append(errs, errors.New("SESSION_DURATION_HOURS must be positive"))
	}

	if c.Limits.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}

	if c.Inference.Timeout <= 0 {
		errs = append(errs, errors.New("INFERENCE_TIMEOUT must be positive"))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	return nil
}

// getEnvOrDefault returns the .env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return d
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
