package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults mirror the upstream deployment: the AI service listens on 8001 and
// talks to the Node data service on 8080.
const (
	DefaultPort              = 8001
	DefaultContextServiceURL = "http://localhost:8080/api/data"
	DefaultModel             = "gemini-2.5-flash"
	DefaultJWTSecret         = "your_jwt_secret_here"

	defaultContextTimeoutSeconds = 15
	defaultGeminiTimeoutSeconds  = 60
)

// Config represents the application configuration. It is read once at startup
// and treated as immutable afterwards.
type Config struct {
	Port              int
	GeminiAPIKey      string
	GeminiModel       string
	ContextServiceURL string
	JWTSecret         string
	AllowedOrigins    []string

	ContextTimeoutSeconds int
	GeminiTimeoutSeconds  int

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Default returns a configuration with default values.
func Default() Config {
	return Config{
		Port:                  DefaultPort,
		GeminiModel:           DefaultModel,
		ContextServiceURL:     DefaultContextServiceURL,
		JWTSecret:             DefaultJWTSecret,
		AllowedOrigins:        []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		ContextTimeoutSeconds: defaultContextTimeoutSeconds,
		GeminiTimeoutSeconds:  defaultGeminiTimeoutSeconds,
		LogLevel:              "info",
		LogFormat:             "json",
	}
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for anything unset.
func FromEnv() Config {
	cfg := Default()

	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); v != "" {
		cfg.GeminiModel = v
	}
	if v := strings.TrimSpace(os.Getenv("CONTEXT_SERVICE_URL")); v != "" {
		cfg.ContextServiceURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		origins := make([]string, 0, 2)
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}
	if v := strings.TrimSpace(os.Getenv("CONTEXT_TIMEOUT_SECONDS")); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.ContextTimeoutSeconds = seconds
		}
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_TIMEOUT_SECONDS")); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.GeminiTimeoutSeconds = seconds
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.LogFile = v
	}

	return cfg
}

// Validate checks if the configuration is valid. A missing Gemini API key is
// not an error: the service starts and reports not-initialized on /chat.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", c.Port)
	}
	if strings.TrimSpace(c.ContextServiceURL) == "" {
		return fmt.Errorf("context service URL is required")
	}
	if !strings.HasPrefix(c.ContextServiceURL, "http://") && !strings.HasPrefix(c.ContextServiceURL, "https://") {
		return fmt.Errorf("context service URL must be http(s), got: %s", c.ContextServiceURL)
	}
	if strings.TrimSpace(c.GeminiModel) == "" {
		return fmt.Errorf("gemini model is required")
	}
	if c.ContextTimeoutSeconds <= 0 {
		return fmt.Errorf("context_timeout_seconds must be positive, got: %d", c.ContextTimeoutSeconds)
	}
	if c.GeminiTimeoutSeconds <= 0 {
		return fmt.Errorf("gemini_timeout_seconds must be positive, got: %d", c.GeminiTimeoutSeconds)
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin is required")
	}
	return nil
}
