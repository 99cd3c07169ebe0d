package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for values the gateway cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.PlatformPort < 0 || c.Server.PlatformPort > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.PlatformPort))
	}
	if _, err := zerolog.ParseLevel(c.Server.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Server.LogLevel))
	}
	if c.Server.RateLimit < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.Server.QuestionLimit < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_QUESTIONS must be positive"))
	}
	if len(c.AllowedOrigins()) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must name at least one origin"))
	}

	if c.Database.Host == "" {
		errs = append(errs, errors.New("POSTGRES_HOST is required"))
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("POSTGRES_PORT must be between 1 and 65535, got %d", c.Database.Port))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("POSTGRES_DB is required"))
	}
	if !validSSLModes[c.Database.SSLMode] {
		errs = append(errs, fmt.Errorf("POSTGRES_SSL_MODE %q is not a valid sslmode", c.Database.SSLMode))
	}
	if c.Database.MaxConns < 1 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS"))
	}

	u, err := url.Parse(c.Inference.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("INFERENCE_BASE_URL %q must be an absolute http(s) URL", c.Inference.BaseURL))
	}
	if c.Inference.Timeout <= 0 {
		errs = append(errs, errors.New("INFERENCE_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}
