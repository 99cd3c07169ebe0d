// Package config loads gateway configuration from defaults and environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/citybrain/gateway/internal/database"
)

// Config is the complete gateway configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Inference InferenceConfig `koanf:"inference"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the listen port from APP_PORT.
	Port int `koanf:"port"`
	// PlatformPort is the listen port injected by the hosting platform (PORT).
	// It wins over Port when set.
	PlatformPort    int           `koanf:"platform_port"`
	Environment     string        `koanf:"environment"`
	LogLevel        string        `koanf:"log_level"`
	CORSOrigins     string        `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit"`
	QuestionLimit   int           `koanf:"question_limit"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds spatial store settings.
type DatabaseConfig struct {
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port"`
	User             string        `koanf:"user"`
	Password         string        `koanf:"password"`
	Name             string        `koanf:"name"`
	SSLMode          string        `koanf:"ssl_mode"`
	SSLVerify        bool          `koanf:"ssl_verify"`
	MaxConns         int           `koanf:"max_conns"`
	MinConns         int           `koanf:"min_conns"`
	ConnMaxLifetime  time.Duration `koanf:"conn_max_lifetime"`
	StatementTimeout time.Duration `koanf:"statement_timeout"`
	QueryTimeout     time.Duration `koanf:"query_timeout"`
}

// InferenceConfig holds remote inference service settings.
type InferenceConfig struct {
	BaseURL        string        `koanf:"base_url"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxRetries     uint64        `koanf:"max_retries"`
	BreakerEnabled bool          `koanf:"breaker_enabled"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            4000,
			Environment:     "development",
			LogLevel:        "info",
			CORSOrigins:     "*",
			RateLimit:       100,
			QuestionLimit:   20,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:             "localhost",
			Port:             5433,
			User:             "citybrain",
			Password:         "citybrain",
			Name:             "citybrain",
			SSLMode:          "require",
			MaxConns:         10,
			MinConns:         1,
			ConnMaxLifetime:  30 * time.Minute,
			StatementTimeout: 10 * time.Second,
			QueryTimeout:     10 * time.Second,
		},
		Inference: InferenceConfig{
			BaseURL: "https://citybrain.onrender.com",
			Timeout: 15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
		},
	}
}

var envMappings = map[string]string{
	"port":                        "server.platform_port",
	"app_port":                    "server.port",
	"app_env":                     "server.environment",
	"log_level":                   "server.log_level",
	"cors_allowed_origins":        "server.cors_origins",
	"rate_limit_requests":         "server.rate_limit",
	"rate_limit_questions":        "server.question_limit",
	"http_read_timeout":           "server.read_timeout",
	"http_write_timeout":          "server.write_timeout",
	"shutdown_timeout":            "server.shutdown_timeout",
	"postgres_host":               "database.host",
	"postgres_port":               "database.port",
	"postgres_user":               "database.user",
	"postgres_password":           "database.password",
	"postgres_db":                 "database.name",
	"postgres_ssl_mode":           "database.ssl_mode",
	"postgres_ssl_verify":         "database.ssl_verify",
	"db_max_conns":                "database.max_conns",
	"db_min_conns":                "database.min_conns",
	"db_conn_max_lifetime":        "database.conn_max_lifetime",
	"db_statement_timeout":        "database.statement_timeout",
	"db_query_timeout":            "database.query_timeout",
	"inference_base_url":          "inference.base_url",
	"inference_timeout":           "inference.timeout",
	"inference_max_retries":       "inference.max_retries",
	"inference_breaker_enabled":   "inference.breaker_enabled",
	"otel_enabled":                "telemetry.enabled",
	"otel_exporter_otlp_endpoint": "telemetry.otlp_endpoint",
}

// envTransform maps an environment variable to its koanf path. Unknown and
// empty variables map to "" and are skipped.
func envTransform(key, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	return envMappings[strings.ToLower(key)], value
}

// FileEnv names the environment variable holding an optional YAML config file.
const FileEnv = "CITYBRAIN_CONFIG"

// Load builds the configuration from defaults, the optional YAML file named by
// CITYBRAIN_CONFIG, then environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile builds the configuration: struct defaults first, then the YAML file
// at path when path is not empty, then environment variables. Empty variables
// are ignored so an unset value keeps its default.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	port := c.Server.Port
	if c.Server.PlatformPort > 0 {
		port = c.Server.PlatformPort
	}
	return ":" + strconv.Itoa(port)
}

// AllowedOrigins splits the comma-separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsProduction reports whether the gateway runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// DatabaseConfig converts to the connection settings used by the database package.
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Host:             c.Database.Host,
		Port:             c.Database.Port,
		User:             c.Database.User,
		Password:         c.Database.Password,
		Database:         c.Database.Name,
		SSLMode:          c.Database.SSLMode,
		SSLVerify:        c.Database.SSLVerify,
		MaxConns:         c.Database.MaxConns,
		MinConns:         c.Database.MinConns,
		ConnMaxLifetime:  c.Database.ConnMaxLifetime,
		StatementTimeout: c.Database.StatementTimeout,
	}
}
