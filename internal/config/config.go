// Package config provides configuration management for the book search service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// URL policy names for SearchConfig.URLPolicy.
const (
	// URLPolicyLandingFirst prefers the landing page and keeps every record.
	URLPolicyLandingFirst = "landing-first"
	// URLPolicyPDFFirst prefers the PDF link, keeps English records only and
	// drops records without a link.
	URLPolicyPDFFirst = "pdf-first"
)

// Namespace order names for SearchConfig.NamespaceOrder.
const (
	// NamespaceOrderTopicFirst tries topics before concepts.
	NamespaceOrderTopicFirst = "topic-first"
	// NamespaceOrderConceptFirst tries concepts before topics.
	NamespaceOrderConceptFirst = "concept-first"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "BOOKSEARCH"

// Config holds all configuration for the book search service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// CORS contains cross-origin settings for the HTTP API.
	CORS CORSConfig `mapstructure:"cors"`
	// OpenAlex contains upstream API client settings.
	OpenAlex OpenAlexConfig `mapstructure:"openalex"`
	// Search contains search pipeline policies and request defaults.
	Search SearchConfig `mapstructure:"search"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response. A search
	// may spend several backoff cycles upstream, so this is generous.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// CORSConfig holds cross-origin resource sharing configuration.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API ("*" for any).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AllowCredentials allows cookies and auth headers on cross-origin calls.
	AllowCredentials bool `mapstructure:"allow_credentials"`
}

// OpenAlexConfig holds OpenAlex API client configuration.
type OpenAlexConfig struct {
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Email is the default polite-pool contact sent as mailto.
	Email string `mapstructure:"email"`
	// Timeout bounds each HTTP attempt.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxAttempts is the number of tries for a request answered with 429.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BackoffBase is the first backoff delay.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	// MaxBackoff caps a single backoff delay before jitter.
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
	// MaxJitter bounds the random delay added to each backoff.
	MaxJitter time.Duration `mapstructure:"max_jitter"`
	// RateLimit is the maximum requests per second (0 disables pacing).
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the token bucket burst.
	BurstSize int `mapstructure:"burst_size"`
}

// SearchConfig holds search pipeline configuration.
type SearchConfig struct {
	// DefaultStartYear is used when a request omits start_year.
	DefaultStartYear int `mapstructure:"default_start_year"`
	// DefaultEndYear is used when a request omits end_year.
	DefaultEndYear int `mapstructure:"default_end_year"`
	// DefaultMaxResults is used when a request omits max_results.
	DefaultMaxResults int `mapstructure:"default_max_results"`
	// MaxResultsLimit is the largest per-subject cap a request may ask for.
	MaxResultsLimit int `mapstructure:"max_results_limit"`
	// URLPolicy selects how works are mapped to rows (landing-first, pdf-first).
	URLPolicy string `mapstructure:"url_policy"`
	// NamespaceOrder selects which taxonomy is tried first (topic-first, concept-first).
	NamespaceOrder string `mapstructure:"namespace_order"`
	// SortByYear sorts results by year descending unless a request overrides it.
	SortByYear bool `mapstructure:"sort_by_year"`
	// IsolateSubjectErrors skips failed subjects instead of failing the request.
	IsolateSubjectErrors bool `mapstructure:"isolate_subject_errors"`
	// OAFallback configures the open access top-up.
	OAFallback OAFallbackConfig `mapstructure:"oa_fallback"`
}

// OAFallbackConfig controls re-fetching a subject without the open access
// filter when the open access pass is sparse.
type OAFallbackConfig struct {
	// Enabled turns the fallback on.
	Enabled bool `mapstructure:"enabled"`
	// Divisor sets the threshold: the fallback runs when a subject has fewer
	// than MaxResults/Divisor rows.
	Divisor int `mapstructure:"divisor"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading the given YAML file instead
// of searching the default locations when path is non-empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/book-search-service")
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allow_credentials", false)

	// OpenAlex defaults
	v.SetDefault("openalex.base_url", "https://api.openalex.org")
	v.SetDefault("openalex.email", "")
	v.SetDefault("openalex.timeout", "60s")
	v.SetDefault("openalex.max_attempts", 5)
	v.SetDefault("openalex.backoff_base", "1s")
	v.SetDefault("openalex.max_backoff", "30s")
	v.SetDefault("openalex.max_jitter", "1s")
	v.SetDefault("openalex.rate_limit", 10.0) // polite pool
	v.SetDefault("openalex.burst_size", 10)

	// Search defaults
	v.SetDefault("search.default_start_year", 2021)
	v.SetDefault("search.default_end_year", 2025)
	v.SetDefault("search.default_max_results", 50)
	v.SetDefault("search.max_results_limit", 1000)
	v.SetDefault("search.url_policy", URLPolicyLandingFirst)
	v.SetDefault("search.namespace_order", NamespaceOrderTopicFirst)
	v.SetDefault("search.sort_by_year", false)
	v.SetDefault("search.isolate_subject_errors", false)
	v.SetDefault("search.oa_fallback.enabled", false)
	v.SetDefault("search.oa_fallback.divisor", 5)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port (%d)", c.Server.HTTPPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate OpenAlex client
	if c.OpenAlex.BaseURL == "" {
		return fmt.Errorf("openalex base_url is required")
	}
	if c.OpenAlex.Timeout <= 0 {
		return fmt.Errorf("openalex timeout must be positive")
	}
	if c.OpenAlex.MaxAttempts <= 0 {
		return fmt.Errorf("openalex max_attempts must be positive")
	}
	if c.OpenAlex.BackoffBase <= 0 {
		return fmt.Errorf("openalex backoff_base must be positive")
	}
	if c.OpenAlex.MaxBackoff < c.OpenAlex.BackoffBase {
		return fmt.Errorf("openalex max_backoff (%s) must be >= backoff_base (%s)",
			c.OpenAlex.MaxBackoff, c.OpenAlex.BackoffBase)
	}
	if c.OpenAlex.RateLimit < 0 {
		return fmt.Errorf("openalex rate_limit must not be negative")
	}

	// Validate search policies
	switch c.Search.URLPolicy {
	case URLPolicyLandingFirst, URLPolicyPDFFirst:
	default:
		return fmt.Errorf("invalid search url_policy: %q", c.Search.URLPolicy)
	}
	switch c.Search.NamespaceOrder {
	case NamespaceOrderTopicFirst, NamespaceOrderConceptFirst:
	default:
		return fmt.Errorf("invalid search namespace_order: %q", c.Search.NamespaceOrder)
	}
	if c.Search.MaxResultsLimit <= 0 {
		return fmt.Errorf("search max_results_limit must be positive")
	}
	if c.Search.DefaultMaxResults <= 0 || c.Search.DefaultMaxResults > c.Search.MaxResultsLimit {
		return fmt.Errorf("search default_max_results must be between 1 and %d", c.Search.MaxResultsLimit)
	}
	if c.Search.DefaultStartYear > c.Search.DefaultEndYear {
		return fmt.Errorf("search default_start_year (%d) must be <= default_end_year (%d)",
			c.Search.DefaultStartYear, c.Search.DefaultEndYear)
	}
	if c.Search.OAFallback.Enabled && c.Search.OAFallback.Divisor <= 0 {
		return fmt.Errorf("search oa_fallback divisor must be positive")
	}

	return nil
}
