// Package config loads the server configuration.
//
// Priority: defaults, then the optional YAML file, then NAPKIN_* environment
// variables. This is the only package that reads the process environment.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("napkin-mcp.yaml").
//	    Load()
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/napkin"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/observability"
)

// ConfigPathEnv names the variable holding the YAML file path.
const ConfigPathEnv = "NAPKIN_CONFIG"

// Config is the complete server configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Tools   ToolsConfig   `yaml:"tools"`
	Docs    DocsConfig    `yaml:"docs"`
}

// APIConfig configures the Napkin API client
type APIConfig struct {
	Key        string        `yaml:"key" env:"NAPKIN_API_KEY"`
	BaseURL    string        `yaml:"base_url" env:"NAPKIN_API_BASE"`
	Timeout    time.Duration `yaml:"timeout" env:"NAPKIN_TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"NAPKIN_MAX_RETRIES"`
	// RateLimit is the number of attempts per second; zero disables it.
	RateLimit float64 `yaml:"rate_limit" env:"NAPKIN_RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" env:"NAPKIN_RATE_BURST"`
}

// UnmarshalYAML reads api.timeout with the NAPKIN_TIMEOUT rule: a bare
// integer is milliseconds, anything else a Go duration.
func (a *APIConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain APIConfig

	rest := *node
	rest.Content = nil
	var timeout *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Kind == yaml.MappingNode && node.Content[i].Value == "timeout" {
			timeout = node.Content[i+1]
			continue
		}
		rest.Content = append(rest.Content, node.Content[i], node.Content[i+1])
	}
	if err := rest.Decode((*plain)(a)); err != nil {
		return err
	}

	if timeout == nil || timeout.Tag == "!!null" {
		return nil
	}
	if timeout.Kind != yaml.ScalarNode {
		return fmt.Errorf("api.timeout: expected milliseconds or a duration")
	}
	d, err := parseDuration(timeout.Value)
	if err != nil {
		return fmt.Errorf("api.timeout: %w", err)
	}
	a.Timeout = d
	return nil
}

// LogConfig configures logging
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"NAPKIN_LOG_LEVEL"`
	// Format: text, json. Ignored by the zap backend.
	Format string `yaml:"format" env:"NAPKIN_LOG_FORMAT"`
	// Backend: std, zap
	Backend string `yaml:"backend" env:"NAPKIN_LOG_BACKEND"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr        string `yaml:"addr" env:"NAPKIN_METRICS_ADDR"`
	Environment string `yaml:"environment" env:"NAPKIN_ENVIRONMENT"`
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	// Exporter: noop, otlp-grpc, otlp-http
	Exporter   string  `yaml:"exporter" env:"NAPKIN_TRACING_EXPORTER"`
	Endpoint   string  `yaml:"endpoint" env:"NAPKIN_TRACING_ENDPOINT"`
	Insecure   bool    `yaml:"insecure" env:"NAPKIN_TRACING_INSECURE"`
	SampleRate float64 `yaml:"sample_rate" env:"NAPKIN_TRACING_SAMPLE_RATE"`
}

// ToolsConfig configures tool defaults
type ToolsConfig struct {
	DownloadDir    string `yaml:"download_dir" env:"NAPKIN_DOWNLOAD_DIR"`
	DefaultStyleID string `yaml:"default_style_id" env:"NAPKIN_DEFAULT_STYLE_ID"`
}

// DocsConfig configures the documentation resources
type DocsConfig struct {
	// Dir holds the markdown files served as napkin-docs resources. Empty
	// disables resources; a missing directory lists none.
	Dir string `yaml:"dir" env:"NAPKIN_DOCS_DIR"`
}

// DefaultConfig returns the built-in defaults. The API key is empty.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    napkin.DefaultBaseURL,
			Timeout:    napkin.DefaultTimeout,
			MaxRetries: napkin.DefaultMaxRetries,
			RateBurst:  1,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "text",
			Backend: "std",
		},
		Metrics: MetricsConfig{
			Environment: "production",
		},
		Tracing: TracingConfig{
			Exporter:   string(observability.ExporterTypeNoop),
			SampleRate: 1.0,
		},
		Docs: DocsConfig{
			Dir: "docs",
		},
	}
}

// Loader builds a Config
type Loader struct {
	configPath string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a loader reading the process environment
func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv}
}

// WithConfigPath sets the YAML file path. When unset, NAPKIN_CONFIG is used.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithLookupEnv replaces the environment lookup.
func (l *Loader) WithLookupEnv(lookup func(string) (string, bool)) *Loader {
	l.lookupEnv = lookup
	return l
}

// Load reads the file and environment and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	path := l.configPath
	if path == "" {
		path, _ = l.lookupEnv(ConfigPathEnv)
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := l.loadEnv(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadEnv walks the struct and overrides every field with an env tag whose
// variable is set and non-empty.
func (l *Loader) loadEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.loadEnv(field); err != nil {
				return err
			}
			continue
		}

		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		value, ok := l.lookupEnv(key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := setField(field, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := parseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// parseDuration accepts Go durations ("20s") and bare milliseconds ("20000").
func parseDuration(value string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(value)
}

// Validate checks the configuration. A missing API key is reported as
// napkin.ErrMissingAPIKey.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.API.Key) == "" {
		errs = append(errs, napkin.ErrMissingAPIKey)
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must not be negative"))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("api.max_retries must not be negative"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("api.rate_limit must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	switch c.Log.Backend {
	case "std", "zap":
	default:
		errs = append(errs, fmt.Errorf("unknown log backend %q", c.Log.Backend))
	}
	switch observability.ExporterType(c.Tracing.Exporter) {
	case observability.ExporterTypeNoop, observability.ExporterTypeOTLPGRPC, observability.ExporterTypeOTLPHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_rate must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

// Client returns the Napkin client configuration.
func (c *Config) Client() napkin.Config {
	return napkin.Config{
		BaseURL:    c.API.BaseURL,
		APIKey:     c.API.Key,
		Timeout:    c.API.Timeout,
		MaxRetries: c.API.MaxRetries,
	}
}
