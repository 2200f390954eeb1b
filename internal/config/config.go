// Package config provides configuration types and defaults for regform.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/regform/internal/debounce"
	"github.com/zjrosen/regform/internal/form"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/tracing"
)

// Config holds all configuration options for regform.
type Config struct {
	API     APIConfig      `mapstructure:"api"`
	Form    FormConfig     `mapstructure:"form"`
	Server  ServerConfig   `mapstructure:"server"`
	Tracing tracing.Config `mapstructure:"tracing"`
	Theme   ThemeConfig    `mapstructure:"theme"`
}

// APIConfig points the client at the registration backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FormConfig tunes form behavior.
type FormConfig struct {
	Debounce          time.Duration `mapstructure:"debounce"`            // quiet period before the availability check
	UsernameMaxLength int           `mapstructure:"username_max_length"` // default 20
}

// ServerConfig configures the development backend.
type ServerConfig struct {
	Addr           string  `mapstructure:"addr"`
	DBPath         string  `mapstructure:"db_path"`
	CountriesFile  string  `mapstructure:"countries_file"` // optional YAML seed, reloaded on change
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// ThemeConfig holds the few colors the form uses.
type ThemeConfig struct {
	Highlight string `mapstructure:"highlight"`
	Subtle    string `mapstructure:"subtle"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

// DefaultTracesFilePath returns ~/.config/regform/traces/traces.jsonl, or
// empty if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "regform", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tr := tracing.DefaultConfig()
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 10 * time.Second,
		},
		Form: FormConfig{
			Debounce:          debounce.DefaultDelay,
			UsernameMaxLength: form.DefaultUsernameMaxLength,
		},
		Server: ServerConfig{
			Addr:           "localhost:3000",
			DBPath:         ".regform/regform.db",
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Tracing: tr,
		Theme: ThemeConfig{
			Highlight: "#54A0FF",
			Subtle:    "#696969",
			Error:     "#FF8787",
			Success:   "#73F59F",
		},
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateAPI(c.API); err != nil {
		return err
	}
	if err := ValidateForm(c.Form); err != nil {
		return err
	}
	if err := ValidateServer(c.Server); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateAPI requires an absolute http(s) base URL and a positive timeout.
func ValidateAPI(api APIConfig) error {
	u, err := url.Parse(api.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", api.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("api.base_url must include a host, got %q", api.BaseURL)
	}
	if api.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", api.Timeout)
	}
	return nil
}

// ValidateForm checks debounce and length limits.
func ValidateForm(f FormConfig) error {
	if f.Debounce <= 0 {
		return fmt.Errorf("form.debounce must be positive, got %s", f.Debounce)
	}
	if f.UsernameMaxLength < 1 {
		return fmt.Errorf("form.username_max_length must be at least 1, got %d", f.UsernameMaxLength)
	}
	return nil
}

// ValidateServer checks the development backend settings.
func ValidateServer(s ServerConfig) error {
	if s.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if s.DBPath == "" {
		return fmt.Errorf("server.db_path is required")
	}
	if s.RateLimitRPS < 0 {
		return fmt.Errorf("server.rate_limit_rps must not be negative, got %v", s.RateLimitRPS)
	}
	if s.RateLimitRPS > 0 && s.RateLimitBurst < 1 {
		return fmt.Errorf("server.rate_limit_burst must be at least 1 when rate limiting is on, got %d", s.RateLimitBurst)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	if !tracing.ValidExporter(t.Exporter) {
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
	}
	if t.Enabled && t.Exporter == tracing.ExporterOTLP && t.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# regform configuration

# Registration API used by the form
api:
  base_url: http://localhost:3000
  timeout: 10s

# Form behavior
form:
  debounce: 300ms            # quiet period before checking username availability
  username_max_length: 20

# Development backend ('regform serve')
server:
  addr: localhost:3000
  db_path: .regform/regform.db
  # countries_file: countries.yaml   # YAML list of {code, name}; reloaded on change
  rate_limit_rps: 5                  # POST /register per client, 0 disables
  rate_limit_burst: 10

# Distributed tracing
# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp
#   file_path: ~/.config/regform/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# Colors
theme:
  highlight: "#54A0FF"
  subtle: "#696969"
  error: "#FF8787"
  success: "#73F59F"
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
