package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/regform/internal/tracing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	require.Equal(t, 10*time.Second, cfg.API.Timeout)
	require.Equal(t, 300*time.Millisecond, cfg.Form.Debounce)
	require.Equal(t, 20, cfg.Form.UsernameMaxLength)
	require.Equal(t, "localhost:3000", cfg.Server.Addr)
	require.False(t, cfg.Tracing.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestDefaultConfigTemplate_MatchesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(DefaultConfigTemplate())))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	defaults := Defaults()
	require.Equal(t, defaults.API, cfg.API)
	require.Equal(t, defaults.Form, cfg.Form)
	require.Equal(t, defaults.Server, cfg.Server)
	require.Equal(t, defaults.Theme, cfg.Theme)
}

func TestValidateAPI(t *testing.T) {
	tests := []struct {
		name    string
		api     APIConfig
		wantErr string
	}{
		{name: "valid http", api: APIConfig{BaseURL: "http://localhost:3000", Timeout: time.Second}},
		{name: "valid https", api: APIConfig{BaseURL: "https://api.example.com/v1", Timeout: time.Second}},
		{name: "bad scheme", api: APIConfig{BaseURL: "ftp://x", Timeout: time.Second}, wantErr: "http or https"},
		{name: "missing host", api: APIConfig{BaseURL: "http://", Timeout: time.Second}, wantErr: "include a host"},
		{name: "zero timeout", api: APIConfig{BaseURL: "http://localhost", Timeout: 0}, wantErr: "api.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPI(tt.api)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateForm(t *testing.T) {
	require.NoError(t, ValidateForm(FormConfig{Debounce: time.Millisecond, UsernameMaxLength: 1}))

	err := ValidateForm(FormConfig{Debounce: 0, UsernameMaxLength: 20})
	require.ErrorContains(t, err, "form.debounce")

	err = ValidateForm(FormConfig{Debounce: time.Second, UsernameMaxLength: 0})
	require.ErrorContains(t, err, "username_max_length")
}

func TestValidateServer(t *testing.T) {
	ok := ServerConfig{Addr: ":3000", DBPath: "x.db", RateLimitRPS: 1, RateLimitBurst: 1}
	require.NoError(t, ValidateServer(ok))

	noLimit := ServerConfig{Addr: ":3000", DBPath: "x.db"}
	require.NoError(t, ValidateServer(noLimit), "rate limiting off needs no burst")

	require.ErrorContains(t, ValidateServer(ServerConfig{DBPath: "x.db"}), "server.addr")
	require.ErrorContains(t, ValidateServer(ServerConfig{Addr: ":1"}), "server.db_path")
	require.ErrorContains(t, ValidateServer(ServerConfig{Addr: ":1", DBPath: "x", RateLimitRPS: 2}), "rate_limit_burst")
	require.ErrorContains(t, ValidateServer(ServerConfig{Addr: ":1", DBPath: "x", RateLimitRPS: -1}), "rate_limit_rps")
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(tracing.DefaultConfig()))

	err := ValidateTracing(tracing.Config{Exporter: "jaeger"})
	require.ErrorContains(t, err, "tracing.exporter")

	err = ValidateTracing(tracing.Config{SampleRate: 1.5})
	require.ErrorContains(t, err, "sample_rate")

	err = ValidateTracing(tracing.Config{Enabled: true, Exporter: tracing.ExporterOTLP})
	require.ErrorContains(t, err, "otlp_endpoint")
}

func TestWriteDefaultConfig_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".regform", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))
}

func TestDefaultTracesFilePath(t *testing.T) {
	path := DefaultTracesFilePath()
	if path == "" {
		t.Skip("no home directory")
	}
	require.True(t, strings.HasSuffix(path, filepath.Join("regform", "traces", "traces.jsonl")))
}
