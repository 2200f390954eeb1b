package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func readViper(t *testing.T, path string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v
}

func TestSaveValue_UpdatesExistingKeyAndKeepsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SaveValue(path, "api.base_url", "https://api.example.com"))

	v := readViper(t, path)
	require.Equal(t, "https://api.example.com", v.GetString("api.base_url"))
	require.Equal(t, "10s", v.GetString("api.timeout"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Registration API used by the form")
}

func TestSaveValue_CreatesMissingFileAndMappings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, SaveValue(path, "tracing.exporter", "stdout"))

	v := readViper(t, path)
	require.Equal(t, "stdout", v.GetString("tracing.exporter"))
}

func TestSaveValue_AppendsKeyToExistingMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("form:\n  debounce: 300ms\n"), 0o600))

	require.NoError(t, SaveValue(path, "form.username_max_length", "12"))

	v := readViper(t, path)
	require.Equal(t, 12, v.GetInt("form.username_max_length"))
	require.Equal(t, "300ms", v.GetString("form.debounce"))
}

func TestSaveValue_RejectsBadKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.ErrorContains(t, SaveValue(path, "api..url", "x"), "invalid key")
	require.ErrorContains(t, SaveValue(path, "api", "x"), "not a scalar")
	require.ErrorContains(t, SaveValue(path, "api.base_url.host", "x"), "not a mapping")
}

func TestSaveValue_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, SaveValue(path, "server.addr", ":4000"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), ".regform.yaml.tmp."), e.Name())
	}
}
