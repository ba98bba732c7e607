package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_FileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_url: https://file.example.com
token: file-token
health_interval: 15s
max_notifications: 25
log_level: debug
`), 0o600))

	t.Setenv("COURSELOOP_CONFIG", path)
	t.Setenv("COURSELOOP_SERVER_URL", "https://env.example.com")
	t.Setenv("COURSELOOP_TOKEN", "")
	t.Setenv("COURSELOOP_HEALTH_INTERVAL", "")
	t.Setenv("COURSELOOP_LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", cfg.ServerURL)
	require.Equal(t, "file-token", cfg.Token)
	require.Equal(t, 15*time.Second, cfg.HealthInterval)
	require.Equal(t, 25, cfg.MaxNotifications)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, []string{"websocket", "polling"}, cfg.Transports)
}

func TestLoad_RequiresServerURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))

	t.Setenv("COURSELOOP_CONFIG", path)
	t.Setenv("COURSELOOP_SERVER_URL", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "server URL")
}

func TestResolveToken_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("secret-token\n"), 0o600))

	cfg := &Config{TokenFile: path}
	token, err := cfg.ResolveToken()
	require.NoError(t, err)
	require.Equal(t, "secret-token", token)
}

func TestResolveToken_MissingIsError(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.ResolveToken()
	require.Error(t, err)
}
