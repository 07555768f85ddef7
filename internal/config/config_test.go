package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "STORE_BACKEND", "DATABASE_URL", "REDIS_URL",
		"EVENTS_CHANNEL", "LOCK_WAIT", "SHUTDOWN_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
		"WS_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3002", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "broadcast", cfg.EventsChannel)
	assert.Equal(t, 2*time.Second, cfg.LockWait)
}

func TestLoad_DatabaseURLSelectsPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/musicroom")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "queue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
store_backend: memory
redis_url: redis://cache:6379
lock_wait: 750ms
log_level: debug
ws_allowed_origins:
  - http://localhost:4200
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port, "env wins over file")
	assert.Equal(t, "redis://cache:6379", cfg.RedisURL)
	assert.Equal(t, 750*time.Millisecond, cfg.LockWait)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.WSAllowedOrigins)

	t.Setenv("WS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.WSAllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres"}},
		{"unknown backend", map[string]string{"STORE_BACKEND": "sqlite"}},
		{"bad duration", map[string]string{"LOCK_WAIT": "soon"}},
		{"zero wait", map[string]string{"LOCK_WAIT": "0s"}},
		{"bad port", map[string]string{"PORT": "http"}},
		{"missing file", map[string]string{"CONFIG_FILE": "/nonexistent/queue.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
