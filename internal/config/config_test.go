package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	for _, key := range []string{"QUIZBLITZ_API_URL", "QUIZBLITZ_SOCKET_URL", "QUIZBLITZ_IDENTITY_BACKEND", "PORT"} {
		t.Setenv(key, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.API.URL)
	assert.Equal(t, DefaultSocketURL, cfg.Socket.URL)
	assert.Equal(t, "file", cfg.Identity.Backend)
	assert.Equal(t, DefaultPort, cfg.Preview.Port)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
api:
  url: http://quiz.example/api
  timeout: 5s
identity:
  backend: redis
redis:
  addr: localhost:6379
`)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	t.Setenv("QUIZBLITZ_API_URL", "")
	t.Setenv("QUIZBLITZ_IDENTITY_BACKEND", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("QUIZBLITZ_SOCKET_URL", "ws://quiz.example/ws")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://quiz.example/api", cfg.API.URL, "api url from file")
	assert.Equal(t, "ws://quiz.example/ws", cfg.Socket.URL, "socket url from env")
	assert.Equal(t, "redis", cfg.Identity.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, Duration(cfg.API.Timeout, time.Second))
}

func TestDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("soon", time.Minute), "malformed value falls back")
}
