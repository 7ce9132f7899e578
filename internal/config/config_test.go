package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty working directory so no config file is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.RateLimit)
	assert.Equal(t, time.Second, cfg.RateInterval)
	assert.Equal(t, int64(65536), cfg.ReadLimit)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.WSEndpoint)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 3*time.Second, cfg.TypingTTL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := "port: 9000\nmode: debug\nredis_addr: localhost:6379\nrate_limit: 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(yaml), 0o644))

	t.Setenv("DEBATE_MODE", "test")
	t.Setenv("DEBATE_TYPING_TTL", "500ms")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 8080, "")
	fs.String("ws-endpoint", "", "")
	require.NoError(t, fs.Parse([]string{"--port=9100", "--ws-endpoint=ws://example/ws"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port, "flag beats file")
	assert.Equal(t, "test", cfg.Mode, "env beats file")
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RateLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.TypingTTL)
	assert.Equal(t, "ws://example/ws", cfg.WSEndpoint)
}

func TestLoad_Invalid(t *testing.T) {
	inTempDir(t)
	t.Setenv("DEBATE_RATE_LIMIT", "0")

	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_BadLogLevel(t *testing.T) {
	inTempDir(t)
	t.Setenv("DEBATE_LOG_LEVEL", "loud")

	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
