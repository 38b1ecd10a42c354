package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atinyakov/kv-url-shortener/internal/config"
)

var envNames = []string{
	"PORT", "SERVER_ADDRESS", "BASE_URL", "GRPC_ADDRESS", "STORE_BACKEND",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "DATABASE_DSN",
	"LOG_LEVEL", "LOG_FILE", "PROBE_TIMEOUT", "STORE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"MONITOR_INTERVAL", "TRACK_RECONNECTS", "ENABLE_LIST", "TRUSTED_SUBNET",
	"ENABLE_PPROF", "ENABLE_HTTPS", "ENABLE_TRACING", "CONFIG",
}

// clearEnv blanks every variable the parser reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParse(t *testing.T) {
	t.Run("no env, no config", func(t *testing.T) {
		clearEnv(t)

		opts, err := config.ParseArgs(nil)
		require.NoError(t, err)
		require.Equal(t, ":5000", opts.Port)
		require.Equal(t, "http://localhost:5000", opts.ResultHostname)
		require.Equal(t, config.BackendRedis, opts.StoreBackend)
		require.Equal(t, "redis", opts.RedisHost)
		require.Equal(t, "6379", opts.RedisPort)
		require.Equal(t, 5*time.Second, opts.ProbeTimeout)
		require.Equal(t, 3*time.Second, opts.StoreTimeout)
		require.Equal(t, 30*time.Second, opts.ShutdownTimeout)
		require.Equal(t, 2*time.Second, opts.MonitorInterval)
		require.True(t, opts.TrackReconnects)
		require.True(t, opts.EnableList)
		require.False(t, opts.EnableHTTPS)
		require.False(t, opts.EnablePprof)
		require.Empty(t, opts.GRPCAddress)
	})

	t.Run("env overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SERVER_ADDRESS", "127.0.0.1:9999")
		t.Setenv("BASE_URL", "http://example.com")
		t.Setenv("REDIS_HOST", "cache.local")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("STORE_TIMEOUT", "500ms")
		t.Setenv("TRACK_RECONNECTS", "false")
		t.Setenv("ENABLE_HTTPS", "true")
		t.Setenv("TRUSTED_SUBNET", "192.168.0.0/24")

		opts, err := config.ParseArgs(nil)
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9999", opts.Port)
		require.Equal(t, "http://example.com", opts.ResultHostname)
		require.Equal(t, "cache.local", opts.RedisHost)
		require.Equal(t, 2, opts.RedisDB)
		require.Equal(t, 500*time.Millisecond, opts.StoreTimeout)
		require.False(t, opts.TrackReconnects)
		require.True(t, opts.EnableHTTPS)
		require.Equal(t, "192.168.0.0/24", opts.TrustedSubnet)
	})

	t.Run("PORT env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "8081")

		opts, err := config.ParseArgs(nil)
		require.NoError(t, err)
		require.Equal(t, ":8081", opts.Port)
	})

	t.Run("flags override defaults", func(t *testing.T) {
		clearEnv(t)

		opts, err := config.ParseArgs([]string{"-a", ":7000", "-b", "http://sho.rt", "-s", "memory", "-g", ":9090"})
		require.NoError(t, err)
		require.Equal(t, ":7000", opts.Port)
		require.Equal(t, "http://sho.rt", opts.ResultHostname)
		require.Equal(t, config.BackendMemory, opts.StoreBackend)
		require.Equal(t, ":9090", opts.GRPCAddress)
	})

	t.Run("env overrides flags", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BASE_URL", "http://from-env")

		opts, err := config.ParseArgs([]string{"-b", "http://from-flag"})
		require.NoError(t, err)
		require.Equal(t, "http://from-env", opts.ResultHostname)
	})

	t.Run("yaml config file", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "cfg.yaml", `
server_address: 10.0.0.1:8081
base_url: http://testhost
store_backend: postgres
database_dsn: postgres://test
store_timeout: 1s
enable_pprof: true
trusted_subnet: 10.10.0.0/16
track_reconnects: false
`)
		t.Setenv("CONFIG", path)

		opts, err := config.ParseArgs(nil)
		require.NoError(t, err)
		require.Equal(t, "10.0.0.1:8081", opts.Port)
		require.Equal(t, "http://testhost", opts.ResultHostname)
		require.Equal(t, config.BackendPostgres, opts.StoreBackend)
		require.Equal(t, "postgres://test", opts.DatabaseDSN)
		require.Equal(t, time.Second, opts.StoreTimeout)
		require.True(t, opts.EnablePprof)
		require.False(t, opts.TrackReconnects)
		require.Equal(t, "10.10.0.0/16", opts.TrustedSubnet)
		// untouched keys keep their defaults
		require.Equal(t, "redis", opts.RedisHost)
		require.Equal(t, path, opts.Config)
	})

	t.Run("json config file, flag beats file", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "cfg.json", `{"server_address": ":6000", "base_url": "http://json-host", "enable_list": false}`)

		opts, err := config.ParseArgs([]string{"-c", path, "-a", ":6001"})
		require.NoError(t, err)
		require.Equal(t, ":6001", opts.Port)
		require.Equal(t, "http://json-host", opts.ResultHostname)
		require.False(t, opts.EnableList)
	})

	t.Run("errors", func(t *testing.T) {
		clearEnv(t)

		_, err := config.ParseArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")})
		require.Error(t, err)

		_, err = config.ParseArgs([]string{"-s", "etcd"})
		require.ErrorContains(t, err, "unknown store backend")

		_, err = config.ParseArgs([]string{"-s", "postgres"})
		require.ErrorContains(t, err, "DATABASE_DSN")

		t.Setenv("STORE_TIMEOUT", "soon")
		_, err = config.ParseArgs(nil)
		require.ErrorContains(t, err, "STORE_TIMEOUT")
	})
}
