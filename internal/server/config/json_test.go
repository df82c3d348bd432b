package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_grpc": "www.example:9000",
		"database_dsn":       "postgres://db",
		"subscriber_buffer":  16,
		"shutdown_timeout":   "1m",
		"log_level":          "debug",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{MetricsAddr: ":9090", LogFormat: "json"}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, 16, cfg.SubscriberBuffer)
		assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, ":9090", cfg.MetricsAddr, "absent fields keep their value")
		assert.Equal(t, "json", cfg.LogFormat)
	})

	t.Run("empty metrics addr disables listener", func(t *testing.T) {
		path := writeTempJSON(t, dir, "nometrics.json", map[string]any{"metrics_addr": ""})
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{MetricsAddr: ":9090"}
		parseJson(cfg)

		assert.Empty(t, cfg.MetricsAddr)
	})

	t.Run("flags override json", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag, "-a", ":7000"}

		cfg := LoadConfig()

		assert.Equal(t, ":7000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
