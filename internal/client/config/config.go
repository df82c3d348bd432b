package config

import "time"

// Config holds runtime settings for the profilekeeper client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the profile gRPC endpoint.
//   - DatabasePath: SQLite file holding the local user row, personas and cookies.
//   - SyncInterval: how often the reconciler runs when nothing kicks it.
//   - IgnoreTTL: lifetime of an unmatched echo-suppression entry.
//   - CookieName: metadata name of the persisted session cookie.
//   - LogLevel, LogFormat: passed to logging.New.
type Config struct {
	ServerEndpointAddr string
	DatabasePath       string
	SyncInterval       time.Duration
	IgnoreTTL          time.Duration
	CookieName         string
	LogLevel           string
	LogFormat          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "profile.db"
	c.SyncInterval = 5 * time.Second
	c.IgnoreTTL = 10 * time.Second
	c.CookieName = "user"
	c.LogLevel = "warn"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
