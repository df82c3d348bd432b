// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the profile server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - MetricsAddr: bind address for /metrics and /health; empty disables it.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps everything in memory.
//   - SubscriberBuffer: per-subscriber broadcast queue length.
//   - ShutdownTimeout: how long the HTTP listener gets to drain.
type Config struct {
	EndpointAddrGRPC string
	MetricsAddr      string
	DatabaseDSN      string
	SubscriberBuffer int
	ShutdownTimeout  time.Duration
	LogLevel         string
	LogFormat        string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.MetricsAddr = ":9090"
	c.DatabaseDSN = ""
	c.SubscriberBuffer = 64
	c.ShutdownTimeout = 5 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
