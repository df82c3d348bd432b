package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/profilekeeper/internal/flagx"
	"github.com/dmitrijs2005/profilekeeper/internal/timex"
)

// JsonConfig is the JSON shape of Config. ShutdownTimeout uses
// timex.Duration, so both "5s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	MetricsAddr      *string        `json:"metrics_addr"`
	DatabaseDSN      string         `json:"database_dsn"`
	SubscriberBuffer int            `json:"subscriber_buffer"`
	ShutdownTimeout  timex.Duration `json:"shutdown_timeout"`
	LogLevel         string         `json:"log_level"`
	LogFormat        string         `json:"log_format"`
}

// parseJson overlays config with the file named by -c or -config. Absent
// fields keep their value; metrics_addr may be set to "" to disable the
// HTTP listener. Read and unmarshal errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
	if c.SubscriberBuffer > 0 {
		config.SubscriberBuffer = c.SubscriberBuffer
	}
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
