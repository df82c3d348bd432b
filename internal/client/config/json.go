package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/profilekeeper/internal/flagx"
	"github.com/dmitrijs2005/profilekeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals use
// timex.Duration so the file may say "30s" or give integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	DatabasePath       string         `json:"database_path"`
	SyncInterval       timex.Duration `json:"sync_interval"`
	IgnoreTTL          timex.Duration `json:"ignore_ttl"`
	CookieName         string         `json:"cookie_name"`
	LogLevel           string         `json:"log_level"`
	LogFormat          string         `json:"log_format"`
}

// parseJson overlays cfg with the file named by -c or -config. Fields absent
// from the file keep their current value. Read and unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.CookieName, jc.CookieName)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.IgnoreTTL.Duration > 0 {
		cfg.IgnoreTTL = jc.IgnoreTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
