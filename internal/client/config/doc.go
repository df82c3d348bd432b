// Package config loads runtime configuration for the profilekeeper client.
//
// Sources, in increasing precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// JSON schema:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "profile.db",
//	  "sync_interval": "5s",
//	  "ignore_ttl": "10s",
//	  "cookie_name": "user",
//	  "log_level": "warn",
//	  "log_format": "text"
//	}
package config
