package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-d", "-i", "-t", "-n", "-l"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   address and port of the profile server
//	-d string   path of the local SQLite database
//	-i int      sync interval in seconds
//	-t int      echo-suppression TTL in seconds
//	-n string   session cookie name
//	-l string   log level (debug, info, warn, error)
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by other
// layers (-c/-config) do not trip the parser.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	ignoreTTL := fs.Int("t", int(cfg.IgnoreTTL.Seconds()), "echo suppression ttl (in seconds)")
	fs.StringVar(&cfg.CookieName, "n", cfg.CookieName, "session cookie name")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.IgnoreTTL = time.Duration(*ignoreTTL) * time.Second
}
