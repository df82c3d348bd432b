package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/profilekeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-m", "-d", "-b", "-l", "-f"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   metrics/health bind address
//	-d string   PostgreSQL DSN
//	-b int      subscriber buffer length
//	-l string   log level
//	-f string   log format (text or json)
//
// os.Args is filtered with flagx.FilterArgs first, so -c/-config and other
// foreign flags do not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.SubscriberBuffer, "b", config.SubscriberBuffer, "subscriber buffer length")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
