package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-x string   xray gRPC control API address (e.g., "127.0.0.1:10085")
//	-g string   xray inbound tag
//	-i int      full reconciliation interval, seconds
//	-k int      daemon health check interval, seconds
//	-w int      dispatcher worker-pool width
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Interval flags are accepted as integers in seconds and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-x", "-g", "-i", "-k", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.XrayAPIAddr, "x", config.XrayAPIAddr, "xray control API address")
	fs.StringVar(&config.XrayInboundTag, "g", config.XrayInboundTag, "xray inbound tag")

	syncInterval := fs.Int("i", int(config.SyncInterval.Seconds()), "full sync interval (in seconds)")
	healthInterval := fs.Int("k", int(config.HealthInterval.Seconds()), "health check interval (in seconds)")

	fs.IntVar(&config.DispatchConcurrency, "w", config.DispatchConcurrency, "dispatcher concurrency")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SyncInterval = time.Duration(*syncInterval) * time.Second
	config.HealthInterval = time.Duration(*healthInterval) * time.Second
}
