// Gray Logic IR - infrared learn, store and replay bridge
//
// graylogic-ir captures raw IR waveforms from a receiver, keeps them under
// human-chosen names and replays them on demand. Requests arrive over HTTP,
// MQTT and cron schedules and are serialised through a single dispatcher
// that owns the transceiver.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCLIApp(os.Stdout).RunContext(ctx, os.Args)
	cancel()

	if errors.Is(err, errRestart) {
		// Only returns on failure.
		err = reexec()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
