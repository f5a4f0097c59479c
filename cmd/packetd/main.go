package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "packetd",
		Short: "Framed packet server over WebSocket and TCP",
		Long: `packetd accepts WebSocket and raw TCP clients, reassembles their
length-prefixed frames and routes each packet by its leading id.

Packet 1 carries an event command, which is decoded, logged and
echoed back to the sender.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
