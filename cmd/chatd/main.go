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
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run keeps main free of exit paths so deferred cleanups always execute.
func run() error {
	rootCmd := &cobra.Command{
		Use:   "chatd",
		Short: "Line based chat relay",
		Long: `chatd relays chat lines between TCP clients.

Every line a client sends is broadcast to all other connected clients.
Settings come from the environment (and an optional .env file),
flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		serveCmd(),
		statusCmd(),
		versionCmd(),
	)
	return rootCmd.Execute()
}
