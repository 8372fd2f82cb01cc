package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:     "gazemap",
	Short:   "Map eye tracker gaze onto a fixed reference image",
	Version: Version,
}

// Execute runs the CLI. Ctrl+C and SIGTERM cancel the command context so
// the long-running loops shut down cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "settings.json", "Path to the settings file")
}
