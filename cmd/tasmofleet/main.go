package main

import (
	"os"

	"github.com/spf13/cobra"

	"tasmofleet/internal/interfaces/cli/server"
	"tasmofleet/internal/interfaces/cli/update"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tasmofleet",
		Short: "Tasmofleet - OTA updater for Tasmota device fleets",
		Long:  `Tasmofleet keeps a fleet of Tasmota devices on the latest firmware release, either as a one-shot update run or as a dashboard server.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		update.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
