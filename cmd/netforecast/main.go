package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-netforecast/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "netforecast",
		Short: "Predictive network telemetry pipeline",
		Long: `netforecast samples synthetic network telemetry, blends it with live controller
metrics, forecasts link utilization and proposes time-bounded remediation actions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (env NETFORECAST_CONFIG)")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}
	root.AddCommand(
		newServeCommand(load),
		newTrainCommand(load),
		newSimulateCommand(load),
	)
	return root
}
