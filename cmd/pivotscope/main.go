package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "pivotscope"
	version = "v0.4.0"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath  string
	historyPath string
	logLevel    string
	logFormat   string
	outDir      string
	metricsFile string
	jsonOut     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Causal zigzag pivots, epoch cycles and reclaim backtests over daily closes",
		Version: version,
		Long: `pivotscope analyzes a daily close history (date,close CSV).

It builds volatility-scaled indicators, detects causally confirmed zigzag
pivots, measures peak-to-trough cycles per configured epoch, backtests the
peak-reclaim trend strategy and runs a walk-forward grid optimization.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML config file (defaults apply when empty)")
	pf.StringVar(&flags.historyPath, "history", "", "Daily close history CSV")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level override (trace|debug|info|warn|error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format override (auto|console|json)")
	pf.StringVar(&flags.outDir, "out", "", "Write report artifacts under this directory")
	pf.StringVar(&flags.metricsFile, "metrics-file", "", "Write run metrics as a node-exporter textfile")
	pf.BoolVar(&flags.jsonOut, "json", false, "Print the report as JSON instead of a summary")

	rootCmd.AddCommand(
		newSeriesCmd(flags),
		newPivotsCmd(flags),
		newCyclesCmd(flags),
		newBacktestCmd(flags),
		newWalkForwardCmd(flags),
		newConfigCmd(flags),
	)

	return rootCmd
}

func requireHistory(flags *globalFlags) error {
	if flags.historyPath == "" {
		return fmt.Errorf("--history is required")
	}
	return nil
}
