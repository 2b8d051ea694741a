package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	logLevel   string
	pretty     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dcabt",
	Short: "BTC dollar-cost averaging backtester",
	Long: `dcabt replays DCA strategies over daily BTC history.

Strategies combine periodic buys, an initial lump sum, target-ratio
rebalancing, leverage with liquidation, and Fear & Greed / moving-average
buy filters. Strategies are defined in the config file.

Examples:
  dcabt run weekly-dca --csv timeline.csv
  dcabt compare --record
  dcabt history --limit 10
  dcabt watch`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "configs/config.yaml", "config file (CONFIG_PATH overrides the default)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (default from config)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logs")
}
