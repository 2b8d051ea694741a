package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enoch4gor/btc-dca-backtester/internal/recorder"
	"github.com/enoch4gor/btc-dca-backtester/internal/reporting"
	"github.com/enoch4gor/btc-dca-backtester/internal/simulation"
)

var (
	compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Backtest every configured strategy and rank them",
		Long: `Runs all configured strategies in parallel over the same data and
prints them ranked by percentage return. Liquidated strategies rank last.

Example:
  dcabt compare
  dcabt compare --record`,
		Args: cobra.NoArgs,
		RunE: runCompare,
	}

	compareRecord bool
)

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().BoolVar(&compareRecord, "record", false, "store every run in the SQLite history")
}

func runCompare(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ds, err := a.collector.Load(cmd.Context())
	if err != nil {
		return err
	}
	outcomes, err := simulation.Compare(cmd.Context(), ds.Prices, ds.Sentiment, a.cfg.Strategies)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ds.IsFallback {
		fmt.Fprintf(out, "> Using %s fallback data, results are illustrative only.\n\n", ds.Source)
	}
	if err := reporting.WriteComparison(out, outcomes); err != nil {
		return err
	}

	rec := a.openRecorder(compareRecord)
	defer rec.Close()
	for _, o := range outcomes {
		if _, err := rec.RecordRun(&recorder.RunRecord{
			Name: o.Name, Config: o.Config, Source: ds.Source, IsFallback: ds.IsFallback, Result: o.Result,
		}); err != nil {
			return fmt.Errorf("record %q: %w", o.Name, err)
		}
	}
	return nil
}
