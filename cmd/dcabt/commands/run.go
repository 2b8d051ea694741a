package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
	"github.com/enoch4gor/btc-dca-backtester/internal/recorder"
	"github.com/enoch4gor/btc-dca-backtester/internal/reporting"
	"github.com/enoch4gor/btc-dca-backtester/internal/simulation"
)

var (
	runCmd = &cobra.Command{
		Use:   "run [strategy]",
		Short: "Backtest one configured strategy",
		Long: `Runs one strategy from the config over the loaded price history and
prints its summary. Without a name the first configured strategy is used.

Example:
  dcabt run weekly-dca
  dcabt run kelly-2x --from 2021-01-01 --to 2022-12-31 --csv kelly.csv --record`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStrategy,
	}

	runCSV    string
	runRecord bool
	runFrom   string
	runTo     string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runCSV, "csv", "", "write the daily ledger to this CSV file")
	runCmd.Flags().BoolVar(&runRecord, "record", false, "store the run in the SQLite history")
	runCmd.Flags().StringVar(&runFrom, "from", "", "override start date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runTo, "to", "", "override end date (YYYY-MM-DD)")
}

func runStrategy(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	st := a.cfg.Strategies[0]
	if len(args) == 1 {
		if st, err = a.cfg.Strategy(args[0]); err != nil {
			return err
		}
	}
	if err := applyWindow(&st.Config, runFrom, runTo); err != nil {
		return err
	}

	ds, err := a.collector.Load(cmd.Context())
	if err != nil {
		return err
	}
	res, err := simulation.Run(ds.Prices, ds.Sentiment, st.Config)
	if err != nil {
		return fmt.Errorf("run strategy %q: %w", st.Name, err)
	}

	out := cmd.OutOrStdout()
	if ds.IsFallback {
		fmt.Fprintf(out, "> Using %s fallback data, results are illustrative only.\n\n", ds.Source)
	}
	if err := reporting.WriteSummary(out, st.Name, st.Config, res.Stats); err != nil {
		return err
	}

	if runCSV != "" {
		if err := writeCSV(runCSV, res.Timeline); err != nil {
			return err
		}
		a.log.Info().Str("path", runCSV).Int("rows", len(res.Timeline)).Msg("timeline written")
	}

	rec := a.openRecorder(runRecord)
	defer rec.Close()
	id, err := rec.RecordRun(&recorder.RunRecord{
		Name: st.Name, Config: st.Config, Source: ds.Source, IsFallback: ds.IsFallback, Result: res,
	})
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if id != "" {
		fmt.Fprintf(out, "Recorded as %s\n", id)
	}
	return nil
}

// applyWindow overrides the date window and re-validates the strategy.
func applyWindow(cfg *model.StrategyConfig, from, to string) error {
	if from != "" {
		d, err := model.ParseDay(from)
		if err != nil {
			return err
		}
		cfg.StartDate = d
	}
	if to != "" {
		d, err := model.ParseDay(to)
		if err != nil {
			return err
		}
		cfg.EndDate = d
	}
	return cfg.Validate()
}

func writeCSV(path string, timeline []model.LedgerRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := reporting.WriteTimelineCSV(f, timeline); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
