package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enoch4gor/btc-dca-backtester/internal/reporting"
)

var (
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `Lists runs stored by --record or watch mode, newest first. With --run
the stored daily ledger of one run is written as CSV to stdout.

Example:
  dcabt history --limit 5
  dcabt history --run 3f1c... > ledger.csv`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	historyLimit int
	historyRun   string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "print the ledger of this run id as CSV")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	rec := a.openRecorder(true)
	defer rec.Close()

	out := cmd.OutOrStdout()
	if historyRun != "" {
		timeline, err := rec.Timeline(historyRun)
		if err != nil {
			return err
		}
		if len(timeline) == 0 {
			return fmt.Errorf("run %q not found", historyRun)
		}
		return reporting.WriteTimelineCSV(out, timeline)
	}

	rows, err := rec.RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, reporting.RenderHistory(rows))
	return err
}
