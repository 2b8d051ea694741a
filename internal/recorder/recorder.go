package recorder

import (
	"time"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// RunRecord is one finished simulation to persist.
type RunRecord struct {
	Name       string
	Config     model.StrategyConfig
	Source     string // price provider the dataset came from
	IsFallback bool
	Result     *model.Result
}

// RunRow is the stored summary of a recorded run.
type RunRow struct {
	ID         string
	RecordedAt time.Time
	Name       string
	Source     string
	IsFallback bool
	StartDate  model.Day
	EndDate    model.Day
	Stats      model.Summary
}

// Recorder persists simulation runs for later comparison.
type Recorder interface {
	// RecordRun stores the run and its ledger, returning the run id.
	RecordRun(run *RunRecord) (string, error)
	RecentRuns(limit int) ([]RunRow, error)
	Timeline(runID string) ([]model.LedgerRecord, error)
	Close() error
}
