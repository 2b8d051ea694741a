package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/enoch4gor/btc-dca-backtester/internal/collector"
	"github.com/enoch4gor/btc-dca-backtester/internal/model"
	"github.com/enoch4gor/btc-dca-backtester/internal/notifier"
	"github.com/enoch4gor/btc-dca-backtester/internal/recorder"
	"github.com/enoch4gor/btc-dca-backtester/internal/simulation"
)

// DataSource is the cached market dataset, satisfied by *collector.Collector.
type DataSource interface {
	Load(ctx context.Context) (*collector.Dataset, error)
	Refresh(ctx context.Context) (*collector.Dataset, error)
}

// Scheduler refreshes market data on a cron schedule, re-runs the configured
// strategies and reports the results.
type Scheduler struct {
	Cron       *cron.Cron
	Data       DataSource
	Strategies []model.NamedStrategy
	Notifier   notifier.Notifier
	Recorder   recorder.Recorder
	Ctx        context.Context
	log        zerolog.Logger
}

// NewScheduler creates a new Scheduler. Cron specs carry a seconds field.
func NewScheduler(ctx context.Context, data DataSource, strategies []model.NamedStrategy, n notifier.Notifier, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Data:       data,
		Strategies: strategies,
		Notifier:   n,
		Recorder:   rec,
		Ctx:        ctx,
		log:        log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the refresh job.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("strategies", len(s.Strategies)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes the refresh job immediately.
func (s *Scheduler) RunNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	s.log.Info().Msg("running refresh task")
	ds, err := s.Data.Refresh(s.Ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("refresh data")
		s.trySend(failure("Data refresh failed", err))
		return
	}

	outcomes, err := s.compare(ds)
	if err != nil {
		s.log.Error().Err(err).Msg("compare strategies")
		s.trySend(failure("Backtest failed", err))
		return
	}
	s.trySend(notifier.FormatComparison(outcomes, ds))
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return s.help()
	}

	switch fields[0] {
	case "/run":
		if len(fields) < 2 {
			return "Usage: /run &lt;name&gt;\n\n" + s.help()
		}
		return s.runOne(ctx, fields[1])
	case "/compare":
		ds, err := s.Data.Load(ctx)
		if err != nil {
			return failure("Data unavailable", err)
		}
		outcomes, err := s.compare(ds)
		if err != nil {
			return failure("Backtest failed", err)
		}
		return notifier.FormatComparison(outcomes, ds)
	case "/data":
		ds, err := s.Data.Load(ctx)
		if err != nil {
			return failure("Data unavailable", err)
		}
		return notifier.FormatDataStatus(ds)
	default:
		return s.help()
	}
}

func (s *Scheduler) runOne(ctx context.Context, name string) string {
	var st *model.NamedStrategy
	for i := range s.Strategies {
		if s.Strategies[i].Name == name {
			st = &s.Strategies[i]
			break
		}
	}
	if st == nil {
		return fmt.Sprintf("Unknown strategy %s\n\n%s", html.EscapeString(name), s.help())
	}

	ds, err := s.Data.Load(ctx)
	if err != nil {
		return failure("Data unavailable", err)
	}
	res, err := simulation.Run(ds.Prices, ds.Sentiment, st.Config)
	if err != nil {
		return failure("Backtest failed", err)
	}
	s.record(st, ds, res)
	return notifier.FormatBacktestReport(st.Name, st.Config, res.Stats)
}

func (s *Scheduler) compare(ds *collector.Dataset) ([]simulation.Outcome, error) {
	outcomes, err := simulation.Compare(s.Ctx, ds.Prices, ds.Sentiment, s.Strategies)
	if err != nil {
		return nil, err
	}
	for i := range outcomes {
		s.record(&s.Strategies[i], ds, outcomes[i].Result)
	}
	return outcomes, nil
}

func (s *Scheduler) record(st *model.NamedStrategy, ds *collector.Dataset, res *model.Result) {
	id, err := s.Recorder.RecordRun(&recorder.RunRecord{
		Name:       st.Name,
		Config:     st.Config,
		Source:     ds.Source,
		IsFallback: ds.IsFallback,
		Result:     res,
	})
	if err != nil {
		s.log.Error().Err(err).Str("strategy", st.Name).Msg("record run")
		return
	}
	s.log.Info().Str("strategy", st.Name).Str("run_id", id).
		Float64("return_pct", res.Stats.PercentageReturn).Bool("liquidated", res.Stats.IsLiquidated).
		Msg("backtest finished")
}

func (s *Scheduler) help() string {
	names := make([]string, len(s.Strategies))
	for i, st := range s.Strategies {
		names[i] = st.Name
	}
	return notifier.FormatHelp(names)
}

func failure(what string, err error) string {
	return fmt.Sprintf("❌ %s: %s", what, html.EscapeString(err.Error()))
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
