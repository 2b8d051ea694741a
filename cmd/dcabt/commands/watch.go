package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/enoch4gor/btc-dca-backtester/internal/notifier"
	"github.com/enoch4gor/btc-dca-backtester/internal/scheduler"
)

var (
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Refresh data on a schedule and report to Telegram",
		Long: `Runs until interrupted. On schedule.refresh_cron the price history is
re-fetched, every strategy is re-run and recorded, and the ranking is sent
to the Telegram chat. The bot also answers /run, /compare, /data and /help.

RUN_ON_START=true (or --run-on-start) triggers one refresh at startup.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	watchRunOnStart bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchRunOnStart, "run-on-start", false, "refresh and report once at startup")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := a.cfg.ValidateTelegram(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := a.openRecorder(true)
	defer rec.Close()

	tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.http, a.log)
	sched := scheduler.NewScheduler(ctx, a.collector, a.cfg.Strategies, tn, rec, a.log)
	if err := sched.Register(a.cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	a.log.Info().Msg("telegram polling started")

	if watchRunOnStart || os.Getenv("RUN_ON_START") == "true" {
		a.log.Info().Msg("run on start enabled, refreshing now")
		go sched.RunNow()
	}

	a.log.Info().Str("cron", a.cfg.Schedule.RefreshCron).Msg("watching, press Ctrl+C to stop")
	<-ctx.Done()
	a.log.Info().Msg("shutdown signal received, stopping")
	return ignoreCanceled(ctx.Err())
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
