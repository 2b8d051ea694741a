// Package schedule decides whether a calendar day is a scheduled event day.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// Kind is the calendar rule of a Spec.
type Kind string

const (
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
	Never   Kind = "never"
)

// Spec describes a recurring calendar rule.
type Spec struct {
	Kind       Kind
	DayOfWeek  int // 0 = Sunday, used by Weekly
	DayOfMonth int // 1 ~ 31, used by Monthly
}

// Matcher answers whether a day fires under a compiled Spec.
type Matcher struct {
	spec     Spec
	schedule cron.Schedule // nil for Daily and Never
}

// Compile turns a Spec into a Matcher. Weekly and monthly rules become standard
// cron expressions firing at midnight.
func Compile(spec Spec) (*Matcher, error) {
	m := &Matcher{spec: spec}
	var expr string
	switch spec.Kind {
	case Daily, Never:
		return m, nil
	case Weekly:
		if spec.DayOfWeek < 0 || spec.DayOfWeek > 6 {
			return nil, fmt.Errorf("weekly schedule: day of week %d out of range", spec.DayOfWeek)
		}
		expr = fmt.Sprintf("CRON_TZ=UTC 0 0 * * %d", spec.DayOfWeek)
	case Monthly:
		if spec.DayOfMonth < 1 || spec.DayOfMonth > 31 {
			return nil, fmt.Errorf("monthly schedule: day of month %d out of range", spec.DayOfMonth)
		}
		expr = fmt.Sprintf("CRON_TZ=UTC 0 0 %d * *", spec.DayOfMonth)
	default:
		return nil, fmt.Errorf("unknown schedule kind %q", spec.Kind)
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	m.schedule = sched
	return m, nil
}

// Matches reports whether day is a scheduled day.
// A monthly rule on a day-of-month missing from a month never fires in that month.
func (m *Matcher) Matches(day model.Day) bool {
	switch m.spec.Kind {
	case Daily:
		return true
	case Never:
		return false
	}
	midnight := day.Time()
	return m.schedule.Next(midnight.Add(-time.Second)).Equal(midnight)
}

// Spec returns the rule the matcher was compiled from.
func (m *Matcher) Spec() Spec {
	return m.spec
}

// ForDCA builds the injection schedule of a strategy.
func ForDCA(cfg *model.StrategyConfig) (*Matcher, error) {
	return Compile(Spec{
		Kind:       Kind(cfg.Frequency),
		DayOfWeek:  cfg.DayOfWeek,
		DayOfMonth: cfg.DayOfMonth,
	})
}

// ForRebalance builds the rebalance schedule of a strategy. EveryDCA is resolved
// by the ledger against the injection schedule, so it compiles to Never here.
func ForRebalance(cfg *model.StrategyConfig) (*Matcher, error) {
	kind := Never
	switch cfg.RebalanceFrequency {
	case model.RebalanceDaily:
		kind = Daily
	case model.RebalanceWeekly:
		kind = Weekly
	case model.RebalanceMonthly:
		kind = Monthly
	}
	return Compile(Spec{Kind: kind, DayOfWeek: cfg.DayOfWeek, DayOfMonth: cfg.DayOfMonth})
}
