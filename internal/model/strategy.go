package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by StrategyConfig.Validate failures.
var ErrInvalidConfig = errors.New("invalid strategy config")

// Frequency controls when periodic injections happen.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyNever   Frequency = "never"
)

// RebalanceFrequency controls when target-ratio rebalancing happens.
type RebalanceFrequency string

const (
	RebalanceEveryDCA RebalanceFrequency = "every_dca"
	RebalanceDaily    RebalanceFrequency = "daily"
	RebalanceWeekly   RebalanceFrequency = "weekly"
	RebalanceMonthly  RebalanceFrequency = "monthly"
)

// MAWindow selects the moving average used by the trend filter.
type MAWindow int

const (
	MA200 MAWindow = 200
	MA350 MAWindow = 350
)

// StrategyConfig is the immutable input of one simulation run.
type StrategyConfig struct {
	StartDate Day `yaml:"start_date" json:"startDate"`
	EndDate   Day `yaml:"end_date" json:"endDate"`

	// DCA
	Amount     float64   `yaml:"amount" json:"amount"`
	Frequency  Frequency `yaml:"frequency" json:"frequency"`
	DayOfWeek  int       `yaml:"day_of_week" json:"dayOfWeek"`   // 0 = Sunday
	DayOfMonth int       `yaml:"day_of_month" json:"dayOfMonth"` // 1 ~ 31

	// Portfolio / Kelly
	InitialInvestment    float64            `yaml:"initial_investment" json:"initialInvestment"`
	EnableKellyRebalance bool               `yaml:"enable_kelly_rebalance" json:"enableKellyRebalance"`
	TargetRatio          float64            `yaml:"target_ratio" json:"targetRatio"` // percent of equity in the asset
	RebalanceFrequency   RebalanceFrequency `yaml:"rebalance_frequency" json:"rebalanceFrequency"`

	// Leverage
	EnableLeverage bool    `yaml:"enable_leverage" json:"enableLeverage"`
	Leverage       float64 `yaml:"leverage" json:"leverage"`

	// Conditional buys
	EnableFearGreedFilter bool     `yaml:"enable_fear_greed_filter" json:"enableFearGreedFilter"`
	FearGreedThreshold    int      `yaml:"fear_greed_threshold" json:"fearGreedThreshold"`
	EnableMAFilter        bool     `yaml:"enable_ma_filter" json:"enableMaFilter"`
	MAThresholdType       MAWindow `yaml:"ma_threshold_type" json:"maThresholdType"`
}

// LeverageRatio is the multiplier applied to buying power, 1 when leverage is off.
func (c *StrategyConfig) LeverageRatio() float64 {
	if c.EnableLeverage {
		return c.Leverage
	}
	return 1
}

// Validate rejects structurally invalid configurations. The simulation engine
// itself does not call it; callers validate before running.
func (c *StrategyConfig) Validate() error {
	if c.StartDate > c.EndDate {
		return fmt.Errorf("%w: start_date %s after end_date %s", ErrInvalidConfig, c.StartDate, c.EndDate)
	}
	if c.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidConfig)
	}
	if c.InitialInvestment < 0 {
		return fmt.Errorf("%w: initial_investment must not be negative", ErrInvalidConfig)
	}
	switch c.Frequency {
	case FrequencyDaily, FrequencyNever:
	case FrequencyWeekly:
		if c.DayOfWeek < 0 || c.DayOfWeek > 6 {
			return fmt.Errorf("%w: day_of_week must be 0~6", ErrInvalidConfig)
		}
	case FrequencyMonthly:
		if c.DayOfMonth < 1 || c.DayOfMonth > 31 {
			return fmt.Errorf("%w: day_of_month must be 1~31", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidConfig, c.Frequency)
	}
	if c.EnableKellyRebalance {
		if c.TargetRatio < 0 || c.TargetRatio > 100 {
			return fmt.Errorf("%w: target_ratio must be 0~100", ErrInvalidConfig)
		}
		switch c.RebalanceFrequency {
		case RebalanceEveryDCA, RebalanceDaily:
		case RebalanceWeekly:
			if c.DayOfWeek < 0 || c.DayOfWeek > 6 {
				return fmt.Errorf("%w: day_of_week must be 0~6", ErrInvalidConfig)
			}
		case RebalanceMonthly:
			if c.DayOfMonth < 1 || c.DayOfMonth > 31 {
				return fmt.Errorf("%w: day_of_month must be 1~31", ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("%w: unknown rebalance_frequency %q", ErrInvalidConfig, c.RebalanceFrequency)
		}
	}
	if c.EnableLeverage && (c.Leverage < 1 || c.Leverage > 10) {
		return fmt.Errorf("%w: leverage must be 1.0~10.0", ErrInvalidConfig)
	}
	if c.EnableFearGreedFilter && (c.FearGreedThreshold < 0 || c.FearGreedThreshold > 100) {
		return fmt.Errorf("%w: fear_greed_threshold must be 0~100", ErrInvalidConfig)
	}
	if c.EnableMAFilter && c.MAThresholdType != MA200 && c.MAThresholdType != MA350 {
		return fmt.Errorf("%w: ma_threshold_type must be 200 or 350", ErrInvalidConfig)
	}
	return nil
}

// NamedStrategy pairs a configuration with a label for comparisons and reports.
type NamedStrategy struct {
	Name   string         `yaml:"name" json:"name"`
	Config StrategyConfig `yaml:",inline" json:"config"`
}
