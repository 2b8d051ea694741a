package simulation

import (
	"math"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
	"github.com/enoch4gor/btc-dca-backtester/internal/schedule"
	"github.com/enoch4gor/btc-dca-backtester/internal/strategy"
)

// DustThreshold is the smallest rebalance (in currency units) worth trading.
const DustThreshold = 5.0

// State is the portfolio between two days. It is a plain value: Step never
// mutates its input.
type State struct {
	Cash      float64
	Quantity  float64
	CostBasis float64 // fiat value used to buy the current position, borrowed part included
	Invested  float64 // cumulative capital injected

	Liquidated      bool
	LiquidationDate *model.Day

	InitialAllocated bool
	Trades           int
	Rebalances       int
}

// NewState is the portfolio before the first simulated day.
func NewState(cfg *model.StrategyConfig) State {
	return State{
		Cash:     cfg.InitialInvestment,
		Invested: cfg.InitialInvestment,
	}
}

// AverageEntryPrice is cost basis over quantity, nil when nothing is held.
func (s State) AverageEntryPrice() *float64 {
	if s.Quantity <= 0 {
		return nil
	}
	v := s.CostBasis / s.Quantity
	return &v
}

// DayInput is everything the ledger sees about one day.
type DayInput struct {
	Date      model.Day
	Price     float64
	MA200     *float64
	MA350     *float64
	Sentiment *int
	First     bool // first simulated day of the run
}

// Ledger applies a strategy to one day at a time.
type Ledger struct {
	cfg       model.StrategyConfig
	leverage  float64
	dca       *schedule.Matcher
	rebalance *schedule.Matcher
	filters   *strategy.Filters
}

// NewLedger compiles the schedules and filters of cfg.
func NewLedger(cfg model.StrategyConfig) (*Ledger, error) {
	dca, err := schedule.ForDCA(&cfg)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		cfg:      cfg,
		leverage: cfg.LeverageRatio(),
		dca:      dca,
		filters:  strategy.NewFilters(&cfg),
	}
	if cfg.EnableKellyRebalance {
		if l.rebalance, err = schedule.ForRebalance(&cfg); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// leveraged reports whether the position carries a loan.
func (l *Ledger) leveraged() bool {
	return l.cfg.EnableLeverage && l.leverage > 1
}

// loan is the borrowed part of the position.
func (l *Ledger) loan(s State) float64 {
	if !l.leveraged() || s.Quantity <= 0 {
		return 0
	}
	return s.CostBasis * (l.leverage - 1) / l.leverage
}

func (l *Ledger) liquidationPrice(avgEntry float64) float64 {
	return avgEntry * (1 - 1/l.leverage)
}

// Step advances the portfolio by one day and returns the new state with the day's record.
func (l *Ledger) Step(prev State, in DayInput) (State, model.LedgerRecord) {
	s := prev
	action := model.ActionNone
	actionAmount := 0.0

	var avgEntry, liqPrice *float64
	if s.Quantity > 0 {
		avgEntry = s.AverageEntryPrice()
		if l.cfg.EnableLeverage {
			lp := l.liquidationPrice(*avgEntry)
			liqPrice = &lp
			if !s.Liquidated && lp > 0 && in.Price <= lp {
				s.Liquidated = true
				date := in.Date
				s.LiquidationDate = &date
				s.Cash = 0
				s.Quantity = 0
				s.CostBasis = 0
				action = model.ActionLiquidation
			}
		}
	}
	if s.Liquidated {
		return s, l.liquidatedRecord(s, in, action, avgEntry, liqPrice)
	}

	if !s.InitialAllocated && l.cfg.InitialInvestment > 0 {
		action, actionAmount = l.allocateInitial(&s, in.Price)
		s.InitialAllocated = true
	}

	isDCADay := l.dca.Matches(in.Date)
	allowed := l.filters.Allow(strategy.Conditions{
		Price:     in.Price,
		MA200:     in.MA200,
		MA350:     in.MA350,
		Sentiment: in.Sentiment,
	})
	if isDCADay && allowed && l.cfg.Amount > 0 {
		s.Invested += l.cfg.Amount
		if l.cfg.EnableKellyRebalance {
			s.Cash += l.cfg.Amount
			// cash stays idle until the next rebalance
			if action == model.ActionNone {
				action = model.ActionDCADeposit
				actionAmount = l.cfg.Amount
			}
		} else {
			l.buy(&s, l.cfg.Amount*l.leverage, in.Price)
			s.Trades++
			action = model.ActionDCABuy
			actionAmount = l.cfg.Amount
		}
	}

	if l.cfg.EnableKellyRebalance && l.shouldRebalance(in, isDCADay && allowed) {
		if a, amount, ok := l.rebalanceTo(&s, in.Price); ok {
			action, actionAmount = a, amount
		}
	}

	return s, l.record(s, in, action, actionAmount)
}

func (l *Ledger) allocateInitial(s *State, price float64) (model.Action, float64) {
	if l.cfg.EnableKellyRebalance {
		equity := l.cfg.InitialInvestment * l.cfg.TargetRatio / 100
		l.buy(s, equity*l.leverage, price)
		s.Cash -= equity
		return model.ActionRebalanceBuy, equity
	}
	l.buy(s, l.cfg.InitialInvestment*l.leverage, price)
	s.Cash = 0
	return model.ActionDCABuy, l.cfg.InitialInvestment
}

// buy converts gross buying power into quantity. Cash is settled by the caller.
func (l *Ledger) buy(s *State, buyingPower, price float64) {
	s.Quantity += buyingPower / price
	s.CostBasis += buyingPower
}

func (l *Ledger) shouldRebalance(in DayInput, dcaQualified bool) bool {
	if in.First {
		return true
	}
	if l.cfg.RebalanceFrequency == model.RebalanceEveryDCA {
		return dcaQualified
	}
	return l.rebalance.Matches(in.Date)
}

// rebalanceTo moves the position toward the target share of equity.
// ok is false when no trade happened.
func (l *Ledger) rebalanceTo(s *State, price float64) (action model.Action, amount float64, ok bool) {
	gross := s.Quantity * price
	equity := s.Cash + gross - l.loan(*s)
	target := equity * l.cfg.TargetRatio / 100 * l.leverage
	diff := target - gross
	if math.Abs(diff) <= DustThreshold {
		return model.ActionNone, 0, false
	}

	if diff > 0 {
		spend := math.Min(diff/l.leverage, s.Cash)
		if spend <= 0 {
			return model.ActionNone, 0, false
		}
		l.buy(s, spend*l.leverage, price)
		s.Cash -= spend
		s.Rebalances++
		return model.ActionRebalanceBuy, spend, true
	}

	grossToSell := -diff
	sold := grossToSell / price
	if s.Quantity < sold {
		return model.ActionNone, 0, false
	}
	before := s.Quantity
	s.Quantity = math.Max(s.Quantity-sold, 0)
	proceeds := grossToSell / l.leverage
	s.Cash += proceeds
	s.CostBasis *= 1 - sold/before
	s.Rebalances++
	return model.ActionRebalanceSell, proceeds, true
}

func (l *Ledger) valuation(s State, price float64) float64 {
	return s.Cash + s.Quantity*price - l.loan(s)
}

func (l *Ledger) record(s State, in DayInput, action model.Action, amount float64) model.LedgerRecord {
	value := l.valuation(s, in.Price)
	returnRate := 0.0
	if s.Invested > 0 {
		returnRate = (value - s.Invested) / s.Invested * 100
	}
	avgEntry := s.AverageEntryPrice()
	var liqPrice *float64
	if avgEntry != nil && l.cfg.EnableLeverage {
		lp := l.liquidationPrice(*avgEntry)
		liqPrice = &lp
	}
	return model.LedgerRecord{
		Date:              in.Date,
		Price:             in.Price,
		CashBalance:       s.Cash,
		AssetAmount:       s.Quantity,
		AssetValue:        s.Quantity * in.Price,
		PortfolioValue:    value,
		TotalInvested:     s.Invested,
		ReturnRate:        returnRate,
		AverageEntryPrice: avgEntry,
		LiquidationPrice:  liqPrice,
		Action:            action,
		ActionAmount:      amount,
		IsTradeDay:        action != model.ActionNone,
		MA200:             in.MA200,
		MA350:             in.MA350,
		FearGreedValue:    in.Sentiment,
	}
}

// liquidatedRecord is the zero-valued snapshot of a closed position. On the
// liquidation day it still shows the entry and liquidation price that triggered it.
func (l *Ledger) liquidatedRecord(s State, in DayInput, action model.Action, avgEntry, liqPrice *float64) model.LedgerRecord {
	if action != model.ActionLiquidation {
		action = model.ActionNone
	}
	return model.LedgerRecord{
		Date:              in.Date,
		Price:             in.Price,
		TotalInvested:     s.Invested,
		ReturnRate:        -100,
		AverageEntryPrice: avgEntry,
		LiquidationPrice:  liqPrice,
		IsLiquidated:      true,
		Action:            action,
		IsTradeDay:        action == model.ActionLiquidation,
		MA200:             in.MA200,
		MA350:             in.MA350,
		FearGreedValue:    in.Sentiment,
	}
}
