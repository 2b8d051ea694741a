package simulation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// Outcome is the result of one named strategy in a comparison.
type Outcome struct {
	Name   string
	Config model.StrategyConfig
	Result *model.Result
}

// Compare runs independent strategies over the same series in parallel.
// Outcomes keep the order of strategies. Each run owns its own ledger; the
// input series are only read.
func Compare(ctx context.Context, prices []model.PricePoint, sentiment []model.SentimentPoint, strategies []model.NamedStrategy) ([]Outcome, error) {
	outcomes := make([]Outcome, len(strategies))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, st := range strategies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Run(prices, sentiment, st.Config)
			if err != nil {
				return fmt.Errorf("run strategy %q: %w", st.Name, err)
			}
			outcomes[i] = Outcome{Name: st.Name, Config: st.Config, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
