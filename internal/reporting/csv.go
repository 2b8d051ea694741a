package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

var timelineHeader = []string{
	"date", "price", "cash_balance", "asset_amount", "asset_value", "portfolio_value",
	"total_invested", "return_rate", "average_entry_price", "liquidation_price",
	"is_liquidated", "action", "action_amount", "ma200", "ma350", "fear_greed",
}

// WriteTimelineCSV writes one row per simulated day. Missing values are empty cells.
func WriteTimelineCSV(w io.Writer, timeline []model.LedgerRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(timelineHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range timeline {
		row := []string{
			r.Date.String(),
			num(r.Price),
			num(r.CashBalance),
			num(r.AssetAmount),
			num(r.AssetValue),
			num(r.PortfolioValue),
			num(r.TotalInvested),
			num(r.ReturnRate),
			optNum(r.AverageEntryPrice),
			optNum(r.LiquidationPrice),
			strconv.FormatBool(r.IsLiquidated),
			string(r.Action),
			num(r.ActionAmount),
			optNum(r.MA200),
			optNum(r.MA350),
			optInt(r.FearGreedValue),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
