package model

// Action is what the ledger did on a given day. At most one is recorded per day.
type Action string

const (
	ActionNone          Action = "none"
	ActionDCABuy        Action = "dca_buy"
	ActionDCADeposit    Action = "dca_deposit"
	ActionRebalanceBuy  Action = "rebalance_buy"
	ActionRebalanceSell Action = "rebalance_sell"
	ActionLiquidation   Action = "liquidation"
)

// LedgerRecord is the portfolio snapshot emitted for one simulated day.
type LedgerRecord struct {
	Date           Day     `json:"date"`
	Price          float64 `json:"price"`
	CashBalance    float64 `json:"cashBalance"`
	AssetAmount    float64 `json:"assetAmount"`
	AssetValue     float64 `json:"assetValue"`
	PortfolioValue float64 `json:"portfolioValue"`
	TotalInvested  float64 `json:"totalInvested"`
	ReturnRate     float64 `json:"returnRate"` // percent

	AverageEntryPrice *float64 `json:"averageEntryPrice"`
	LiquidationPrice  *float64 `json:"liquidationPrice"`
	IsLiquidated      bool     `json:"isLiquidated"`

	Action       Action  `json:"action"`
	ActionAmount float64 `json:"actionAmount"` // USD
	IsTradeDay   bool    `json:"isTradeDay"`

	MA200          *float64 `json:"ma200"`
	MA350          *float64 `json:"ma350"`
	FearGreedValue *int     `json:"fearGreedValue"`
}

// Summary aggregates a finished timeline.
type Summary struct {
	TotalInvested       float64 `json:"totalInvested"`
	FinalPortfolioValue float64 `json:"finalPortfolioValue"`
	TotalReturn         float64 `json:"totalReturn"`
	PercentageReturn    float64 `json:"percentageReturn"`
	TradesCount         int     `json:"tradesCount"`
	RebalanceCount      int     `json:"rebalanceCount"`
	FinalAssetPrice     float64 `json:"finalAssetPrice"`
	FinalCashBalance    float64 `json:"finalCashBalance"`
	FinalAssetValue     float64 `json:"finalAssetValue"`
	FinalAssetAmount    float64 `json:"finalAssetAmount"`
	AverageEntryPrice   float64 `json:"averageEntryPrice"`
	CurrentFearGreed    *int    `json:"currentFearGreed"`
	DurationDays        int     `json:"durationDays"`
	IsLiquidated        bool    `json:"isLiquidated"`
	LiquidationDate     *Day    `json:"liquidationDate"`
}

// Result is the output of one simulation run.
type Result struct {
	Timeline []LedgerRecord `json:"timeline"`
	Stats    Summary        `json:"stats"`
}
