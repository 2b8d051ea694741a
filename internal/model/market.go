package model

// PricePoint is one daily close of the risk asset.
type PricePoint struct {
	Date  Day     `json:"date"`
	Price float64 `json:"price"`
}

// SentimentPoint is one Fear & Greed index reading.
type SentimentPoint struct {
	Date           Day    `json:"date"`
	Value          int    `json:"value"` // 0 ~ 100
	Classification string `json:"classification"`
}
