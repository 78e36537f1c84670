package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time market snapshot for a symbol. Money fields use
// decimal because upstream providers return them as decimal strings.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change_24h"`
	Volume    decimal.Decimal `json:"volume"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Timestamp time.Time       `json:"timestamp"`
}
