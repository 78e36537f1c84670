package types

import "time"

// ForecastPoint is a single reconstructed price prediction.
type ForecastPoint struct {
	Date          time.Time `json:"date"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"change_percent"`
}

// Forecast is the ordered multi-day output of a prediction run.
type Forecast struct {
	Symbol       string          `json:"symbol"`
	CurrentPrice float64         `json:"current_price"`
	Points       []ForecastPoint `json:"predictions"`
	TrainedDate  time.Time       `json:"trained_date"`
	Lookback     int             `json:"lookback_days"`
}

// TrainingSummary reports the losses of a completed regressor fit.
type TrainingSummary struct {
	FinalLoss    float64 `json:"final_loss"`
	FinalValLoss float64 `json:"final_val_loss"`
	Epochs       int     `json:"epochs"`
}
