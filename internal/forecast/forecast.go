// Package forecast turns a regressor's scaled outputs back into prices.
package forecast

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-forecast/internal/dataset"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Reconstruct maps scaled close predictions back into price space using the
// training-time scaler, and stamps each step with its calendar date relative
// to the last observed bar. Change percentages are relative to the current
// price; a degenerate current price yields zero change rather than an Inf.
func Reconstruct(
	symbol string,
	scaled []float64,
	scaler *dataset.Scaler,
	manifest dataset.Manifest,
	currentPrice float64,
	lastDate time.Time,
	trainedDate time.Time,
) (types.Forecast, error) {
	var forecast types.Forecast

	if len(scaled) != manifest.Horizon {
		return forecast, errors.Newf(errors.ErrCodeRegressorShapeFailed,
			"regressor produced %d values for a %d-day horizon", len(scaled), manifest.Horizon)
	}

	prices, err := scaler.InverseColumn(manifest.CloseIndex, scaled)
	if err != nil {
		return forecast, err
	}

	points := make([]types.ForecastPoint, manifest.Horizon)

	day := lastDate.UTC().Truncate(24 * time.Hour)

	for i, price := range prices {
		change := 0.0
		if math.Abs(currentPrice) > 1e-10 {
			change = (price - currentPrice) / currentPrice * 100
		}

		points[i] = types.ForecastPoint{
			Date:          day.AddDate(0, 0, i+1),
			Price:         price,
			ChangePercent: change,
		}
	}

	forecast = types.Forecast{
		Symbol:       symbol,
		CurrentPrice: currentPrice,
		Points:       points,
		TrainedDate:  trainedDate,
		Lookback:     manifest.Lookback,
	}

	return forecast, nil
}
