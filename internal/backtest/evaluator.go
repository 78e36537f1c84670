// Package backtest replays one-step predictions over the trailing days of a
// feature table and scores them against what actually happened.
package backtest

import (
	"math"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/dataset"
	"github.com/rxtech-lab/argo-forecast/internal/feature"
	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/regressor"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Result summarizes a backtest run. DirectionalAccuracy is the share of days
// where the predicted move off the prior close had the actual move's sign;
// MAPE is the mean absolute percentage error of the first-day prediction.
// Both are zero when no day could be evaluated.
type Result struct {
	Symbol              string  `json:"coin"`
	DirectionalAccuracy float64 `json:"directional_accuracy"`
	Correct             int     `json:"correct"`
	Total               int     `json:"total"`
	MAPE                float64 `json:"mape"`
}

// Evaluator replays a trained regressor over historical feature rows.
type Evaluator struct {
	log *logger.Logger
}

// NewEvaluator creates a backtest evaluator.
func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{log: log}
}

// Evaluate walks the trailing daysToTest rows. For each day it feeds the
// preceding lookback window to the regressor, reconstructs the first-day
// predicted price, and compares it with the actual close. Days without a
// full preceding window are skipped, not failed; a window the regressor
// rejects aborts the run.
func (e *Evaluator) Evaluate(
	symbol string,
	table *feature.Table,
	manifest dataset.Manifest,
	scaler *dataset.Scaler,
	model regressor.Regressor,
	daysToTest int,
) (Result, error) {
	result := Result{
		Symbol:              symbol,
		DirectionalAccuracy: 0,
		Correct:             0,
		Total:               0,
		MAPE:                0,
	}

	if daysToTest <= 0 {
		return result, errors.Newf(errors.ErrCodeInvalidParameter, "days to test must be positive, got %d", daysToTest)
	}

	matrix, err := table.Matrix(manifest.Columns)
	if err != nil {
		return result, err
	}

	closes, err := table.Column("Close")
	if err != nil {
		return result, err
	}

	scaled, err := scaler.Transform(matrix)
	if err != nil {
		return result, err
	}

	start := len(scaled) - daysToTest
	if start < 0 {
		start = 0
	}

	errorSum := 0.0

	for i := start; i < len(scaled); i++ {
		if i < manifest.Lookback {
			continue
		}

		predicted, err := model.Predict(scaled[i-manifest.Lookback : i])
		if err != nil {
			return result, errors.Wrapf(errors.ErrCodeBacktestFailed, err, "prediction failed at row %d", i)
		}

		if len(predicted) == 0 {
			return result, errors.Newf(errors.ErrCodeRegressorShapeFailed, "regressor returned no outputs at row %d", i)
		}

		prices, err := scaler.InverseColumn(manifest.CloseIndex, predicted[:1])
		if err != nil {
			return result, err
		}

		predictedPrice := prices[0]
		actualPrice := closes[i]
		prevPrice := closes[i-1]

		if math.Abs(actualPrice) > 1e-10 {
			errorSum += math.Abs(predictedPrice-actualPrice) / actualPrice * 100
		}

		predMove := predictedPrice - prevPrice
		actualMove := actualPrice - prevPrice

		if (predMove > 0 && actualMove > 0) || (predMove < 0 && actualMove < 0) {
			result.Correct++
		}

		result.Total++
	}

	if result.Total > 0 {
		result.DirectionalAccuracy = float64(result.Correct) / float64(result.Total) * 100
		result.MAPE = errorSum / float64(result.Total)
	}

	e.log.Info("backtest complete",
		zap.String("symbol", symbol),
		zap.Int("evaluated", result.Total),
		zap.Float64("directional_accuracy", result.DirectionalAccuracy),
		zap.Float64("mape", result.MAPE),
	)

	return result, nil
}
