package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtech-lab/argo-forecast/internal/dataset"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

func fittedScaler(t *testing.T) *dataset.Scaler {
	t.Helper()

	scaler := dataset.NewScaler()
	// Column 0 is volume-like, column 1 is the close in [100, 200].
	require.NoError(t, scaler.Fit([][]float64{{0, 100}, {1000, 200}}))

	return scaler
}

func TestReconstruct(t *testing.T) {
	scaler := fittedScaler(t)
	manifest := dataset.Manifest{
		Columns:    []string{"Volume", "Close"},
		CloseIndex: 1,
		Lookback:   60,
		Horizon:    3,
	}

	lastDate := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	trainedDate := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	forecast, err := Reconstruct("BTC", []float64{0.5, 0.6, 0.7}, scaler, manifest, 150, lastDate, trainedDate)
	require.NoError(t, err)

	assert.Equal(t, "BTC", forecast.Symbol)
	assert.Equal(t, 150.0, forecast.CurrentPrice)
	assert.Equal(t, trainedDate, forecast.TrainedDate)
	assert.Equal(t, 60, forecast.Lookback)
	require.Len(t, forecast.Points, 3)

	// Scaled 0.5/0.6/0.7 over [100, 200] is 150/160/170.
	assert.InDelta(t, 150.0, forecast.Points[0].Price, 1e-9)
	assert.InDelta(t, 160.0, forecast.Points[1].Price, 1e-9)
	assert.InDelta(t, 170.0, forecast.Points[2].Price, 1e-9)

	assert.InDelta(t, 0.0, forecast.Points[0].ChangePercent, 1e-9)
	assert.InDelta(t, 160.0/150*100-100, forecast.Points[1].ChangePercent, 1e-9)

	for i, point := range forecast.Points {
		assert.Equal(t, lastDate.AddDate(0, 0, i+1), point.Date)
	}
}

func TestReconstructHorizonMismatch(t *testing.T) {
	scaler := fittedScaler(t)
	manifest := dataset.Manifest{
		Columns:    []string{"Volume", "Close"},
		CloseIndex: 1,
		Lookback:   60,
		Horizon:    3,
	}

	_, err := Reconstruct("BTC", []float64{0.5}, scaler, manifest, 150, time.Now(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRegressorShapeFailed))
}

func TestReconstructZeroCurrentPrice(t *testing.T) {
	scaler := fittedScaler(t)
	manifest := dataset.Manifest{
		Columns:    []string{"Volume", "Close"},
		CloseIndex: 1,
		Lookback:   60,
		Horizon:    1,
	}

	forecast, err := Reconstruct("BTC", []float64{0.5}, scaler, manifest, 0, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, forecast.Points[0].ChangePercent)
}
