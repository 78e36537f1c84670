// Package regressor defines the model trained on scaled feature windows and
// provides a deterministic linear baseline implementation.
package regressor

import (
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Regressor maps a scaled lookback window to the next horizon scaled close
// values. Implementations must be serializable so an artifact can persist
// them next to the scaler and manifest they were trained with.
type Regressor interface {
	// Kind identifies the implementation inside a persisted artifact.
	Kind() string

	// Fit trains on windows X and targets Y, holding out a validation tail.
	Fit(x [][][]float64, y [][]float64, opts FitOptions) (types.TrainingSummary, error)

	// Predict returns the scaled close forecast for one lookback window.
	Predict(window [][]float64) ([]float64, error)

	// Serialize encodes the trained state.
	Serialize() ([]byte, error)

	// Deserialize restores state produced by Serialize.
	Deserialize(data []byte) error
}

// FitOptions are the training hyperparameters.
type FitOptions struct {
	Epochs          int
	BatchSize       int
	LearningRate    float64
	ValidationSplit float64
}

// DefaultFitOptions mirrors the training defaults: 100 epochs, batches of
// 32, a 20% validation tail.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Epochs:          100,
		BatchSize:       32,
		LearningRate:    0.01,
		ValidationSplit: 0.2,
	}
}

// New creates a regressor of the named kind, used when loading artifacts.
func New(kind string) (Regressor, error) {
	switch kind {
	case LinearKind:
		return NewLinear(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownRegressor, "unknown regressor kind: %s", kind)
	}
}
