package regressor

import (
	"encoding/json"
	"math"

	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// LinearKind names the linear baseline in persisted artifacts.
const LinearKind = "linear"

// huberDelta is the residual magnitude where the loss switches from
// quadratic to linear.
const huberDelta = 1.0

// Linear is a multi-output linear model over the flattened lookback window,
// trained with mini-batch gradient descent on Huber loss. Training is fully
// deterministic: zero-initialized weights, batches taken in order, and the
// validation split is the chronological tail.
type Linear struct {
	lookback int
	features int
	horizon  int
	weights  [][]float64
	bias     []float64
}

// NewLinear creates an untrained linear regressor.
func NewLinear() *Linear {
	return &Linear{
		lookback: 0,
		features: 0,
		horizon:  0,
		weights:  nil,
		bias:     nil,
	}
}

// Kind implements Regressor.
func (l *Linear) Kind() string {
	return LinearKind
}

// Fit implements Regressor.
func (l *Linear) Fit(x [][][]float64, y [][]float64, opts FitOptions) (types.TrainingSummary, error) {
	var summary types.TrainingSummary

	if len(x) == 0 || len(x) != len(y) {
		return summary, errors.Newf(errors.ErrCodeRegressorFitFailed,
			"training set has %d windows and %d targets", len(x), len(y))
	}

	if opts.Epochs <= 0 || opts.BatchSize <= 0 || opts.LearningRate <= 0 {
		return summary, errors.New(errors.ErrCodeInvalidParameter, "epochs, batch size, and learning rate must be positive")
	}

	l.lookback = len(x[0])
	l.features = len(x[0][0])
	l.horizon = len(y[0])

	inputs := make([][]float64, len(x))

	for i, window := range x {
		flat, err := l.flatten(window)
		if err != nil {
			return summary, err
		}

		if len(y[i]) != l.horizon {
			return summary, errors.Newf(errors.ErrCodeRegressorShapeFailed,
				"target %d has %d values, expected %d", i, len(y[i]), l.horizon)
		}

		inputs[i] = flat
	}

	// Chronological split: the tail is validation, never shuffled.
	valCount := int(float64(len(inputs)) * opts.ValidationSplit)
	trainCount := len(inputs) - valCount

	if trainCount == 0 {
		trainCount = len(inputs)
		valCount = 0
	}

	width := l.lookback * l.features
	l.weights = make([][]float64, l.horizon)
	l.bias = make([]float64, l.horizon)

	for h := range l.weights {
		l.weights[h] = make([]float64, width)
	}

	trainLoss := 0.0

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for start := 0; start < trainCount; start += opts.BatchSize {
			end := start + opts.BatchSize
			if end > trainCount {
				end = trainCount
			}

			l.step(inputs[start:end], y[start:end], opts.LearningRate)
		}

		trainLoss = l.loss(inputs[:trainCount], y[:trainCount])
	}

	valLoss := trainLoss
	if valCount > 0 {
		valLoss = l.loss(inputs[trainCount:], y[trainCount:])
	}

	summary = types.TrainingSummary{
		FinalLoss:    trainLoss,
		FinalValLoss: valLoss,
		Epochs:       opts.Epochs,
	}

	return summary, nil
}

// Predict implements Regressor.
func (l *Linear) Predict(window [][]float64) ([]float64, error) {
	if len(l.weights) == 0 {
		return nil, errors.New(errors.ErrCodeRegressorNotTrained, "linear regressor has not been trained")
	}

	flat, err := l.flatten(window)
	if err != nil {
		return nil, err
	}

	out := make([]float64, l.horizon)

	for h := 0; h < l.horizon; h++ {
		out[h] = l.forward(flat, h)
	}

	return out, nil
}

type linearState struct {
	Lookback int         `json:"lookback"`
	Features int         `json:"features"`
	Horizon  int         `json:"horizon"`
	Weights  [][]float64 `json:"weights"`
	Bias     []float64   `json:"bias"`
}

// Serialize implements Regressor.
func (l *Linear) Serialize() ([]byte, error) {
	if len(l.weights) == 0 {
		return nil, errors.New(errors.ErrCodeRegressorNotTrained, "cannot serialize an untrained regressor")
	}

	data, err := json.Marshal(linearState{
		Lookback: l.lookback,
		Features: l.features,
		Horizon:  l.horizon,
		Weights:  l.weights,
		Bias:     l.bias,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnknown, "failed to encode linear regressor", err)
	}

	return data, nil
}

// Deserialize implements Regressor.
func (l *Linear) Deserialize(data []byte) error {
	var state linearState

	if err := json.Unmarshal(data, &state); err != nil {
		return errors.Wrap(errors.ErrCodeArtifactCorrupt, "failed to decode linear regressor", err)
	}

	if state.Horizon != len(state.Weights) || state.Horizon != len(state.Bias) {
		return errors.New(errors.ErrCodeArtifactCorrupt, "linear regressor state is inconsistent")
	}

	l.lookback = state.Lookback
	l.features = state.Features
	l.horizon = state.Horizon
	l.weights = state.Weights
	l.bias = state.Bias

	return nil
}

func (l *Linear) flatten(window [][]float64) ([]float64, error) {
	if len(window) != l.lookback {
		return nil, errors.Newf(errors.ErrCodeRegressorShapeFailed,
			"window has %d rows, expected %d", len(window), l.lookback)
	}

	flat := make([]float64, 0, l.lookback*l.features)

	for _, row := range window {
		if len(row) != l.features {
			return nil, errors.Newf(errors.ErrCodeRegressorShapeFailed,
				"window row has %d features, expected %d", len(row), l.features)
		}

		flat = append(flat, row...)
	}

	return flat, nil
}

func (l *Linear) forward(flat []float64, h int) float64 {
	sum := l.bias[h]
	for i, v := range flat {
		sum += l.weights[h][i] * v
	}

	return sum
}

// step applies one mini-batch gradient update per output using the Huber
// gradient, which clamps the residual at huberDelta.
func (l *Linear) step(batch [][]float64, targets [][]float64, rate float64) {
	scale := rate / float64(len(batch))

	for h := 0; h < l.horizon; h++ {
		gradBias := 0.0
		gradW := make([]float64, len(l.weights[h]))

		for i, flat := range batch {
			residual := l.forward(flat, h) - targets[i][h]

			if residual > huberDelta {
				residual = huberDelta
			} else if residual < -huberDelta {
				residual = -huberDelta
			}

			gradBias += residual
			for j, v := range flat {
				gradW[j] += residual * v
			}
		}

		l.bias[h] -= scale * gradBias
		for j := range gradW {
			l.weights[h][j] -= scale * gradW[j]
		}
	}
}

// loss is the mean Huber loss over all outputs.
func (l *Linear) loss(inputs [][]float64, targets [][]float64) float64 {
	if len(inputs) == 0 {
		return 0
	}

	total := 0.0

	for i, flat := range inputs {
		for h := 0; h < l.horizon; h++ {
			residual := l.forward(flat, h) - targets[i][h]
			abs := math.Abs(residual)

			if abs <= huberDelta {
				total += 0.5 * residual * residual
			} else {
				total += huberDelta * (abs - 0.5*huberDelta)
			}
		}
	}

	return total / float64(len(inputs)*l.horizon)
}
