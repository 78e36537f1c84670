package dataset

import (
	"github.com/rxtech-lab/argo-forecast/internal/feature"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// closeColumn is the feature column every training target is drawn from.
const closeColumn = "Close"

// Manifest pins the exact feature layout a regressor was trained against.
// Predictions must rebuild their input with the same columns in the same
// order; CloseIndex locates the target inside a scaled row.
type Manifest struct {
	Columns    []string `json:"feature_cols"`
	CloseIndex int      `json:"close_index"`
	Lookback   int      `json:"lookback"`
	Horizon    int      `json:"prediction_days"`
}

// TrainingSet is the scaled, windowed training input: X[i] is a
// lookback-by-features window, Y[i] the next horizon scaled closes.
type TrainingSet struct {
	X        [][][]float64
	Y        [][]float64
	Manifest Manifest
	Scaler   *Scaler
}

// BuildTrainingSet scales the selected columns over their full history and
// slides a lookback window across them. With T usable rows it yields
// T - lookback - horizon + 1 windows; fewer rows than that is an
// insufficient-data error, not a silent empty set.
func BuildTrainingSet(table *feature.Table, columns []string, lookback, horizon int) (*TrainingSet, error) {
	if lookback <= 0 || horizon <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidWindowSize,
			"lookback and horizon must be positive, got %d and %d", lookback, horizon)
	}

	closeIdx := indexOf(columns, closeColumn)
	if closeIdx < 0 {
		return nil, errors.Newf(errors.ErrCodeManifestMismatch,
			"feature columns must include %s for the prediction target", closeColumn)
	}

	matrix, err := table.Matrix(columns)
	if err != nil {
		return nil, err
	}

	rows := len(matrix)
	count := rows - lookback - horizon + 1

	if count <= 0 {
		return nil, &errors.InsufficientDataError{
			Required: lookback + horizon,
			Actual:   rows,
			Symbol:   "",
			Message:  "not enough feature rows to build a training window",
		}
	}

	scaler := NewScaler()

	scaled, err := scaler.FitTransform(matrix)
	if err != nil {
		return nil, err
	}

	x := make([][][]float64, 0, count)
	y := make([][]float64, 0, count)

	for i := lookback; i+horizon <= rows; i++ {
		x = append(x, scaled[i-lookback:i])

		target := make([]float64, horizon)
		for h := 0; h < horizon; h++ {
			target[h] = scaled[i+h][closeIdx]
		}

		y = append(y, target)
	}

	manifest := Manifest{
		Columns:    append([]string(nil), columns...),
		CloseIndex: closeIdx,
		Lookback:   lookback,
		Horizon:    horizon,
	}

	return &TrainingSet{X: x, Y: y, Manifest: manifest, Scaler: scaler}, nil
}

// BuildInferenceWindow scales the trailing lookback rows of the table using
// an already-fitted scaler, in the manifest's column order. A table missing a
// manifest column fails as a manifest mismatch naming the column.
func BuildInferenceWindow(table *feature.Table, manifest Manifest, scaler *Scaler) ([][]float64, error) {
	matrix, err := table.Matrix(manifest.Columns)
	if err != nil {
		return nil, err
	}

	if len(matrix) < manifest.Lookback {
		return nil, &errors.InsufficientDataError{
			Required: manifest.Lookback,
			Actual:   len(matrix),
			Symbol:   "",
			Message:  "not enough feature rows for an inference window",
		}
	}

	return scaler.Transform(matrix[len(matrix)-manifest.Lookback:])
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}

	return -1
}
