// Package dataset turns a feature table into the tensors a regressor
// consumes: min-max scaling over the full feature matrix, sliding lookback
// windows, and the column manifest that binds both to a trained artifact.
package dataset

import (
	"math"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Scaler is a per-column min-max scaler onto [0, 1]. The fitted bounds are
// exported so an artifact can serialize and restore them as plain JSON.
type Scaler struct {
	Mins []float64 `json:"mins"`
	Maxs []float64 `json:"maxs"`
}

// NewScaler creates an unfitted scaler.
func NewScaler() *Scaler {
	return &Scaler{Mins: nil, Maxs: nil}
}

// Fitted reports whether the scaler carries bounds.
func (s *Scaler) Fitted() bool {
	return len(s.Mins) > 0
}

// Fit learns per-column bounds from the full row-major matrix.
func (s *Scaler) Fit(rows [][]float64) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "cannot fit scaler on an empty matrix")
	}

	width := len(rows[0])
	s.Mins = make([]float64, width)
	s.Maxs = make([]float64, width)

	for c := 0; c < width; c++ {
		s.Mins[c] = math.Inf(1)
		s.Maxs[c] = math.Inf(-1)
	}

	for _, row := range rows {
		if len(row) != width {
			return errors.Newf(errors.ErrCodeInvalidParameter, "ragged matrix: row has %d columns, expected %d", len(row), width)
		}

		for c, v := range row {
			if v < s.Mins[c] {
				s.Mins[c] = v
			}

			if v > s.Maxs[c] {
				s.Maxs[c] = v
			}
		}
	}

	return nil
}

// Transform maps rows onto [0, 1] using the fitted bounds. A constant column
// maps to zero rather than dividing by its zero span.
func (s *Scaler) Transform(rows [][]float64) ([][]float64, error) {
	if err := s.check(rows); err != nil {
		return nil, err
	}

	out := make([][]float64, len(rows))

	for r, row := range rows {
		scaled := make([]float64, len(row))

		for c, v := range row {
			span := s.Maxs[c] - s.Mins[c]
			if span < scalerEpsilon {
				scaled[c] = 0
				continue
			}

			scaled[c] = (v - s.Mins[c]) / span
		}

		out[r] = scaled
	}

	return out, nil
}

// FitTransform fits the bounds and scales the same matrix.
func (s *Scaler) FitTransform(rows [][]float64) ([][]float64, error) {
	if err := s.Fit(rows); err != nil {
		return nil, err
	}

	return s.Transform(rows)
}

// InverseTransform maps scaled rows back to original units. A constant
// column restores its fitted minimum regardless of the scaled value.
func (s *Scaler) InverseTransform(rows [][]float64) ([][]float64, error) {
	if err := s.check(rows); err != nil {
		return nil, err
	}

	out := make([][]float64, len(rows))

	for r, row := range rows {
		restored := make([]float64, len(row))

		for c, v := range row {
			span := s.Maxs[c] - s.Mins[c]
			if span < scalerEpsilon {
				restored[c] = s.Mins[c]
				continue
			}

			restored[c] = v*span + s.Mins[c]
		}

		out[r] = restored
	}

	return out, nil
}

// InverseColumn restores a single column of scaled values, the path the
// forecast reconstructor uses for the close column.
func (s *Scaler) InverseColumn(col int, values []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, errors.New(errors.ErrCodeScalerNotFitted, "scaler has not been fitted")
	}

	if col < 0 || col >= len(s.Mins) {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "column %d out of range [0,%d)", col, len(s.Mins))
	}

	out := make([]float64, len(values))
	span := s.Maxs[col] - s.Mins[col]

	for i, v := range values {
		if span < scalerEpsilon {
			out[i] = s.Mins[col]
			continue
		}

		out[i] = v*span + s.Mins[col]
	}

	return out, nil
}

const scalerEpsilon = 1e-12

func (s *Scaler) check(rows [][]float64) error {
	if !s.Fitted() {
		return errors.New(errors.ErrCodeScalerNotFitted, "scaler has not been fitted")
	}

	for _, row := range rows {
		if len(row) != len(s.Mins) {
			return errors.Newf(errors.ErrCodeManifestMismatch,
				"row has %d columns, scaler was fitted on %d", len(row), len(s.Mins))
		}
	}

	return nil
}
