package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-forecast/internal/dataset"
	"github.com/rxtech-lab/argo-forecast/internal/feature"
	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/regressor"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

type EvaluatorTestSuite struct {
	suite.Suite

	evaluator *Evaluator
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorTestSuite))
}

func (suite *EvaluatorTestSuite) SetupTest() {
	suite.evaluator = NewEvaluator(logger.NewNopLogger())
}

// oracleRegressor predicts the actual scaled close for the row after its
// window, so directional accuracy is perfect and error is zero.
type oracleRegressor struct {
	scaled     []float64
	lookback   int
	nextWindow int
}

func (o *oracleRegressor) Kind() string { return "oracle" }

func (o *oracleRegressor) Fit(_ [][][]float64, _ [][]float64, _ regressor.FitOptions) (types.TrainingSummary, error) {
	return types.TrainingSummary{FinalLoss: 0, FinalValLoss: 0, Epochs: 0}, nil
}

func (o *oracleRegressor) Predict(window [][]float64) ([]float64, error) {
	// Windows arrive in chronological order; the target row is the one
	// following the window.
	idx := o.nextWindow + o.lookback
	o.nextWindow++

	return []float64{o.scaled[idx]}, nil
}

func (o *oracleRegressor) Serialize() ([]byte, error) { return nil, nil }
func (o *oracleRegressor) Deserialize([]byte) error   { return nil }

// silentRegressor returns an empty prediction for every window, the way a
// zero-horizon deserialized state would.
type silentRegressor struct{}

func (s *silentRegressor) Kind() string { return "silent" }

func (s *silentRegressor) Fit(_ [][][]float64, _ [][]float64, _ regressor.FitOptions) (types.TrainingSummary, error) {
	return types.TrainingSummary{}, nil
}

func (s *silentRegressor) Predict([][]float64) ([]float64, error) { return []float64{}, nil }

func (s *silentRegressor) Serialize() ([]byte, error) { return nil, nil }
func (s *silentRegressor) Deserialize([]byte) error   { return nil }

func closesTable(closes []float64) *feature.Table {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, len(closes))

	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}

	table := feature.NewTable(dates)
	if err := table.Add("Close", closes, 0); err != nil {
		panic(err)
	}

	return table
}

func (suite *EvaluatorTestSuite) fitScaler(closes []float64) *dataset.Scaler {
	matrix := make([][]float64, len(closes))
	for i, c := range closes {
		matrix[i] = []float64{c}
	}

	scaler := dataset.NewScaler()
	suite.Require().NoError(scaler.Fit(matrix))

	return scaler
}

func (suite *EvaluatorTestSuite) manifest(lookback int) dataset.Manifest {
	return dataset.Manifest{
		Columns:    []string{"Close"},
		CloseIndex: 0,
		Lookback:   lookback,
		Horizon:    1,
	}
}

func (suite *EvaluatorTestSuite) TestPerfectOracle() {
	closes := []float64{100, 102, 101, 105, 104, 108, 110, 107, 111, 115}
	table := closesTable(closes)
	scaler := suite.fitScaler(closes)

	scaled := make([]float64, len(closes))
	for i, c := range closes {
		row, err := scaler.Transform([][]float64{{c}})
		suite.Require().NoError(err)

		scaled[i] = row[0][0]
	}

	lookback := 3
	oracle := &oracleRegressor{scaled: scaled, lookback: lookback, nextWindow: 0}

	result, err := suite.evaluator.Evaluate("BTC", table, suite.manifest(lookback), scaler, oracle, len(closes))
	suite.Require().NoError(err)

	// Rows 3..9 are evaluable: 7 predictions, all exact.
	suite.Equal(7, result.Total)
	suite.Equal(7, result.Correct)
	suite.InDelta(100.0, result.DirectionalAccuracy, 1e-9)
	suite.InDelta(0.0, result.MAPE, 1e-6)
}

func (suite *EvaluatorTestSuite) TestNoEvaluableDays() {
	closes := []float64{100, 102, 101, 105}
	table := closesTable(closes)
	scaler := suite.fitScaler(closes)

	// Lookback exceeds every testable row, so everything is skipped.
	oracle := &oracleRegressor{scaled: nil, lookback: 10, nextWindow: 0}

	result, err := suite.evaluator.Evaluate("BTC", table, suite.manifest(10), scaler, oracle, 4)
	suite.Require().NoError(err)

	suite.Zero(result.Total)
	suite.Zero(result.Correct)
	suite.Zero(result.DirectionalAccuracy)
	suite.Zero(result.MAPE)
}

func (suite *EvaluatorTestSuite) TestInvalidDays() {
	closes := []float64{100, 102}
	table := closesTable(closes)

	_, err := suite.evaluator.Evaluate("BTC", table, suite.manifest(1), suite.fitScaler(closes), &oracleRegressor{}, 0)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *EvaluatorTestSuite) TestEmptyPredictionFails() {
	closes := []float64{100, 102, 104, 106, 108}
	table := closesTable(closes)

	_, err := suite.evaluator.Evaluate("BTC", table, suite.manifest(2), suite.fitScaler(closes), &silentRegressor{}, 5)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeRegressorShapeFailed))
}

func (suite *EvaluatorTestSuite) TestMissingManifestColumn() {
	closes := []float64{100, 102, 104, 106}
	table := closesTable(closes)

	manifest := suite.manifest(2)
	manifest.Columns = []string{"Close", "RSI"}

	_, err := suite.evaluator.Evaluate("BTC", table, manifest, suite.fitScaler(closes), &oracleRegressor{}, 4)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeManifestMismatch))
}
