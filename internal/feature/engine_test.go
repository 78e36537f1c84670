package feature

import (
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

type EngineTestSuite struct {
	suite.Suite

	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.engine = NewEngine(logger.NewNopLogger())
}

func flatBars(days int, price float64) []types.Bar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, days)

	for i := range bars {
		bars[i] = types.Bar{
			Symbol: "BTC",
			Time:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		}
	}

	return bars
}

func trendingBars(days int) []types.Bar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, days)

	for i := range bars {
		closePrice := 100 + float64(i)*1.5 + 10*math.Sin(float64(i)/7)
		bars[i] = types.Bar{
			Symbol: "ETH",
			Time:   start.AddDate(0, 0, i),
			Open:   closePrice - 1,
			High:   closePrice + 2,
			Low:    closePrice - 2,
			Close:  closePrice,
			Volume: 1000 + float64(i%13)*50,
		}
	}

	return bars
}

func noSentiment() optional.Option[[]types.SentimentPoint] {
	return optional.None[[]types.SentimentPoint]()
}

func (suite *EngineTestSuite) TestFlatSeries() {
	table, err := suite.engine.Compute(flatBars(120, 100), noSentiment(), nil)
	suite.Require().NoError(err)

	// The deepest warm-up chain is the MACD signal line (33 rows).
	suite.Equal(120-33, table.Len())

	rsi, err := table.Column("RSI")
	suite.Require().NoError(err)

	width, err := table.Column("BB_Width")
	suite.Require().NoError(err)

	direction, err := table.Column("Candle_Direction")
	suite.Require().NoError(err)

	for i := range rsi {
		suite.InDelta(50.0, rsi[i], 1e-9, "flat series RSI should be neutral")
		suite.InDelta(0.0, width[i], 1e-9, "flat series has no band width")
		suite.Zero(direction[i])
	}
}

func (suite *EngineTestSuite) TestNoNonFiniteValuesAfterWarmup() {
	table, err := suite.engine.Compute(trendingBars(200), noSentiment(), nil)
	suite.Require().NoError(err)

	for _, name := range table.Names() {
		col, err := table.Column(name)
		suite.Require().NoError(err)

		for i, v := range col {
			suite.False(math.IsNaN(v) || math.IsInf(v, 0), "column %s row %d is not finite", name, i)
		}
	}
}

func (suite *EngineTestSuite) TestDeterministic() {
	bars := trendingBars(150)

	first, err := suite.engine.Compute(bars, noSentiment(), nil)
	suite.Require().NoError(err)

	second, err := suite.engine.Compute(bars, noSentiment(), nil)
	suite.Require().NoError(err)

	suite.Equal(first.Names(), second.Names())

	for _, name := range first.Names() {
		a, err := first.Column(name)
		suite.Require().NoError(err)

		b, err := second.Column(name)
		suite.Require().NoError(err)

		suite.Equal(a, b, "column %s differs between runs", name)
	}
}

func (suite *EngineTestSuite) TestNoLookAhead() {
	bars := trendingBars(150)

	full, err := suite.engine.Compute(bars, noSentiment(), nil)
	suite.Require().NoError(err)

	truncated, err := suite.engine.Compute(bars[:149], noSentiment(), nil)
	suite.Require().NoError(err)

	// Dropping the last bar must not change any earlier row.
	for _, name := range truncated.Names() {
		fullCol, err := full.Column(name)
		suite.Require().NoError(err)

		truncCol, err := truncated.Column(name)
		suite.Require().NoError(err)

		suite.Equal(fullCol[:len(truncCol)], truncCol, "column %s leaks future data", name)
	}
}

func (suite *EngineTestSuite) TestSentimentColumns() {
	bars := trendingBars(120)

	points := make([]types.SentimentPoint, len(bars))
	for i, bar := range bars {
		points[i] = types.SentimentPoint{
			Date:          bar.Time,
			Score:         40 + float64(i%20),
			Category:      types.SentimentMedium,
			PositiveCount: 3,
			NegativeCount: 1,
			NeutralCount:  2,
		}
	}

	table, err := suite.engine.Compute(bars, optional.Some(points), nil)
	suite.Require().NoError(err)

	for _, name := range []string{
		"Sentiment_Score", "Sentiment_Category", "Positive_Count",
		"Negative_Count", "Neutral_Count", "Sentiment_Momentum", "News_Volume",
	} {
		suite.True(table.Has(name), "missing sentiment column %s", name)
	}

	news, err := table.Column("News_Volume")
	suite.Require().NoError(err)
	suite.InDelta(6.0, news[0], 1e-9)
}

func (suite *EngineTestSuite) TestSentimentLengthMismatch() {
	bars := trendingBars(120)
	points := make([]types.SentimentPoint, 10)

	_, err := suite.engine.Compute(bars, optional.Some(points), nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeFeatureCalculation))
}

func (suite *EngineTestSuite) TestIndexColumns() {
	bars := trendingBars(120)

	closes := make([]float64, len(bars))
	for i := range closes {
		closes[i] = 400 + float64(i)
	}

	table, err := suite.engine.Compute(bars, noSentiment(), map[string][]float64{
		"SP500": closes,
		"GOLD":  closes,
	})
	suite.Require().NoError(err)

	suite.True(table.Has("SP500_Close"))
	suite.True(table.Has("GOLD_Close"))
}

func (suite *EngineTestSuite) TestInsufficientHistory() {
	_, err := suite.engine.Compute(flatBars(20, 100), noSentiment(), nil)
	suite.Require().Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *EngineTestSuite) TestUnorderedSeriesRejected() {
	bars := flatBars(60, 100)
	bars[10].Time = bars[9].Time

	_, err := suite.engine.Compute(bars, noSentiment(), nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSeries))
}

func (suite *EngineTestSuite) TestMatrixManifestMismatch() {
	table, err := suite.engine.Compute(flatBars(60, 100), noSentiment(), nil)
	suite.Require().NoError(err)

	_, err = table.Matrix([]string{"Close", "No_Such_Column"})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeManifestMismatch))
	suite.Contains(err.Error(), "No_Such_Column")
}
