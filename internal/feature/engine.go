// Package feature derives the indicator matrix a regressor trains on from a
// daily bar series: candle anatomy, returns, trend, momentum, volatility,
// volume, market structure, calendar encodings, lags, and optional sentiment
// and cross-market columns.
package feature

import (
	"math"
	"sort"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Engine computes feature tables. It is stateless; the same input always
// produces the same table.
type Engine struct {
	log *logger.Logger
}

// NewEngine creates a feature engine.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// Compute derives the full feature table from a validated bar series. The
// optional sentiment series and index close series must already be aligned to
// the bar timeline (one entry per bar). The maximal indicator warm-up prefix
// is trimmed from the result, which is guaranteed free of NaN and Inf.
func (e *Engine) Compute(
	bars []types.Bar,
	sentiment optional.Option[[]types.SentimentPoint],
	indexCloses map[string][]float64,
) (*Table, error) {
	if err := types.ValidateSeries(bars); err != nil {
		return nil, err
	}

	b := newBuilder(bars)

	b.addRawPrice()
	b.addCandles()
	b.addReturns()
	b.addTrend()
	b.addMomentum()
	b.addVolatility()
	b.addVolume()
	b.addStructure()
	b.addCalendar()
	b.addLags()

	if sentiment.IsSome() {
		points := sentiment.Unwrap()
		if len(points) != len(bars) {
			return nil, errors.Newf(errors.ErrCodeFeatureCalculation,
				"sentiment series has %d points for %d bars", len(points), len(bars))
		}

		b.addSentiment(points)
	}

	names := make([]string, 0, len(indexCloses))
	for name := range indexCloses {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		closes := indexCloses[name]
		if len(closes) != len(bars) {
			return nil, errors.Newf(errors.ErrCodeFeatureCalculation,
				"index series %s has %d points for %d bars", name, len(closes), len(bars))
		}

		b.addIndexClose(name, closes)
	}

	if b.err != nil {
		return nil, b.err
	}

	table := b.table
	warmup := table.TrimWarmup()

	if table.Len() == 0 {
		return nil, &errors.InsufficientDataError{
			Required: warmup + 1,
			Actual:   len(bars),
			Symbol:   bars[0].Symbol,
			Message:  "bar series is shorter than the indicator warm-up",
		}
	}

	if fixed := sanitize(table); fixed > 0 {
		e.log.Warn("replaced non-finite feature values after warm-up trim",
			zap.Int("cells", fixed),
		)
	}

	e.log.Debug("feature table computed",
		zap.String("symbol", bars[0].Symbol),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.Names())),
		zap.Int("warmup", warmup),
	)

	return table, nil
}

// sanitize zeroes any residual non-finite cells. The guards in the group
// formulas should leave none; this is the invariant of record.
func sanitize(t *Table) int {
	fixed := 0

	for _, col := range t.cols {
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				col[i] = 0
				fixed++
			}
		}
	}

	return fixed
}
