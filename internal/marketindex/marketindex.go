// Package marketindex fetches daily closes for auxiliary market indices
// (equity, dollar, gold proxies) and caches them alongside the sentiment
// series. These feed optional cross-market feature columns.
package marketindex

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/seriescache"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// maxCacheAgeDays triggers a refetch when the newest cached close is older
// than this many calendar days.
const maxCacheAgeDays = 2

// indexTickers maps index names to the ETF proxies used to track them.
var indexTickers = map[string]string{
	"SP500":  "SPY",
	"DXY":    "UUP",
	"GOLD":   "GLD",
	"NASDAQ": "QQQ",
}

// IndexNames returns the canonical index names in a deterministic order.
func IndexNames() []string {
	return []string{"SP500", "DXY", "GOLD", "NASDAQ"}
}

// Fetcher retrieves index close series from Polygon, caching them in the
// series cache with the shared staleness rule.
type Fetcher struct {
	client      *polygon.Client
	store       *seriescache.Store
	log         *logger.Logger
	historyDays int
	now         func() time.Time
}

// NewFetcher creates a market index fetcher. The API key is required by
// Polygon even for delayed aggregates.
func NewFetcher(apiKey string, historyDays int, store *seriescache.Store, log *logger.Logger) (*Fetcher, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon api key is required")
	}

	return &Fetcher{
		client:      polygon.New(apiKey),
		store:       store,
		log:         log,
		historyDays: historyDays,
		now:         time.Now,
	}, nil
}

// GetCloses returns the close series for a named index, serving from the
// cache unless stale. A failed refetch falls back to the cached series.
func (f *Fetcher) GetCloses(ctx context.Context, name string) ([]seriescache.IndexClose, error) {
	if _, ok := indexTickers[name]; !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupportedSymbol, "unknown market index: %s", name)
	}

	latest, err := f.store.LatestIndexDate(name)
	if err != nil {
		return nil, err
	}

	if !seriescache.IsStale(latest, maxCacheAgeDays, f.now()) {
		return f.store.LoadIndexCloses(name)
	}

	closes, fetchErr := f.fetchRemote(ctx, name)
	if fetchErr != nil {
		f.log.Warn("market index refetch failed, falling back to cache",
			zap.String("index", name),
			zap.Error(fetchErr),
		)

		cached, cacheErr := f.store.LoadIndexCloses(name)
		if cacheErr != nil || len(cached) == 0 {
			return nil, fetchErr
		}

		return cached, nil
	}

	if err := f.store.ReplaceIndexCloses(name, closes); err != nil {
		f.log.Warn("failed to cache market index series", zap.String("index", name), zap.Error(err))
	}

	return closes, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, name string) ([]seriescache.IndexClose, error) {
	ticker := indexTickers[name]

	end := f.now().UTC()
	start := end.AddDate(0, 0, -f.historyDays)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := f.client.ListAggs(ctx, params)

	var closes []seriescache.IndexClose

	for iter.Next() {
		agg := iter.Item()
		closes = append(closes, seriescache.IndexClose{
			Date:  time.Time(agg.Timestamp).UTC().Truncate(24 * time.Hour),
			Close: agg.Close,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeProviderUnavailable, err, "failed to fetch %s aggregates", ticker)
	}

	if len(closes) == 0 {
		return nil, errors.Newf(errors.ErrCodeProviderEmptyPayload, "no aggregates returned for %s", ticker)
	}

	return closes, nil
}

// Align projects an index close series onto a daily timeline, forward filling
// weekend/holiday gaps and back filling dates before the first observation.
func Align(closes []seriescache.IndexClose, dates []time.Time) []float64 {
	aligned := make([]float64, len(dates))

	idx := 0

	var last float64

	haveLast := false

	for i, date := range dates {
		day := date.UTC().Truncate(24 * time.Hour)

		for idx < len(closes) && !closes[idx].Date.After(day) {
			last = closes[idx].Close
			haveLast = true
			idx++
		}

		if haveLast {
			aligned[i] = last
		}
	}

	// Back fill the leading gap with the first observation.
	if len(closes) > 0 {
		first := closes[0].Close
		for i := range aligned {
			if aligned[i] != 0 {
				break
			}

			aligned[i] = first
		}
	}

	return aligned
}
