// Package sentiment fetches the crypto Fear & Greed index and aligns it with
// a daily price timeline.
package sentiment

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/seriescache"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

const fearGreedBaseURL = "https://api.alternative.me"

// maxCacheAgeDays triggers a refetch when the newest cached observation is
// older than this many calendar days.
const maxCacheAgeDays = 2

// Fetcher retrieves the Fear & Greed index, caching the full history in the
// series cache and refetching when the cache goes stale.
type Fetcher struct {
	client *resty.Client
	store  *seriescache.Store
	log    *logger.Logger
	now    func() time.Time
}

// NewFetcher creates a sentiment fetcher backed by the given series cache.
func NewFetcher(store *seriescache.Store, log *logger.Logger) *Fetcher {
	client := resty.New()
	client.SetBaseURL(fearGreedBaseURL)
	client.SetTimeout(15 * time.Second)
	client.SetHeader("Accept", "application/json")

	return &Fetcher{
		client: client,
		store:  store,
		log:    log,
		now:    time.Now,
	}
}

type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error any `json:"error"`
	} `json:"metadata"`
}

// GetSeries returns the full sentiment history ordered by date, serving from
// the cache unless it is missing or stale. A failed refetch falls back to
// whatever the cache holds.
func (f *Fetcher) GetSeries(ctx context.Context) ([]types.SentimentPoint, error) {
	latest, err := f.store.LatestSentimentDate()
	if err != nil {
		return nil, err
	}

	if !seriescache.IsStale(latest, maxCacheAgeDays, f.now()) {
		return f.store.LoadSentiment()
	}

	points, fetchErr := f.fetchRemote(ctx)
	if fetchErr != nil {
		f.log.Warn("sentiment refetch failed, falling back to cache", zap.Error(fetchErr))

		cached, cacheErr := f.store.LoadSentiment()
		if cacheErr != nil || len(cached) == 0 {
			return nil, fetchErr
		}

		return cached, nil
	}

	if err := f.store.ReplaceSentiment(points); err != nil {
		f.log.Warn("failed to cache sentiment series", zap.Error(err))
	}

	return points, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context) ([]types.SentimentPoint, error) {
	var payload fearGreedResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"limit":  "0", // full history
			"format": "json",
		}).
		SetResult(&payload).
		Get("/fng/")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderUnavailable, "fear & greed request failed", err)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeProviderUnavailable, "fear & greed returned status %d", resp.StatusCode())
	}

	if len(payload.Data) == 0 {
		return nil, errors.New(errors.ErrCodeProviderEmptyPayload, "fear & greed returned no data")
	}

	points := make([]types.SentimentPoint, 0, len(payload.Data))

	for _, item := range payload.Data {
		unix, err := strconv.ParseInt(item.Timestamp, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed sentiment timestamp %q", item.Timestamp)
		}

		score, err := strconv.ParseFloat(item.Value, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed sentiment value %q", item.Value)
		}

		points = append(points, types.SentimentPoint{
			Date:          time.Unix(unix, 0).UTC().Truncate(24 * time.Hour),
			Score:         score,
			Category:      classify(item.ValueClassification),
			PositiveCount: 0,
			NegativeCount: 0,
			NeutralCount:  0,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	return points, nil
}

// classify maps Fear & Greed classifications onto the ordinal categories.
func classify(classification string) types.SentimentCategory {
	switch classification {
	case "Extreme Fear":
		return types.SentimentWorst
	case "Fear":
		return types.SentimentBad
	case "Neutral":
		return types.SentimentAverage
	case "Greed":
		return types.SentimentMedium
	case "Extreme Greed":
		return types.SentimentGood
	default:
		return types.SentimentAverage
	}
}

// Align projects the sentiment series onto the given daily timeline, forward
// filling between observations. Dates before the first observation get the
// fixed neutral default; values are never back-dated.
func Align(points []types.SentimentPoint, dates []time.Time) []types.SentimentPoint {
	aligned := make([]types.SentimentPoint, 0, len(dates))

	idx := 0

	var last *types.SentimentPoint

	for _, date := range dates {
		day := date.UTC().Truncate(24 * time.Hour)

		for idx < len(points) && !points[idx].Date.After(day) {
			p := points[idx]
			last = &p
			idx++
		}

		if last == nil {
			aligned = append(aligned, types.NeutralSentiment(day))
			continue
		}

		point := *last
		point.Date = day
		aligned = append(aligned, point)
	}

	return aligned
}
