package types

import (
	"time"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Bar represents a single daily OHLCV record. It is the source of truth for
// all downstream feature derivation.
type Bar struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Day truncates the bar time to calendar-day granularity in UTC.
func (b Bar) Day() time.Time {
	return b.Time.UTC().Truncate(24 * time.Hour)
}

// ValidateSeries checks that a bar series is ordered by strictly increasing
// date with no duplicates and no negative prices or volumes.
func ValidateSeries(bars []Bar) error {
	for i, bar := range bars {
		if bar.Open < 0 || bar.High < 0 || bar.Low < 0 || bar.Close < 0 || bar.Volume < 0 {
			return errors.Newf(errors.ErrCodeInvalidSeries, "negative value at row %d (%s)", i, bar.Time.Format("2006-01-02"))
		}

		if i == 0 {
			continue
		}

		if !bars[i-1].Time.Before(bar.Time) {
			return errors.Newf(errors.ErrCodeInvalidSeries,
				"series not strictly increasing at row %d: %s does not follow %s",
				i, bar.Time.Format("2006-01-02"), bars[i-1].Time.Format("2006-01-02"))
		}
	}

	return nil
}
