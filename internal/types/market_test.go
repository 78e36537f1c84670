package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

func bar(day int, close float64) Bar {
	return Bar{
		Symbol: "BTC",
		Time:   time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 1000,
	}
}

func TestValidateSeries(t *testing.T) {
	assert.NoError(t, ValidateSeries(nil))
	assert.NoError(t, ValidateSeries([]Bar{bar(1, 100)}))
	assert.NoError(t, ValidateSeries([]Bar{bar(1, 100), bar(2, 101), bar(3, 102)}))
}

func TestValidateSeriesUnordered(t *testing.T) {
	err := ValidateSeries([]Bar{bar(2, 100), bar(1, 101)})
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSeries))
}

func TestValidateSeriesDuplicateDate(t *testing.T) {
	err := ValidateSeries([]Bar{bar(1, 100), bar(1, 101)})
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSeries))
}

func TestValidateSeriesNegativeValue(t *testing.T) {
	bad := bar(1, 100)
	bad.Volume = -1

	err := ValidateSeries([]Bar{bad})
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSeries))
}

func TestBarDay(t *testing.T) {
	b := Bar{Time: time.Date(2026, 3, 5, 18, 30, 0, 0, time.UTC)}
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), b.Day())
}
