package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSentimentCategoryString(t *testing.T) {
	assert.Equal(t, "Worst", SentimentWorst.String())
	assert.Equal(t, "Bad", SentimentBad.String())
	assert.Equal(t, "Average", SentimentAverage.String())
	assert.Equal(t, "Medium", SentimentMedium.String())
	assert.Equal(t, "Good", SentimentGood.String())
	assert.Equal(t, "Average", SentimentCategory(99).String())
}

func TestNeutralSentiment(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	p := NeutralSentiment(date)
	assert.Equal(t, date, p.Date)
	assert.Equal(t, NeutralSentimentScore, p.Score)
	assert.Equal(t, SentimentAverage, p.Category)
	assert.Zero(t, p.PositiveCount)
	assert.Zero(t, p.NegativeCount)
	assert.Zero(t, p.NeutralCount)
}
