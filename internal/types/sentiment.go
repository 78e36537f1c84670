package types

import "time"

// SentimentCategory is the ordinal bucket for a sentiment observation.
type SentimentCategory int

const (
	SentimentWorst   SentimentCategory = 0
	SentimentBad     SentimentCategory = 1
	SentimentAverage SentimentCategory = 2
	SentimentMedium  SentimentCategory = 3
	SentimentGood    SentimentCategory = 4
)

// NeutralSentimentScore is the default score used when no observation exists
// for a date.
const NeutralSentimentScore = 50.0

// String returns the human-readable category label.
func (c SentimentCategory) String() string {
	switch c {
	case SentimentWorst:
		return "Worst"
	case SentimentBad:
		return "Bad"
	case SentimentAverage:
		return "Average"
	case SentimentMedium:
		return "Medium"
	case SentimentGood:
		return "Good"
	default:
		return "Average"
	}
}

// SentimentPoint is a single dated market-sentiment observation. Article
// counts are zero when the upstream index does not report them.
type SentimentPoint struct {
	Date          time.Time         `json:"date"`
	Score         float64           `json:"score"`
	Category      SentimentCategory `json:"category"`
	PositiveCount int               `json:"positive_count"`
	NegativeCount int               `json:"negative_count"`
	NeutralCount  int               `json:"neutral_count"`
}

// NeutralSentiment returns the fixed default observation for a date with no
// fresh sentiment value.
func NeutralSentiment(date time.Time) SentimentPoint {
	return SentimentPoint{
		Date:          date,
		Score:         NeutralSentimentScore,
		Category:      SentimentAverage,
		PositiveCount: 0,
		NegativeCount: 0,
		NeutralCount:  0,
	}
}
