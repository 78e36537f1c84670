package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

type SyntheticTestSuite struct {
	suite.Suite

	provider *SyntheticProvider
}

func TestSyntheticSuite(t *testing.T) {
	suite.Run(t, new(SyntheticTestSuite))
}

func (suite *SyntheticTestSuite) SetupTest() {
	suite.provider = NewSyntheticProvider()
}

func (suite *SyntheticTestSuite) TestHistoryShape() {
	bars, err := suite.provider.GetHistoricalData(context.Background(), "BTC", 365)
	suite.Require().NoError(err)
	suite.Len(bars, 365)
	suite.Require().NoError(types.ValidateSeries(bars))

	for _, bar := range bars {
		suite.Equal("BTC", bar.Symbol)
		suite.GreaterOrEqual(bar.High, bar.Close)
		suite.LessOrEqual(bar.Low, bar.Close)
		suite.GreaterOrEqual(bar.High, bar.Open)
		suite.LessOrEqual(bar.Low, bar.Open)
		suite.Positive(bar.Volume)
	}
}

func (suite *SyntheticTestSuite) TestHistoryDeterministic() {
	first, err := suite.provider.GetHistoricalData(context.Background(), "ETH", 100)
	suite.Require().NoError(err)

	second, err := suite.provider.GetHistoricalData(context.Background(), "ETH", 100)
	suite.Require().NoError(err)

	suite.Equal(first, second, "same symbol and day count must generate identical series")
}

func (suite *SyntheticTestSuite) TestSymbolsDiffer() {
	btc, err := suite.provider.GetHistoricalData(context.Background(), "BTC", 50)
	suite.Require().NoError(err)

	eth, err := suite.provider.GetHistoricalData(context.Background(), "ETH", 50)
	suite.Require().NoError(err)

	suite.NotEqual(btc[10].Close, eth[10].Close)
}

func (suite *SyntheticTestSuite) TestFinalPricePinnedToAnchor() {
	bars, err := suite.provider.GetHistoricalData(context.Background(), "BTC", 200)
	suite.Require().NoError(err)
	suite.InDelta(syntheticBasePrices["BTC"], bars[len(bars)-1].Close, 1e-6)
}

func (suite *SyntheticTestSuite) TestUnknownSymbolStillWorks() {
	bars, err := suite.provider.GetHistoricalData(context.Background(), "WHATEVER", 30)
	suite.Require().NoError(err)
	suite.Len(bars, 30)
}

func (suite *SyntheticTestSuite) TestInvalidDays() {
	_, err := suite.provider.GetHistoricalData(context.Background(), "BTC", 0)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *SyntheticTestSuite) TestQuoteStableWithinDay() {
	first, err := suite.provider.GetCurrentPrice(context.Background(), "BTC")
	suite.Require().NoError(err)

	second, err := suite.provider.GetCurrentPrice(context.Background(), "BTC")
	suite.Require().NoError(err)

	suite.True(first.Price.Equal(second.Price), "quotes must be stable within a calendar day")
}

func TestEstimateOHLC(t *testing.T) {
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	open1, high1, low1 := estimateOHLC("BTC", date, 100)
	open2, high2, low2 := estimateOHLC("BTC", date, 100)

	if open1 != open2 || high1 != high2 || low1 != low2 {
		t.Fatal("estimated OHLC must be deterministic for the same symbol and date")
	}

	if high1 < 100 || low1 > 100 || open1 < low1 || open1 > high1 {
		t.Fatalf("estimated OHLC ordering violated: open=%f high=%f low=%f", open1, high1, low1)
	}

	openOther, _, _ := estimateOHLC("ETH", date, 100)
	if openOther == open1 {
		t.Fatal("different symbols should jitter differently")
	}
}

func TestDedupeDaily(t *testing.T) {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	bars := []types.Bar{
		{Symbol: "BTC", Time: day, Close: 100},
		{Symbol: "BTC", Time: day.AddDate(0, 0, 1), Close: 101},
		{Symbol: "BTC", Time: day.AddDate(0, 0, 1), Close: 102},
	}

	deduped := dedupeDaily(bars)
	if len(deduped) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(deduped))
	}

	if deduped[1].Close != 102 {
		t.Fatalf("dedupe must keep the last same-day observation, got close %f", deduped[1].Close)
	}
}

func TestNewProviderFactory(t *testing.T) {
	for _, providerType := range []ProviderType{ProviderCoinGecko, ProviderBinance, ProviderSynthetic} {
		p, err := NewProvider(providerType)
		if err != nil {
			t.Fatalf("factory failed for %s: %v", providerType, err)
		}

		if p.Name() != string(providerType) {
			t.Fatalf("provider name %s does not match type %s", p.Name(), providerType)
		}
	}

	if _, err := NewProvider("yahoo"); err == nil {
		t.Fatal("unknown provider type must fail")
	}
}
