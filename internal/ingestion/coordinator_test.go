package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/provider"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// fakeProvider is a scripted provider: it fails `failures` times before
// succeeding, and counts every call.
type fakeProvider struct {
	name     string
	failures int
	failCode errors.ErrorCode
	calls    int
	bars     []types.Bar
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Supports(string) bool { return true }

func (f *fakeProvider) GetHistoricalData(_ context.Context, symbol string, _ int) ([]types.Bar, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.Newf(f.failCode, "%s scripted failure %d for %s", f.name, f.calls, symbol)
	}

	return f.bars, nil
}

func (f *fakeProvider) GetCurrentPrice(_ context.Context, symbol string) (types.Quote, error) {
	f.calls++
	if f.calls <= f.failures {
		return types.Quote{}, errors.Newf(f.failCode, "%s scripted failure %d for %s", f.name, f.calls, symbol)
	}

	return types.Quote{Symbol: symbol}, nil
}

func someBars(symbol string, days int) []types.Bar {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, days)

	for i := range bars {
		bars[i] = types.Bar{
			Symbol: symbol,
			Time:   start.AddDate(0, 0, i),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: 1000,
		}
	}

	return bars
}

type CoordinatorTestSuite struct {
	suite.Suite
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

func (suite *CoordinatorTestSuite) newCoordinator(providers ...provider.Provider) *Coordinator {
	c := NewCoordinator(providers, DefaultBackoffPolicy(), logger.NewNopLogger())
	c.sleep = func(time.Duration) {}

	return c
}

func (suite *CoordinatorTestSuite) TestFirstProviderSucceeds() {
	first := &fakeProvider{name: "first", bars: someBars("BTC", 5)}
	second := &fakeProvider{name: "second", bars: someBars("BTC", 5)}

	c := suite.newCoordinator(first, second)

	bars, err := c.FetchHistory(context.Background(), "BTC", 5)
	suite.Require().NoError(err)
	suite.Len(bars, 5)
	suite.Equal(1, first.calls)
	suite.Zero(second.calls, "second provider must not be touched")
	suite.False(c.Degraded())
}

func (suite *CoordinatorTestSuite) TestRetryThenNextProvider() {
	// First provider always fails; second succeeds on its first try.
	first := &fakeProvider{name: "first", failures: 99, failCode: errors.ErrCodeProviderUnavailable}
	second := &fakeProvider{name: "second", bars: someBars("BTC", 5)}

	c := suite.newCoordinator(first, second)

	bars, err := c.FetchHistory(context.Background(), "BTC", 5)
	suite.Require().NoError(err)
	suite.Len(bars, 5)
	suite.Equal(DefaultBackoffPolicy().MaxRetries, first.calls, "first provider gets its full retry budget")
	suite.Equal(1, second.calls)
	suite.False(c.Degraded())
}

func (suite *CoordinatorTestSuite) TestFallbackToSynthetic() {
	first := &fakeProvider{name: "first", failures: 99, failCode: errors.ErrCodeProviderUnavailable}

	c := suite.newCoordinator(first)

	bars, err := c.FetchHistory(context.Background(), "BTC", 30)
	suite.Require().NoError(err)
	suite.NotEmpty(bars, "synthetic fallback must produce data")
	suite.True(c.Degraded())
}

func (suite *CoordinatorTestSuite) TestDegradedIsSticky() {
	first := &fakeProvider{name: "first", failures: 99, failCode: errors.ErrCodeProviderUnavailable}

	c := suite.newCoordinator(first)

	_, err := c.FetchHistory(context.Background(), "BTC", 30)
	suite.Require().NoError(err)

	callsAfterFirstRun := first.calls

	_, err = c.FetchHistory(context.Background(), "BTC", 30)
	suite.Require().NoError(err)
	suite.Equal(callsAfterFirstRun, first.calls, "degraded coordinator must skip real providers")
}

func (suite *CoordinatorTestSuite) TestReset() {
	first := &fakeProvider{name: "first", failures: 99, failCode: errors.ErrCodeProviderUnavailable}

	c := suite.newCoordinator(first)

	_, err := c.FetchHistory(context.Background(), "BTC", 30)
	suite.Require().NoError(err)
	suite.True(c.Degraded())

	c.Reset()
	suite.False(c.Degraded())

	callsBefore := first.calls

	_, err = c.FetchHistory(context.Background(), "BTC", 30)
	suite.Require().NoError(err)
	suite.Greater(first.calls, callsBefore, "reset must re-enable real providers")
}

func (suite *CoordinatorTestSuite) TestUnsupportedSymbolIsTerminal() {
	first := &fakeProvider{name: "first", failures: 99, failCode: errors.ErrCodeUnsupportedSymbol}

	c := suite.newCoordinator(first)

	_, err := c.FetchHistory(context.Background(), "NOPE", 30)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedSymbol))
	suite.Equal(1, first.calls, "unsupported symbol must not be retried")
	suite.False(c.Degraded(), "permanent input errors do not degrade the chain")
}

func (suite *CoordinatorTestSuite) TestQuoteFallback() {
	first := &fakeProvider{name: "first", failures: 99, failCode: errors.ErrCodeProviderUnavailable}

	c := suite.newCoordinator(first)

	quote, err := c.FetchQuote(context.Background(), "BTC")
	suite.Require().NoError(err)
	suite.Equal("BTC", quote.Symbol)
	suite.True(c.Degraded())
}

func (suite *CoordinatorTestSuite) TestNoRealProviders() {
	c := suite.newCoordinator()

	bars, err := c.FetchHistory(context.Background(), "BTC", 30)
	suite.Require().NoError(err)
	suite.NotEmpty(bars, "empty chain still falls back to synthetic")
	suite.True(c.Degraded())
}
