package ingestion

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/provider"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Coordinator orchestrates the real provider chain with retry/backoff and
// falls back to the synthetic generator once all real providers are
// exhausted. The degraded flag is sticky for the coordinator instance: after
// it flips, real providers are skipped until Reset is called.
type Coordinator struct {
	providers []provider.Provider
	fallback  provider.Provider
	backoff   BackoffPolicy
	log       *logger.Logger

	mu       sync.Mutex
	degraded bool

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewCoordinator creates a coordinator over an ordered real-provider chain.
// The synthetic generator is always the terminal fallback.
func NewCoordinator(providers []provider.Provider, backoff BackoffPolicy, log *logger.Logger) *Coordinator {
	return &Coordinator{
		providers: providers,
		fallback:  provider.NewSyntheticProvider(),
		backoff:   backoff,
		log:       log,
		degraded:  false,
		sleep:     time.Sleep,
	}
}

// Degraded reports whether the coordinator has switched to synthetic data.
func (c *Coordinator) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.degraded
}

// Reset clears the degraded flag so the next fetch tries real providers again.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.degraded {
		c.log.Info("ingestion coordinator reset, real providers re-enabled")
	}

	c.degraded = false
}

func (c *Coordinator) markDegraded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.degraded {
		c.log.Warn("all real providers exhausted, switching to synthetic data until reset")
	}

	c.degraded = true
}

// FetchHistory returns `days` of daily bars for the symbol. Transient
// provider failures are retried with exponential backoff and then degrade
// silently to synthetic data; the only hard failures are unsupported symbols
// and an empty result after all fallbacks.
func (c *Coordinator) FetchHistory(ctx context.Context, symbol string, days int) ([]types.Bar, error) {
	if !c.Degraded() {
		bars, err := tryProviders(c, symbol, func(p provider.Provider) ([]types.Bar, error) {
			return p.GetHistoricalData(ctx, symbol, days)
		})
		if err == nil {
			return bars, nil
		}

		if errors.HasCode(err, errors.ErrCodeUnsupportedSymbol) {
			return nil, err
		}

		c.markDegraded()
	}

	bars, err := c.fallback.GetHistoricalData(ctx, symbol, days)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeNoDataAfterFallback, err, "no history for %s after all fallbacks", symbol)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataAfterFallback, "no history for %s after all fallbacks", symbol)
	}

	return bars, nil
}

// FetchQuote returns the latest snapshot for the symbol, with the same
// retry/fallback semantics as FetchHistory.
func (c *Coordinator) FetchQuote(ctx context.Context, symbol string) (types.Quote, error) {
	if !c.Degraded() {
		quote, err := tryProviders(c, symbol, func(p provider.Provider) (types.Quote, error) {
			return p.GetCurrentPrice(ctx, symbol)
		})
		if err == nil {
			return quote, nil
		}

		if errors.HasCode(err, errors.ErrCodeUnsupportedSymbol) {
			return types.Quote{}, err
		}

		c.markDegraded()
	}

	quote, err := c.fallback.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeNoDataAfterFallback, err, "no quote for %s after all fallbacks", symbol)
	}

	return quote, nil
}

// tryProviders runs the fetch against each real provider in order, retrying
// each one with the backoff policy. The loop is an explicit attempt counter
// rather than nested error handling so the policy stays visible.
func tryProviders[T any](c *Coordinator, symbol string, fetch func(provider.Provider) (T, error)) (T, error) {
	var zero T

	var lastErr error

	for _, p := range c.providers {
		for attempt := 1; attempt <= c.backoff.MaxRetries; attempt++ {
			if delay := c.backoff.Delay(attempt); delay > 0 {
				c.log.Info("retrying provider",
					zap.String("provider", p.Name()),
					zap.String("symbol", symbol),
					zap.Int("attempt", attempt),
					zap.Duration("delay", delay),
				)
				c.sleep(delay)
			}

			result, err := fetch(p)
			if err == nil {
				return result, nil
			}

			// Permanent input error: stop the whole chain, no retry.
			if errors.HasCode(err, errors.ErrCodeUnsupportedSymbol) {
				return zero, err
			}

			lastErr = err

			c.log.Warn("provider fetch failed",
				zap.String("provider", p.Name()),
				zap.String("symbol", symbol),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
	}

	if lastErr == nil {
		lastErr = errors.New(errors.ErrCodeProviderUnavailable, "no real providers configured")
	}

	return zero, lastErr
}
