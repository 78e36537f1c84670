package provider

import (
	"context"

	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderCoinGecko ProviderType = "coingecko"
	ProviderBinance   ProviderType = "binance"
	ProviderSynthetic ProviderType = "synthetic"
)

// Provider is a single upstream source of daily market data. Adapters
// normalize their provider's response into []types.Bar or fail explicitly.
// Implementations must set their own request timeouts; the ingestion
// coordinator does not impose an overall deadline.
type Provider interface {
	// Name returns the provider identifier used in logs.
	Name() string
	// Supports reports whether the provider can serve the symbol, without
	// performing any network I/O.
	Supports(symbol string) bool
	// GetHistoricalData returns up to `days` ordered daily bars for the symbol.
	// It returns ErrCodeUnsupportedSymbol for unknown symbols and a
	// provider-range error code on transient failures.
	GetHistoricalData(ctx context.Context, symbol string, days int) ([]types.Bar, error)
	// GetCurrentPrice returns the latest quote snapshot for the symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (types.Quote, error)
}

// NewProvider creates a provider adapter based on the provider type.
func NewProvider(providerType ProviderType) (Provider, error) {
	switch providerType {
	case ProviderCoinGecko:
		return NewCoinGeckoProvider(), nil
	case ProviderBinance:
		return NewBinanceProvider(), nil
	case ProviderSynthetic:
		return NewSyntheticProvider(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported market data provider: %s", providerType)
	}
}
