package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// binancePairs maps our symbols to Binance USDT trading pairs.
var binancePairs = map[string]string{
	"BTC":    "BTCUSDT",
	"ETH":    "ETHUSDT",
	"SOLANA": "SOLUSDT",
	"BNB":    "BNBUSDT",
	"DOGE":   "DOGEUSDT",
	"XRP":    "XRPUSDT",
	"ADA":    "ADAUSDT",
	"AVAX":   "AVAXUSDT",
	"DOT":    "DOTUSDT",
	"LINK":   "LINKUSDT",
}

// BinanceProvider fetches daily klines and 24h ticker statistics from the
// public Binance API. No API key is required for market data endpoints.
type BinanceProvider struct {
	client *binance.Client
}

// NewBinanceProvider creates a Binance provider adapter.
func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient("", ""),
	}
}

// Name implements Provider.
func (p *BinanceProvider) Name() string {
	return string(ProviderBinance)
}

// Supports implements Provider.
func (p *BinanceProvider) Supports(symbol string) bool {
	_, ok := binancePairs[symbol]

	return ok
}

// GetHistoricalData implements Provider. Klines are paginated 500 rows at a
// time, following the Binance API limit.
func (p *BinanceProvider) GetHistoricalData(ctx context.Context, symbol string, days int) ([]types.Bar, error) {
	pair, ok := binancePairs[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupportedSymbol, "unsupported symbol: %s", symbol)
	}

	endTime := time.Now().UTC()
	startTime := endTime.AddDate(0, 0, -days)

	currentStart := startTime.UnixMilli()
	endMillis := endTime.UnixMilli()

	var bars []types.Bar

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(pair).
			Interval("1d").
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(500).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProviderUnavailable, err, "failed to fetch klines from binance for %s", symbol)
		}

		for _, k := range klines {
			bar, err := klineToBar(symbol, k)
			if err != nil {
				return nil, err
			}

			bars = append(bars, bar)
		}

		if len(klines) < 500 {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates.
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeProviderEmptyPayload, "binance returned no klines for %s", symbol)
	}

	return bars, nil
}

// GetCurrentPrice implements Provider.
func (p *BinanceProvider) GetCurrentPrice(ctx context.Context, symbol string) (types.Quote, error) {
	pair, ok := binancePairs[symbol]
	if !ok {
		return types.Quote{}, errors.Newf(errors.ErrCodeUnsupportedSymbol, "unsupported symbol: %s", symbol)
	}

	stats, err := p.client.NewListPriceChangeStatsService().Symbol(pair).Do(ctx)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeProviderUnavailable, err, "failed to fetch 24h stats from binance for %s", symbol)
	}

	if len(stats) == 0 {
		return types.Quote{}, errors.Newf(errors.ErrCodeProviderEmptyPayload, "binance returned no 24h stats for %s", symbol)
	}

	stat := stats[0]

	price, err := decimal.NewFromString(stat.LastPrice)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed last price %q for %s", stat.LastPrice, symbol)
	}

	change, err := decimal.NewFromString(stat.PriceChangePercent)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed price change %q for %s", stat.PriceChangePercent, symbol)
	}

	volume, err := decimal.NewFromString(stat.QuoteVolume)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed quote volume %q for %s", stat.QuoteVolume, symbol)
	}

	return types.Quote{
		Symbol:    symbol,
		Price:     price,
		Change24h: change,
		Volume:    volume,
		MarketCap: decimal.Zero, // not reported by the ticker endpoint
		Timestamp: time.Now().UTC(),
	}, nil
}

func klineToBar(symbol string, k *binance.Kline) (types.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed open %q for %s", k.Open, symbol)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed high %q for %s", k.High, symbol)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed low %q for %s", k.Low, symbol)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed close %q for %s", k.Close, symbol)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "malformed volume %q for %s", k.Volume, symbol)
	}

	return types.Bar{
		Symbol: symbol,
		Time:   time.UnixMilli(k.OpenTime).UTC().Truncate(24 * time.Hour),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
