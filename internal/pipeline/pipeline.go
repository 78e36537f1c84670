// Package pipeline wires ingestion, feature engineering, training, and
// evaluation into the three operations the CLI exposes: train, predict, and
// evaluate.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/artifact"
	"github.com/rxtech-lab/argo-forecast/internal/backtest"
	"github.com/rxtech-lab/argo-forecast/internal/dataset"
	"github.com/rxtech-lab/argo-forecast/internal/feature"
	"github.com/rxtech-lab/argo-forecast/internal/forecast"
	"github.com/rxtech-lab/argo-forecast/internal/ingestion"
	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/marketindex"
	"github.com/rxtech-lab/argo-forecast/internal/provider"
	"github.com/rxtech-lab/argo-forecast/internal/regressor"
	"github.com/rxtech-lab/argo-forecast/internal/sentiment"
	"github.com/rxtech-lab/argo-forecast/internal/seriescache"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/internal/version"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Pipeline owns the long-lived components shared across commands.
type Pipeline struct {
	cfg         Config
	log         *logger.Logger
	coordinator *ingestion.Coordinator
	cache       *seriescache.Store
	sentiments  *sentiment.Fetcher
	indices     *marketindex.Fetcher
	engine      *feature.Engine
	artifacts   *artifact.Store
	evaluator   *backtest.Evaluator
	now         func() time.Time
}

// NewPipeline assembles a pipeline from config. The market index fetcher is
// only wired when a Polygon API key is configured; everything else is
// unconditional.
func NewPipeline(cfg Config, log *logger.Logger) (*Pipeline, error) {
	providers := make([]provider.Provider, 0, len(cfg.Providers))

	for _, name := range cfg.Providers {
		p, err := provider.NewProvider(provider.ProviderType(name))
		if err != nil {
			return nil, err
		}

		providers = append(providers, p)
	}

	backoff := ingestion.DefaultBackoffPolicy()
	backoff.MaxRetries = cfg.MaxRetries

	cache, err := seriescache.NewStore(filepath.Join(cfg.CacheDir, "series.duckdb"), log)
	if err != nil {
		return nil, err
	}

	artifacts, err := artifact.NewStore(cfg.ArtifactDir, log)
	if err != nil {
		_ = cache.Close()

		return nil, err
	}

	p := &Pipeline{
		cfg:         cfg,
		log:         log,
		coordinator: ingestion.NewCoordinator(providers, backoff, log),
		cache:       cache,
		sentiments:  sentiment.NewFetcher(cache, log),
		indices:     nil,
		engine:      feature.NewEngine(log),
		artifacts:   artifacts,
		evaluator:   backtest.NewEvaluator(log),
		now:         time.Now,
	}

	if cfg.PolygonAPIKey != "" {
		indices, err := marketindex.NewFetcher(cfg.PolygonAPIKey, cfg.HistoryDays, cache, log)
		if err != nil {
			_ = cache.Close()

			return nil, err
		}

		p.indices = indices
	}

	return p, nil
}

// Close releases the series cache.
func (p *Pipeline) Close() error {
	return p.cache.Close()
}

// Coordinator exposes the ingestion coordinator, mainly so callers can
// inspect or reset its degraded state between runs.
func (p *Pipeline) Coordinator() *ingestion.Coordinator {
	return p.coordinator
}

// Artifacts exposes the artifact store.
func (p *Pipeline) Artifacts() *artifact.Store {
	return p.artifacts
}

// Train fetches history, derives features, trains a fresh regressor, and
// persists the resulting artifact bundle for the symbol.
func (p *Pipeline) Train(ctx context.Context, symbol string) (*artifact.Bundle, types.TrainingSummary, error) {
	var summary types.TrainingSummary

	table, _, err := p.buildFeatureTable(ctx, symbol)
	if err != nil {
		return nil, summary, err
	}

	set, err := dataset.BuildTrainingSet(table, table.Names(), p.cfg.Lookback, p.cfg.PredictionDays)
	if err != nil {
		return nil, summary, err
	}

	model := regressor.NewLinear()

	opts := regressor.DefaultFitOptions()
	opts.Epochs = p.cfg.Epochs
	opts.BatchSize = p.cfg.BatchSize
	opts.LearningRate = p.cfg.LearningRate

	summary, err = model.Fit(set.X, set.Y, opts)
	if err != nil {
		return nil, summary, err
	}

	blob, err := model.Serialize()
	if err != nil {
		return nil, summary, err
	}

	bundle := &artifact.Bundle{
		Metadata: artifact.Metadata{
			Coin:           symbol,
			Lookback:       set.Manifest.Lookback,
			PredictionDays: set.Manifest.Horizon,
			FeatureCols:    set.Manifest.Columns,
			CloseIndex:     set.Manifest.CloseIndex,
			TrainedDate:    p.now().UTC(),
			FinalLoss:      summary.FinalLoss,
			FinalValLoss:   summary.FinalValLoss,
			RunID:          uuid.NewString(),
			FormatVersion:  version.ArtifactFormatVersion,
			RegressorKind:  model.Kind(),
		},
		Scaler:    set.Scaler,
		Regressor: blob,
	}

	if err := p.artifacts.Save(bundle); err != nil {
		return nil, summary, err
	}

	p.log.Info("training complete",
		zap.String("symbol", symbol),
		zap.Int("windows", len(set.X)),
		zap.Float64("final_loss", summary.FinalLoss),
		zap.Float64("final_val_loss", summary.FinalValLoss),
	)

	return bundle, summary, nil
}

// Predict loads the trained artifact for the symbol, rebuilds the trailing
// feature window with the artifact's own manifest and scaler, and returns
// the reconstructed price forecast.
func (p *Pipeline) Predict(ctx context.Context, symbol string) (types.Forecast, error) {
	var result types.Forecast

	bundle, err := p.artifacts.Load(symbol)
	if err != nil {
		return result, err
	}

	model, err := regressor.New(bundle.Metadata.RegressorKind)
	if err != nil {
		return result, err
	}

	if err := model.Deserialize(bundle.Regressor); err != nil {
		return result, err
	}

	table, bars, err := p.buildFeatureTable(ctx, symbol)
	if err != nil {
		return result, err
	}

	manifest := bundle.Manifest()

	window, err := dataset.BuildInferenceWindow(table, manifest, bundle.Scaler)
	if err != nil {
		return result, err
	}

	scaled, err := model.Predict(window)
	if err != nil {
		return result, err
	}

	last := bars[len(bars)-1]

	return forecast.Reconstruct(symbol, scaled, bundle.Scaler, manifest, last.Close, last.Time, bundle.Metadata.TrainedDate)
}

// Evaluate backtests the trained artifact over the trailing backtest window.
func (p *Pipeline) Evaluate(ctx context.Context, symbol string) (backtest.Result, error) {
	var result backtest.Result

	bundle, err := p.artifacts.Load(symbol)
	if err != nil {
		return result, err
	}

	model, err := regressor.New(bundle.Metadata.RegressorKind)
	if err != nil {
		return result, err
	}

	if err := model.Deserialize(bundle.Regressor); err != nil {
		return result, err
	}

	table, _, err := p.buildFeatureTable(ctx, symbol)
	if err != nil {
		return result, err
	}

	return p.evaluator.Evaluate(symbol, table, bundle.Manifest(), bundle.Scaler, model, p.cfg.BacktestDays)
}

// buildFeatureTable fetches history and assembles the full feature table for
// a symbol. Sentiment is always included: a failed fetch degrades to the
// neutral default series rather than changing the column set between runs.
// Index columns are included whenever the index fetcher is configured, with
// the same degradation rule.
func (p *Pipeline) buildFeatureTable(ctx context.Context, symbol string) (*feature.Table, []types.Bar, error) {
	bars, err := p.coordinator.FetchHistory(ctx, symbol, p.cfg.HistoryDays)
	if err != nil {
		return nil, nil, err
	}

	minRows := p.cfg.Lookback + p.cfg.PredictionDays
	if len(bars) < minRows {
		return nil, nil, &errors.InsufficientDataError{
			Required: minRows,
			Actual:   len(bars),
			Symbol:   symbol,
			Message:  "not enough history for the configured lookback and horizon",
		}
	}

	dates := make([]time.Time, len(bars))
	for i, bar := range bars {
		dates[i] = bar.Time
	}

	points, err := p.sentiments.GetSeries(ctx)
	if err != nil {
		p.log.Warn("sentiment unavailable, using neutral series", zap.Error(err))

		points = nil
	}

	aligned := sentiment.Align(points, dates)

	indexCloses := make(map[string][]float64)

	if p.indices != nil {
		for _, name := range marketindex.IndexNames() {
			closes, err := p.indices.GetCloses(ctx, name)
			if err != nil {
				p.log.Warn("market index unavailable, using zero series",
					zap.String("index", name),
					zap.Error(err),
				)

				closes = nil
			}

			indexCloses[name] = marketindex.Align(closes, dates)
		}
	}

	table, err := p.engine.Compute(bars, optional.Some(aligned), indexCloses)
	if err != nil {
		return nil, nil, err
	}

	return table, bars, nil
}
