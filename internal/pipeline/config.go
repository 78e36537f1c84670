package pipeline

import (
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v2"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Config drives the whole pipeline: which providers feed it, how far back to
// look, and how the regressor trains.
type Config struct {
	// Symbols are the coins processed when a command is run without explicit
	// arguments.
	Symbols []string `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Coin symbols to process by default" validate:"min=1,dive,required"`

	// Providers is the ordered real-provider chain. Synthetic fallback is
	// always appended implicitly.
	Providers []string `yaml:"providers" json:"providers" jsonschema:"title=Providers,description=Ordered market data provider chain,enum=coingecko,enum=binance" validate:"min=1,dive,oneof=coingecko binance"`

	HistoryDays    int `yaml:"history_days" json:"history_days" jsonschema:"title=History Days,description=Days of daily bars fetched for training,minimum=1" validate:"gt=0"`
	Lookback       int `yaml:"lookback" json:"lookback" jsonschema:"title=Lookback,description=Days of history in one model input window,minimum=1" validate:"gt=0"`
	PredictionDays int `yaml:"prediction_days" json:"prediction_days" jsonschema:"title=Prediction Days,description=Days predicted ahead,minimum=1" validate:"gt=0"`

	Epochs       int     `yaml:"epochs" json:"epochs" jsonschema:"title=Epochs,minimum=1" validate:"gt=0"`
	BatchSize    int     `yaml:"batch_size" json:"batch_size" jsonschema:"title=Batch Size,minimum=1" validate:"gt=0"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate" jsonschema:"title=Learning Rate,minimum=0" validate:"gt=0"`

	BacktestDays int `yaml:"backtest_days" json:"backtest_days" jsonschema:"title=Backtest Days,description=Trailing days scored by the evaluate command,minimum=1" validate:"gt=0"`

	CacheDir    string `yaml:"cache_dir" json:"cache_dir" jsonschema:"title=Cache Directory" validate:"required"`
	ArtifactDir string `yaml:"artifact_dir" json:"artifact_dir" jsonschema:"title=Artifact Directory" validate:"required"`

	// MaxRetries is per-provider attempts before moving down the chain.
	MaxRetries int `yaml:"max_retries" json:"max_retries" jsonschema:"title=Max Retries,minimum=1" validate:"gt=0"`

	// PolygonAPIKey enables the cross-market index columns when set.
	PolygonAPIKey string `yaml:"polygon_api_key" json:"polygon_api_key" jsonschema:"title=Polygon API Key,description=Enables external market index features when set"`
}

// DefaultConfig returns the pipeline defaults: a 60-day lookback predicting
// 3 days ahead over 2 years of history.
func DefaultConfig() Config {
	return Config{
		Symbols:        []string{"BTC", "ETH", "SOLANA", "BNB", "DOGE"},
		Providers:      []string{"coingecko", "binance"},
		HistoryDays:    730,
		Lookback:       60,
		PredictionDays: 3,
		Epochs:         100,
		BatchSize:      32,
		LearningRate:   0.01,
		BacktestDays:   30,
		CacheDir:       "cache",
		ArtifactDir:    "models/saved",
		MaxRetries:     2,
		PolygonAPIKey:  "",
	}
}

// ParseConfig unmarshals YAML over the defaults and validates the result, so
// a partial config file only overrides what it names.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse pipeline config", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "pipeline config failed validation", err)
	}

	return config, nil
}

// GenerateSchema generates a JSON schema for the pipeline config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.Reflect(c)

	schema.Title = "forecast-pipeline-config"
	schema.Description = "Configuration schema for the forecast pipeline"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}
