package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-forecast/internal/artifact"
	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/pipeline"
	"github.com/rxtech-lab/argo-forecast/internal/version"
	"github.com/rxtech-lab/argo-forecast/pkg/utils"
)

// loadConfig reads the YAML config if the flag points at one, otherwise the
// built-in defaults apply.
func loadConfig(cmd *cli.Command) (pipeline.Config, error) {
	path := cmd.String("config")
	if path == "" {
		return pipeline.DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return pipeline.ParseConfig(data)
}

// resolveSymbols returns the command arguments, or the configured default
// symbols when none are given.
func resolveSymbols(cmd *cli.Command, cfg pipeline.Config) []string {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return cfg.Symbols
	}

	symbols := make([]string, len(args))
	for i, arg := range args {
		symbols[i] = strings.ToUpper(arg)
	}

	return symbols
}

func newPipeline(cmd *cli.Command) (*pipeline.Pipeline, pipeline.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}

	if key := os.Getenv("POLYGON_API_KEY"); key != "" && cfg.PolygonAPIKey == "" {
		cfg.PolygonAPIKey = key
	}

	lg, err := logger.NewLogger()
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to create logger: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg, lg)
	if err != nil {
		return nil, cfg, err
	}

	return p, cfg, nil
}

func trainAction(ctx context.Context, cmd *cli.Command) error {
	p, cfg, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	symbols := resolveSymbols(cmd, cfg)
	bar := progressbar.NewOptions(len(symbols),
		progressbar.OptionSetDescription("Training models"),
		progressbar.OptionShowCount(),
	)

	for _, symbol := range symbols {
		bundle, summary, err := p.Train(ctx, symbol)
		if err != nil {
			return fmt.Errorf("training %s failed: %w", symbol, err)
		}

		_ = bar.Add(1)
		fmt.Printf("\n%s: trained %s (loss %.6f, val loss %.6f, run %s)\n",
			symbol, bundle.Metadata.RegressorKind, summary.FinalLoss, summary.FinalValLoss, bundle.Metadata.RunID)
	}

	return nil
}

func predictAction(ctx context.Context, cmd *cli.Command) error {
	p, cfg, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	for _, symbol := range resolveSymbols(cmd, cfg) {
		forecast, err := p.Predict(ctx, symbol)
		if err != nil {
			return fmt.Errorf("prediction for %s failed: %w", symbol, err)
		}

		fmt.Printf("%s (current $%.2f, model trained %s)\n",
			forecast.Symbol, forecast.CurrentPrice, forecast.TrainedDate.Format("2006-01-02"))

		for _, point := range forecast.Points {
			fmt.Printf("  %s: $%.2f (%+.2f%%)\n",
				point.Date.Format("2006-01-02"), point.Price, point.ChangePercent)
		}
	}

	return nil
}

func evaluateAction(ctx context.Context, cmd *cli.Command) error {
	p, cfg, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	symbols := resolveSymbols(cmd, cfg)

	fmt.Printf("%-10s %-25s %s\n", "Coin", "Directional Accuracy", "Avg Error (MAPE)")

	for _, symbol := range symbols {
		result, err := p.Evaluate(ctx, symbol)
		if err != nil {
			return fmt.Errorf("evaluation for %s failed: %w", symbol, err)
		}

		fmt.Printf("%-10s %d/%d (%.1f%%)%-10s %.2f%%\n",
			result.Symbol, result.Correct, result.Total, result.DirectionalAccuracy, "", result.MAPE)
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool("artifact") {
		schema, err := utils.GetSchemaFromConfig(artifact.Metadata{})
		if err != nil {
			return fmt.Errorf("failed to generate artifact schema: %w", err)
		}

		fmt.Println(schema)

		return nil
	}

	cfg := pipeline.DefaultConfig()

	schema, err := cfg.GenerateSchema()
	if err != nil {
		return fmt.Errorf("failed to generate config schema: %w", err)
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config schema: %w", err)
	}

	fmt.Println(string(data))

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "forecast",
		Usage:   "Train, run, and evaluate crypto price forecast models",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML pipeline config",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "train",
				Usage:     "Train a model per symbol and persist its artifact",
				ArgsUsage: "[symbols...]",
				Action:    trainAction,
			},
			{
				Name:      "predict",
				Usage:     "Forecast the next days for each symbol's trained model",
				ArgsUsage: "[symbols...]",
				Action:    predictAction,
			},
			{
				Name:      "evaluate",
				Usage:     "Backtest trained models over the trailing window",
				ArgsUsage: "[symbols...]",
				Action:    evaluateAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema for the pipeline config",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "artifact",
						Usage: "Print the artifact metadata schema instead",
					},
				},
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
