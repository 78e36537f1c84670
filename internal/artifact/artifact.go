// Package artifact persists trained models as single JSON bundles. A bundle
// carries everything a later prediction needs to reproduce training-time
// preprocessing: the fitted scaler, the feature manifest, and the serialized
// regressor, stamped with a format version and a run ID.
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/dataset"
	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/version"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Metadata describes a trained model: which coin, which feature layout, and
// how training went.
type Metadata struct {
	Coin           string    `json:"coin" validate:"required"`
	Lookback       int       `json:"lookback" validate:"gt=0"`
	PredictionDays int       `json:"prediction_days" validate:"gt=0"`
	FeatureCols    []string  `json:"feature_cols" validate:"min=1"`
	CloseIndex     int       `json:"close_index" validate:"gte=0"`
	TrainedDate    time.Time `json:"trained_date" validate:"required"`
	FinalLoss      float64   `json:"final_loss"`
	FinalValLoss   float64   `json:"final_val_loss"`
	RunID          string    `json:"run_id" validate:"required,uuid4"`
	FormatVersion  string    `json:"format_version" validate:"required"`
	RegressorKind  string    `json:"regressor_kind" validate:"required"`
}

// Bundle is the full persisted artifact. The regressor blob is opaque to
// this package; its kind in the metadata selects the implementation on load.
type Bundle struct {
	Metadata  Metadata        `json:"metadata"`
	Scaler    *dataset.Scaler `json:"scaler"`
	Regressor []byte          `json:"regressor"`
}

// Manifest rebuilds the dataset manifest the bundle was trained with.
func (b *Bundle) Manifest() dataset.Manifest {
	return dataset.Manifest{
		Columns:    b.Metadata.FeatureCols,
		CloseIndex: b.Metadata.CloseIndex,
		Lookback:   b.Metadata.Lookback,
		Horizon:    b.Metadata.PredictionDays,
	}
}

// Store reads and writes artifact bundles under a single directory, one file
// per coin.
type Store struct {
	dir      string
	log      *logger.Logger
	validate *validator.Validate
}

// NewStore creates an artifact store rooted at dir, creating it if needed.
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactWriteFailed, err, "failed to create artifact directory %s", dir)
	}

	return &Store{
		dir:      dir,
		log:      log,
		validate: validator.New(),
	}, nil
}

// Path returns the bundle path for a coin symbol.
func (s *Store) Path(symbol string) string {
	return filepath.Join(s.dir, strings.ToUpper(symbol)+".artifact.json")
}

// Exists reports whether a bundle is present for the symbol.
func (s *Store) Exists(symbol string) bool {
	_, err := os.Stat(s.Path(symbol))

	return err == nil
}

// List returns the symbols that have a persisted bundle.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifactNotFound, "failed to read artifact directory", err)
	}

	var symbols []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".artifact.json") {
			continue
		}

		symbols = append(symbols, strings.TrimSuffix(name, ".artifact.json"))
	}

	return symbols, nil
}

// Save validates the bundle and writes it atomically: the JSON goes to a
// temp file in the same directory, then renames over the final path. A crash
// mid-write never leaves a truncated bundle behind.
func (s *Store) Save(bundle *Bundle) error {
	if err := s.validate.Struct(&bundle.Metadata); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "artifact metadata failed validation", err)
	}

	if bundle.Scaler == nil || !bundle.Scaler.Fitted() {
		return errors.New(errors.ErrCodeScalerNotFitted, "artifact requires a fitted scaler")
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeArtifactWriteFailed, "failed to encode artifact", err)
	}

	final := s.Path(bundle.Metadata.Coin)

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(final)+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeArtifactWriteFailed, "failed to create temp artifact", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return errors.Wrap(errors.ErrCodeArtifactWriteFailed, "failed to write temp artifact", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return errors.Wrap(errors.ErrCodeArtifactWriteFailed, "failed to close temp artifact", err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)

		return errors.Wrap(errors.ErrCodeArtifactWriteFailed, "failed to move artifact into place", err)
	}

	s.log.Info("artifact saved",
		zap.String("coin", bundle.Metadata.Coin),
		zap.String("path", final),
		zap.String("run_id", bundle.Metadata.RunID),
	)

	return nil
}

// Load reads, validates, and version-checks the bundle for a symbol.
func (s *Store) Load(symbol string) (*Bundle, error) {
	data, err := os.ReadFile(s.Path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeArtifactNotFound, "no artifact found for %s", symbol)
		}

		return nil, errors.Wrapf(errors.ErrCodeArtifactNotFound, err, "failed to read artifact for %s", symbol)
	}

	var bundle Bundle

	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactCorrupt, err, "artifact for %s is not valid JSON", symbol)
	}

	if err := s.validate.Struct(&bundle.Metadata); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactCorrupt, err, "artifact for %s has invalid metadata", symbol)
	}

	if err := version.CheckArtifactCompatibility(version.ArtifactFormatVersion, bundle.Metadata.FormatVersion); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactVersionFailed, err, "artifact for %s is incompatible", symbol)
	}

	if bundle.Scaler == nil || !bundle.Scaler.Fitted() {
		return nil, errors.Newf(errors.ErrCodeArtifactCorrupt, "artifact for %s has no fitted scaler", symbol)
	}

	return &bundle, nil
}
