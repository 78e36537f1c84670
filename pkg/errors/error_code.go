package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidType          ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeMissingParameter     ErrorCode = 104
	ErrCodeInvalidSeries        ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106

	// Provider / ingestion errors (200-299)
	ErrCodeUnsupportedSymbol    ErrorCode = 200
	ErrCodeProviderUnavailable  ErrorCode = 201
	ErrCodeProviderEmptyPayload ErrorCode = 202
	ErrCodeProviderParseFailed  ErrorCode = 203
	ErrCodeNoDataAfterFallback  ErrorCode = 204

	// Series cache errors (300-399)
	ErrCodeCacheQueryFailed ErrorCode = 300
	ErrCodeCacheWriteFailed ErrorCode = 301

	// Feature errors (400-499)
	ErrCodeFeatureNotFound    ErrorCode = 400
	ErrCodeFeatureCalculation ErrorCode = 401

	// Scaling / windowing errors (500-599)
	ErrCodeScalerNotFitted   ErrorCode = 500
	ErrCodeManifestMismatch  ErrorCode = 501
	ErrCodeInvalidWindowSize ErrorCode = 502

	// Artifact errors (600-699)
	ErrCodeArtifactNotFound      ErrorCode = 600
	ErrCodeArtifactCorrupt       ErrorCode = 601
	ErrCodeArtifactWriteFailed   ErrorCode = 602
	ErrCodeArtifactVersionFailed ErrorCode = 603

	// Regressor errors (700-799)
	ErrCodeRegressorNotTrained  ErrorCode = 700
	ErrCodeRegressorFitFailed   ErrorCode = 701
	ErrCodeRegressorShapeFailed ErrorCode = 702
	ErrCodeUnknownRegressor     ErrorCode = 703

	// Backtest errors (800-899)
	ErrCodeBacktestFailed ErrorCode = 800
)
