package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidInterval      ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInvalidThreshold     ErrorCode = 104
	ErrCodeMalformedTick        ErrorCode = 105
	ErrCodeMissingParameter     ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound         ErrorCode = 200
	ErrCodeQueryFailed          ErrorCode = 201
	ErrCodeHistoricalLoadFailed ErrorCode = 202
	ErrCodeInsufficientData     ErrorCode = 203

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Signal/rule errors (400-499)
	ErrCodeSignalNotFound      ErrorCode = 400
	ErrCodePredicateNotFound   ErrorCode = 401
	ErrCodeUnmappedSignalShape ErrorCode = 402
	ErrCodePredicatePanic      ErrorCode = 403

	// Scheduler errors (500-599)
	ErrCodeSchedulerStopped  ErrorCode = 500
	ErrCodeEvaluationFailed  ErrorCode = 501
	ErrCodeSignalStoreFailed ErrorCode = 502

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError ErrorCode = 600
	ErrCodeBacktestNoData      ErrorCode = 601

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeStreamClosed          ErrorCode = 702
	ErrCodeStreamStale           ErrorCode = 703
)
