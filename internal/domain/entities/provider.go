package entities

// ProviderDescriptor is the static configuration of one text-generation
// backend. Lower Priority numbers are tried first.
type ProviderDescriptor struct {
	ID                       string `json:"id"`
	Model                    string `json:"model"`
	DailyLimit               int    `json:"daily_limit"`
	RateLimitPerMinute       int    `json:"rate_limit_per_minute"`
	SupportsStructuredOutput bool   `json:"supports_structured_output"`
	Priority                 int    `json:"priority"`
}

// ProgressEvent reports pipeline progress keyed by processing stage.
// Percent is monotonically increasing within a stage.
type ProgressEvent struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
}

// ProgressFunc receives progress events; implementations must be cheap
// and must not block.
type ProgressFunc func(ProgressEvent)
