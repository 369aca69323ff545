package transfer

// RetryPolicy bounds how many times a failed read is re-issued before the
// failure becomes terminal. Writes are never retried by the engine.
type RetryPolicy struct {
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

var (
	// NoRetry makes the first failure terminal.
	NoRetry = RetryPolicy{}

	// RetryOnce re-issues a failed request exactly once.
	RetryOnce = RetryPolicy{MaxRetries: 1}
)

// Allows reports whether a request that failed on attempt (0-based) may be
// issued again.
func (p RetryPolicy) Allows(attempt int) bool {
	return attempt < p.MaxRetries
}
