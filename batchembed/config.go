package batchembed

import "time"

// Config holds configuration for a batch embedding run.
type Config struct {
	// BatchSize is the number of chunks to embed in each remote call
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxAttempts is the maximum number of attempts for each embedding call
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// BackoffFactor is the delay multiplier applied after each failure
	BackoffFactor float64

	// CheckpointEvery is the number of processed chunks between checkpoint
	// writes. Lower values resume closer to the interruption point at the
	// cost of more writes.
	CheckpointEvery int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:       30,
		ReportInterval:  100,
		MaxAttempts:     3,
		RetryDelay:      1 * time.Second,
		BackoffFactor:   2.0,
		CheckpointEvery: 100,
	}
}
