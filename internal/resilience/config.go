package resilience

import (
	"time"
)

// Tuning carries the resilience knobs from application config in the flat
// units config files use (milliseconds, seconds, counts). Zero or negative
// fields fall back to the stage-call defaults.
type Tuning struct {
	MaxAttempts       int
	InitialBackoffMs  int
	MaxBackoffMs      int
	BackoffMultiplier float64
	JitterFraction    float64
	BreakerFailures   int
	BreakerResetSecs  int
}

// Retry builds the RetryConfig for a model stage call.
func (t Tuning) Retry() RetryConfig {
	cfg := DefaultRetryConfig()
	if t.MaxAttempts > 0 {
		cfg.MaxAttempts = t.MaxAttempts
	}
	if t.InitialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(t.InitialBackoffMs) * time.Millisecond
	}
	if t.MaxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(t.MaxBackoffMs) * time.Millisecond
	}
	if t.BackoffMultiplier > 0 {
		cfg.Multiplier = t.BackoffMultiplier
	}
	if t.JitterFraction > 0 {
		cfg.JitterFraction = t.JitterFraction
	}
	return cfg
}

// Breaker builds the CircuitBreakerConfig shared by all stages of a run.
func (t Tuning) Breaker() CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if t.BreakerFailures > 0 {
		cfg.FailureThreshold = t.BreakerFailures
	}
	if t.BreakerResetSecs > 0 {
		cfg.ResetTimeout = time.Duration(t.BreakerResetSecs) * time.Second
	}
	return cfg
}
