package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a strategy or component configuration failed
	// validation. Not retryable.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEmptyPeriod indicates a period filter yielded no candles.
	ErrEmptyPeriod = errors.New("no candles in period")
	// ErrInvalidCandleData indicates candle data violated OHLC invariants.
	ErrInvalidCandleData = errors.New("invalid candle data")
	// ErrProviderUnhealthy indicates a provider failed initialization or a
	// health check.
	ErrProviderUnhealthy = errors.New("provider unhealthy")
	// ErrRateLimited indicates a request was rejected by the venue rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// FetchError represents a market data fetch failure for a symbol after
// retries were exhausted.
type FetchError struct {
	Symbol string
	Err    error
}

// Error satisfies the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching market data for %s: %v", e.Symbol, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ReferenceError represents a reference level computation failure for a
// symbol during a strategy run.
type ReferenceError struct {
	Symbol string
	Err    error
}

// Error satisfies the error interface.
func (e *ReferenceError) Error() string {
	return fmt.Sprintf("computing reference level for %s: %v", e.Symbol, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ReferenceError) Unwrap() error {
	return e.Err
}
