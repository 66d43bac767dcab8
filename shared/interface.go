package shared

import "context"

// MarketProvider defines the requirements for fetching market data from a
// venue. Implementations serialize network calls through a shared rate
// limiter and a retry executor.
type MarketProvider interface {
	// Name returns the provider identifier.
	Name() string
	// Initialize opens sessions, loads symbol metadata and verifies
	// connectivity. It may be called lazily by other methods.
	Initialize(ctx context.Context) error
	// Disconnect releases sessions, sockets and tokens.
	Disconnect(ctx context.Context) error
	// IsHealthy reports whether the provider is initialized and reachable.
	IsHealthy() bool
	// GetMarketSnapshot fetches the current market state of a symbol.
	GetMarketSnapshot(ctx context.Context, symbol string) (*MarketSnapshot, error)
	// GetCandles fetches up to limit candles for a symbol, ordered ascending
	// by open time.
	GetCandles(ctx context.Context, symbol string, interval Interval, limit int) ([]Candle, error)
	// GetTicker24h fetches aggregate 24-hour statistics for a symbol.
	GetTicker24h(ctx context.Context, symbol string) (*Ticker24h, error)
}
