package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/vladborsh/trading-tg-bot/cache"
	"github.com/vladborsh/trading-tg-bot/rate"
	"github.com/vladborsh/trading-tg-bot/shared"
)

const (
	// SpotBaseURL is the binance spot REST endpoint.
	SpotBaseURL = "https://api.binance.com/api/v3"
	// FuturesBaseURL is the binance USD-M futures REST endpoint.
	FuturesBaseURL = "https://fapi.binance.com/fapi/v1"

	// requestTimeout is the per-request timeout for venue calls.
	requestTimeout = time.Second * 30

	// candlesCacheTTL is the cache TTL for candle series.
	candlesCacheTTL = time.Second * 30
)

// BinanceConfig represents the configuration for the binance client.
type BinanceConfig struct {
	// BaseURL is the venue REST endpoint.
	BaseURL string
	// Futures toggles the USD-M futures market.
	Futures bool
	// Limiter is the shared venue rate limiter.
	Limiter *rate.Limiter
	// Retry is the retry executor for venue calls.
	Retry *RetryExecutor
	// Cache is an optional result cache. Nil bypasses caching.
	Cache *cache.TTLCache
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// BinanceClient represents the binance spot/futures market data client. It
// is safe for concurrent use.
type BinanceClient struct {
	cfg     *BinanceConfig
	httpc   http.Client
	healthy atomic.Bool
}

// Ensure the BinanceClient implements the MarketProvider interface.
var _ shared.MarketProvider = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new binance client.
func NewBinanceClient(cfg *BinanceConfig) *BinanceClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SpotBaseURL
		if cfg.Futures {
			cfg.BaseURL = FuturesBaseURL
		}
	}

	return &BinanceClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: requestTimeout},
	}
}

// Name returns the provider identifier.
func (c *BinanceClient) Name() string {
	if c.cfg.Futures {
		return "binance-futures"
	}

	return "binance"
}

// formURL creates full urls including parameters for the api.
func (c *BinanceClient) formURL(path string, params string) string {
	var sb strings.Builder
	sb.WriteString(c.cfg.BaseURL)
	sb.WriteString(path)
	if params != "" {
		sb.WriteString("?")
		sb.WriteString(params)
	}

	return sb.String()
}

// call performs a rate limited, retried GET against the venue.
func (c *BinanceClient) call(ctx context.Context, label string, formedURL string) ([]byte, error) {
	err := c.cfg.Limiter.WaitForSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for request slot: %w", err)
	}

	var body []byte
	err = c.cfg.Retry.Do(ctx, label, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}

		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s returned status %d", shared.ErrRateLimited, label, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%s returned status %d", label, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// Initialize verifies venue connectivity.
func (c *BinanceClient) Initialize(ctx context.Context) error {
	_, err := c.call(ctx, "ping", c.formURL("/ping", ""))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrProviderUnhealthy, err)
	}

	c.healthy.Store(true)

	return nil
}

// Disconnect releases client resources.
func (c *BinanceClient) Disconnect(_ context.Context) error {
	c.healthy.Store(false)
	c.httpc.CloseIdleConnections()

	return nil
}

// IsHealthy reports whether the client is initialized.
func (c *BinanceClient) IsHealthy() bool {
	return c.healthy.Load()
}

// ensureInitialized lazily initializes the client.
func (c *BinanceClient) ensureInitialized(ctx context.Context) error {
	if c.healthy.Load() {
		return nil
	}

	return c.Initialize(ctx)
}

// ParseCandles parses candles from the provided kline rows. Rows are
// consumed as [openTimeMs, open, high, low, close, volume, ...] and open and
// close times are aligned to the requested interval.
func ParseCandles(rows []gjson.Result, symbol string, interval shared.Interval) ([]shared.Candle, error) {
	candles := make([]shared.Candle, 0, len(rows))

	for idx := range rows {
		row := rows[idx].Array()
		if len(row) < 6 {
			return nil, fmt.Errorf("%w: kline row for %s has %d fields, want at least 6",
				shared.ErrInvalidCandleData, symbol, len(row))
		}

		openTime := shared.FloorToInterval(time.UnixMilli(row[0].Int()).UTC(), interval)

		candle := shared.Candle{
			Symbol:    symbol,
			OpenTime:  openTime,
			CloseTime: openTime.Add(interval.Duration() - time.Millisecond),
			Open:      row[1].Float(),
			High:      row[2].Float(),
			Low:       row[3].Float(),
			Close:     row[4].Float(),
			Volume:    row[5].Float(),
		}
		if len(row) > 8 {
			candle.Trades = row[8].Int()
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

// GetCandles fetches up to limit candles for the symbol, ordered ascending.
func (c *BinanceClient) GetCandles(ctx context.Context, symbol string, interval shared.Interval, limit int) ([]shared.Candle, error) {
	err := c.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("candles:%s:%s:%s:%d", c.Name(), symbol, interval, limit)
	if c.cfg.Cache != nil {
		if cached, ok := c.cfg.Cache.Get(cacheKey); ok {
			return cached.([]shared.Candle), nil
		}
	}

	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("interval", string(interval))
	params.Add("limit", fmt.Sprintf("%d", limit))

	body, err := c.call(ctx, fmt.Sprintf("klines %s", symbol), c.formURL("/klines", params.Encode()))
	if err != nil {
		return nil, err
	}

	candles, err := ParseCandles(gjson.ParseBytes(body).Array(), symbol, interval)
	if err != nil {
		return nil, err
	}

	if c.cfg.Cache != nil {
		c.cfg.Cache.SetTTL(cacheKey, candles, candlesCacheTTL)
	}

	return candles, nil
}

// GetMarketSnapshot fetches the current market state of the symbol.
func (c *BinanceClient) GetMarketSnapshot(ctx context.Context, symbol string) (*shared.MarketSnapshot, error) {
	ticker, err := c.GetTicker24h(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return &shared.MarketSnapshot{
		Symbol:           symbol,
		Price:            ticker.Last,
		Volume:           ticker.BaseVolume,
		Timestamp:        ticker.Timestamp,
		Change24h:        ticker.Change,
		ChangePercent24h: ticker.Percentage,
	}, nil
}

// GetTicker24h fetches aggregate 24-hour statistics for the symbol. Fields
// the venue does not supply are zero-filled.
func (c *BinanceClient) GetTicker24h(ctx context.Context, symbol string) (*shared.Ticker24h, error) {
	err := c.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("symbol", symbol)

	body, err := c.call(ctx, fmt.Sprintf("ticker24h %s", symbol), c.formURL("/ticker/24hr", params.Encode()))
	if err != nil {
		return nil, err
	}

	data := gjson.ParseBytes(body)
	if !data.Get("symbol").Exists() {
		return nil, errors.New("ticker response missing symbol")
	}

	ts := time.Now().UTC()
	if closeTime := data.Get("closeTime").Int(); closeTime > 0 {
		ts = time.UnixMilli(closeTime).UTC()
	}

	return &shared.Ticker24h{
		Symbol:      symbol,
		Last:        data.Get("lastPrice").Float(),
		Open:        data.Get("openPrice").Float(),
		High:        data.Get("highPrice").Float(),
		Low:         data.Get("lowPrice").Float(),
		Close:       data.Get("lastPrice").Float(),
		Bid:         data.Get("bidPrice").Float(),
		Ask:         data.Get("askPrice").Float(),
		VWAP:        data.Get("weightedAvgPrice").Float(),
		BaseVolume:  data.Get("volume").Float(),
		QuoteVolume: data.Get("quoteVolume").Float(),
		Change:      data.Get("priceChange").Float(),
		Percentage:  data.Get("priceChangePercent").Float(),
		Timestamp:   ts,
	}, nil
}
