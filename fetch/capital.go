package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/vladborsh/trading-tg-bot/cache"
	"github.com/vladborsh/trading-tg-bot/rate"
	"github.com/vladborsh/trading-tg-bot/shared"
)

const (
	// CapitalBaseURL is the capital.com REST endpoint.
	CapitalBaseURL = "https://api-capital.backend-capital.com/api/v1"
	// CapitalStreamURL is the capital.com streaming endpoint.
	CapitalStreamURL = "wss://api-streaming-capital.backend-capital.com/connect"

	// keepAliveInterval is the cadence of session keep-alive pings.
	keepAliveInterval = time.Minute * 9

	// Session token headers attached to authenticated requests.
	cstHeader      = "CST"
	securityHeader = "X-SECURITY-TOKEN"
	apiKeyHeader   = "X-CAP-API-KEY"
)

// capitalResolutions maps interval tags to capital.com chart resolutions.
var capitalResolutions = map[shared.Interval]string{
	shared.OneMinute:     "MINUTE",
	shared.FiveMinute:    "MINUTE_5",
	shared.FifteenMinute: "MINUTE_15",
	shared.ThirtyMinute:  "MINUTE_30",
	shared.OneHour:       "HOUR",
	shared.FourHour:      "HOUR_4",
	shared.OneDay:        "DAY",
	shared.OneWeek:       "WEEK",
}

// CapitalConfig represents the configuration for the capital.com client.
type CapitalConfig struct {
	// BaseURL is the broker REST endpoint.
	BaseURL string
	// StreamURL is the broker streaming endpoint.
	StreamURL string
	// APIKey is the broker API key.
	APIKey string
	// Identifier is the account identifier used for the session handshake.
	Identifier string
	// Password is the account password used for the session handshake.
	Password string
	// Limiter is the shared venue rate limiter.
	Limiter *rate.Limiter
	// Retry is the retry executor for venue calls.
	Retry *RetryExecutor
	// Cache is an optional result cache. Nil bypasses caching.
	Cache *cache.TTLCache
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// CapitalClient represents the capital.com CFD broker market data client.
// The broker requires a session handshake (encryption key fetch followed by
// a credentialed session create) that yields two session tokens attached to
// all subsequent requests, and a streaming channel kept alive with periodic
// pings.
type CapitalClient struct {
	cfg   *CapitalConfig
	httpc http.Client

	mtx           sync.RWMutex
	encryptionKey string
	cst           string
	securityToken string

	streamConn *websocket.Conn
	stopPinger chan struct{}
	pingerDone chan struct{}
}

// Ensure the CapitalClient implements the MarketProvider interface.
var _ shared.MarketProvider = (*CapitalClient)(nil)

// NewCapitalClient instantiates a new capital.com client.
func NewCapitalClient(cfg *CapitalConfig) *CapitalClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = CapitalBaseURL
	}
	if cfg.StreamURL == "" {
		cfg.StreamURL = CapitalStreamURL
	}

	return &CapitalClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: requestTimeout},
	}
}

// Name returns the provider identifier.
func (c *CapitalClient) Name() string {
	return "capital"
}

// sessionTokens returns the current session tokens.
func (c *CapitalClient) sessionTokens() (string, string) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	return c.cst, c.securityToken
}

// call performs a rate limited, retried request against the broker with the
// session tokens attached.
func (c *CapitalClient) call(ctx context.Context, label string, method string, formedURL string, payload string) ([]byte, http.Header, error) {
	err := c.cfg.Limiter.WaitForSlot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("waiting for request slot: %w", err)
	}

	var body []byte
	var header http.Header
	err = c.cfg.Retry.Do(ctx, label, func(ctx context.Context) error {
		var reader io.Reader
		if payload != "" {
			reader = strings.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, formedURL, reader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set(apiKeyHeader, c.cfg.APIKey)
		if payload != "" {
			req.Header.Set("Content-Type", "application/json")
		}

		cst, securityToken := c.sessionTokens()
		if cst != "" {
			req.Header.Set(cstHeader, cst)
			req.Header.Set(securityHeader, securityToken)
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

		header = resp.Header

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return body, header, nil
}

// Initialize performs the broker session handshake and opens the keep-alive
// streaming channel.
func (c *CapitalClient) Initialize(ctx context.Context) error {
	// Fetch the session encryption key.
	body, _, err := c.call(ctx, "session encryption key", http.MethodGet,
		c.cfg.BaseURL+"/session/encryptionKey", "")
	if err != nil {
		return fmt.Errorf("%w: fetching encryption key: %v", shared.ErrProviderUnhealthy, err)
	}

	encryptionKey := gjson.GetBytes(body, "encryptionKey").String()

	// Create a credentialed session. The broker returns both session tokens
	// as response headers.
	payload := fmt.Sprintf(`{"identifier":%q,"password":%q}`, c.cfg.Identifier, c.cfg.Password)
	_, header, err := c.call(ctx, "session create", http.MethodPost, c.cfg.BaseURL+"/session", payload)
	if err != nil {
		return fmt.Errorf("%w: creating session: %v", shared.ErrProviderUnhealthy, err)
	}

	cst := header.Get(cstHeader)
	securityToken := header.Get(securityHeader)
	if cst == "" || securityToken == "" {
		return fmt.Errorf("%w: session response missing tokens", shared.ErrProviderUnhealthy)
	}

	c.mtx.Lock()
	c.encryptionKey = encryptionKey
	c.cst = cst
	c.securityToken = securityToken
	c.mtx.Unlock()

	err = c.openStream()
	if err != nil {
		return fmt.Errorf("%w: opening stream: %v", shared.ErrProviderUnhealthy, err)
	}

	return nil
}

// openStream opens the streaming channel and starts the keep-alive pinger.
func (c *CapitalClient) openStream() error {
	conn, resp, err := websocket.DefaultDialer.Dial(c.cfg.StreamURL, nil)
	if err != nil {
		return fmt.Errorf("dialing stream: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	c.mtx.Lock()
	c.streamConn = conn
	c.stopPinger = stop
	c.pingerDone = done
	c.mtx.Unlock()

	go c.keepAlive(conn, stop, done)

	return nil
}

// keepAlive pings the streaming channel on the keep-alive cadence until
// stopped.
func (c *CapitalClient) keepAlive(conn *websocket.Conn, stop chan struct{}, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cst, securityToken := c.sessionTokens()
			ping := map[string]interface{}{
				"destination":   "ping",
				"correlationId": fmt.Sprintf("%d", time.Now().UnixMilli()),
				"cst":           cst,
				"securityToken": securityToken,
			}

			err := conn.WriteJSON(ping)
			if err != nil {
				c.cfg.Logger.Error().Msgf("pinging broker stream: %v", err)
			}
		}
	}
}

// Disconnect closes the broker session, the streaming channel and the
// keep-alive pinger.
func (c *CapitalClient) Disconnect(ctx context.Context) error {
	c.mtx.RLock()
	conn := c.streamConn
	stop := c.stopPinger
	done := c.pingerDone
	c.mtx.RUnlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if conn != nil {
		conn.Close()
	}

	cst, _ := c.sessionTokens()
	if cst != "" {
		_, _, err := c.call(ctx, "session close", http.MethodDelete, c.cfg.BaseURL+"/session", "")
		if err != nil {
			c.cfg.Logger.Error().Msgf("closing broker session: %v", err)
		}
	}

	c.mtx.Lock()
	c.streamConn = nil
	c.stopPinger = nil
	c.pingerDone = nil
	c.cst = ""
	c.securityToken = ""
	c.mtx.Unlock()

	return nil
}

// IsHealthy reports whether the broker session is established.
func (c *CapitalClient) IsHealthy() bool {
	cst, securityToken := c.sessionTokens()

	return cst != "" && securityToken != ""
}

// ensureInitialized lazily performs the session handshake.
func (c *CapitalClient) ensureInitialized(ctx context.Context) error {
	if c.IsHealthy() {
		return nil
	}

	return c.Initialize(ctx)
}

// parsePrices parses candles from the provided broker price rows. Open and
// close times are aligned to the requested interval and bid/offer quotes are
// collapsed to their midpoint.
func parsePrices(rows []gjson.Result, symbol string, interval shared.Interval) ([]shared.Candle, error) {
	candles := make([]shared.Candle, 0, len(rows))

	for idx := range rows {
		snapshotTime := rows[idx].Get("snapshotTimeUTC").String()
		ts, err := time.Parse("2006-01-02T15:04:05", snapshotTime)
		if err != nil {
			return nil, fmt.Errorf("parsing price snapshot time %q: %w", snapshotTime, err)
		}

		openTime := shared.FloorToInterval(ts.UTC(), interval)

		candle := shared.Candle{
			Symbol:    symbol,
			OpenTime:  openTime,
			CloseTime: openTime.Add(interval.Duration() - time.Millisecond),
			Open:      midQuote(rows[idx].Get("openPrice")),
			High:      midQuote(rows[idx].Get("highPrice")),
			Low:       midQuote(rows[idx].Get("lowPrice")),
			Close:     midQuote(rows[idx].Get("closePrice")),
			Volume:    rows[idx].Get("lastTradedVolume").Float(),
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

// midQuote returns the bid/ask midpoint of the provided quote, falling back
// to whichever side is present.
func midQuote(quote gjson.Result) float64 {
	bid := quote.Get("bid").Float()
	ask := quote.Get("ask").Float()

	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2
	case bid > 0:
		return bid
	default:
		return ask
	}
}

// GetCandles fetches up to limit candles for the symbol, ordered ascending.
func (c *CapitalClient) GetCandles(ctx context.Context, symbol string, interval shared.Interval, limit int) ([]shared.Candle, error) {
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

	resolution, ok := capitalResolutions[interval]
	if !ok {
		resolution = capitalResolutions[shared.OneMinute]
	}

	params := url.Values{}
	params.Add("resolution", resolution)
	params.Add("max", fmt.Sprintf("%d", limit))

	formedURL := fmt.Sprintf("%s/prices/%s?%s", c.cfg.BaseURL, symbol, params.Encode())
	body, _, err := c.call(ctx, fmt.Sprintf("prices %s", symbol), http.MethodGet, formedURL, "")
	if err != nil {
		return nil, err
	}

	candles, err := parsePrices(gjson.GetBytes(body, "prices").Array(), symbol, interval)
	if err != nil {
		return nil, err
	}

	if c.cfg.Cache != nil {
		c.cfg.Cache.SetTTL(cacheKey, candles, candlesCacheTTL)
	}

	return candles, nil
}

// GetMarketSnapshot fetches the current market state of the symbol.
func (c *CapitalClient) GetMarketSnapshot(ctx context.Context, symbol string) (*shared.MarketSnapshot, error) {
	err := c.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	body, _, err := c.call(ctx, fmt.Sprintf("market %s", symbol), http.MethodGet,
		c.cfg.BaseURL+"/markets/"+symbol, "")
	if err != nil {
		return nil, err
	}

	snapshot := gjson.GetBytes(body, "snapshot")
	bid := snapshot.Get("bid").Float()
	offer := snapshot.Get("offer").Float()

	price := bid
	if bid > 0 && offer > 0 {
		price = (bid + offer) / 2
	}

	return &shared.MarketSnapshot{
		Symbol:           symbol,
		Price:            price,
		Timestamp:        time.Now().UTC(),
		Change24h:        snapshot.Get("netChange").Float(),
		ChangePercent24h: snapshot.Get("percentageChange").Float(),
	}, nil
}

// GetTicker24h fetches aggregate 24-hour statistics for the symbol. Fields
// the broker does not supply are zero-filled.
func (c *CapitalClient) GetTicker24h(ctx context.Context, symbol string) (*shared.Ticker24h, error) {
	err := c.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	body, _, err := c.call(ctx, fmt.Sprintf("market %s", symbol), http.MethodGet,
		c.cfg.BaseURL+"/markets/"+symbol, "")
	if err != nil {
		return nil, err
	}

	snapshot := gjson.GetBytes(body, "snapshot")
	bid := snapshot.Get("bid").Float()
	offer := snapshot.Get("offer").Float()

	last := bid
	if bid > 0 && offer > 0 {
		last = (bid + offer) / 2
	}

	return &shared.Ticker24h{
		Symbol:     symbol,
		Last:       last,
		High:       snapshot.Get("high").Float(),
		Low:        snapshot.Get("low").Float(),
		Bid:        bid,
		Ask:        offer,
		Change:     snapshot.Get("netChange").Float(),
		Percentage: snapshot.Get("percentageChange").Float(),
		Timestamp:  time.Now().UTC(),
	}, nil
}
