package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/vladborsh/trading-tg-bot/cache"
	"github.com/vladborsh/trading-tg-bot/rate"
	"github.com/vladborsh/trading-tg-bot/shared"
	"golang.org/x/sync/errgroup"
)

func TestParseCandles(t *testing.T) {
	// Two five minute klines, the second with an off-grid open time.
	rows := gjson.Parse(`[
		[1715774400000,"1.1000","1.1050","1.0990","1.1020","123.4",1715774699999,"0",42],
		[1715774701000,"1.1020","1.1040","1.1000","1.1010","98.7",1715774999999,"0",17]
	]`).Array()

	candles, err := ParseCandles(rows, "EURUSDT", shared.FiveMinute)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(candles))

	// Ensure prices, volume and trades parse.
	first := candles[0]
	assert.Equal(t, "EURUSDT", first.Symbol)
	assert.Equal(t, 1.1000, first.Open)
	assert.Equal(t, 1.1050, first.High)
	assert.Equal(t, 1.0990, first.Low)
	assert.Equal(t, 1.1020, first.Close)
	assert.Equal(t, 123.4, first.Volume)
	assert.Equal(t, int64(42), first.Trades)

	// Ensure open times align to the interval grid and close times end one
	// millisecond before the next window.
	assert.Equal(t, int64(1715774400000), first.OpenTime.UnixMilli())
	assert.Equal(t, int64(1715774699999), first.CloseTime.UnixMilli())

	second := candles[1]
	assert.Equal(t, int64(1715774700000), second.OpenTime.UnixMilli())
	assert.Equal(t, int64(1715774999999), second.CloseTime.UnixMilli())

	// Ensure short rows error.
	short := gjson.Parse(`[[1715774400000,"1.1","1.2"]]`).Array()
	_, err = ParseCandles(short, "EURUSDT", shared.FiveMinute)
	assert.Error(t, err)
}

// newBinanceTestClient returns a binance client wired against the provided
// test server.
func newBinanceTestClient(serverURL string, resultCache *cache.TTLCache) *BinanceClient {
	logger := zerolog.Nop()

	return NewBinanceClient(&BinanceConfig{
		BaseURL: serverURL,
		Limiter: rate.NewLimiter(&rate.LimiterConfig{Logger: &logger}),
		Retry:   NewRetryExecutor(&RetryConfig{Attempts: 2, Delay: time.Millisecond, Logger: &logger}),
		Cache:   resultCache,
		Logger:  &logger,
	})
}

func TestBinanceGetCandles(t *testing.T) {
	var klineHits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			fmt.Fprint(w, `{}`)
		case "/klines":
			klineHits.Add(1)
			check.Equal(t, "EURUSDT", r.URL.Query().Get("symbol"))
			check.Equal(t, "5m", r.URL.Query().Get("interval"))
			check.Equal(t, "2", r.URL.Query().Get("limit"))
			fmt.Fprint(w, `[
				[1715774400000,"1.1000","1.1050","1.0990","1.1020","123.4",1715774699999,"0",42],
				[1715774700000,"1.1020","1.1040","1.1000","1.1010","98.7",1715774999999,"0",17]
			]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	resultCache := cache.New(&cache.Config{})
	defer resultCache.Stop()

	client := newBinanceTestClient(server.URL, resultCache)
	ctx := context.Background()

	// Ensure the lazily initialized client fetches and parses candles.
	candles, err := client.GetCandles(ctx, "EURUSDT", shared.FiveMinute, 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(candles))
	assert.Equal(t, 1.1020, candles[0].Close)
	assert.True(t, client.IsHealthy())

	// Ensure a repeated fetch is served from the cache.
	_, err = client.GetCandles(ctx, "EURUSDT", shared.FiveMinute, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), klineHits.Load())
}

func TestBinanceGetTicker24h(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			fmt.Fprint(w, `{}`)
		case "/ticker/24hr":
			fmt.Fprint(w, `{"symbol":"BTCUSDT","lastPrice":"65000.5","openPrice":"64000",
				"highPrice":"66000","lowPrice":"63500","bidPrice":"65000","askPrice":"65001",
				"weightedAvgPrice":"64800","volume":"1200.5","quoteVolume":"77760000",
				"priceChange":"1000.5","priceChangePercent":"1.56","closeTime":1715774400000}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newBinanceTestClient(server.URL, nil)
	ctx := context.Background()

	// Ensure ticker fields parse with the venue supplied close time.
	ticker, err := client.GetTicker24h(ctx, "BTCUSDT")
	assert.NoError(t, err)
	assert.Equal(t, 65000.5, ticker.Last)
	assert.Equal(t, 64000.0, ticker.Open)
	assert.Equal(t, 65000.0, ticker.Bid)
	assert.Equal(t, 65001.0, ticker.Ask)
	assert.Equal(t, int64(1715774400000), ticker.Timestamp.UnixMilli())

	// Ensure the snapshot derives from the ticker.
	snapshot, err := client.GetMarketSnapshot(ctx, "BTCUSDT")
	assert.NoError(t, err)
	assert.Equal(t, 65000.5, snapshot.Price)
	assert.Equal(t, 1.56, snapshot.ChangePercent24h)
}

func TestBinanceRateLimitRejection(t *testing.T) {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newBinanceTestClient(server.URL, nil)

	// Ensure a persistent venue rate limit rejection is retried and still
	// surfaces once attempts are exhausted.
	err := client.Initialize(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int64(2), hits.Load())
	assert.False(t, client.IsHealthy())
}

func TestBinanceConcurrentFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			fmt.Fprint(w, `{}`)
		case "/klines":
			if r.URL.Query().Get("symbol") == "" || r.URL.Query().Get("interval") != "5m" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `[
				[1715774400000,"1.1000","1.1050","1.0990","1.1020","123.4",1715774699999,"0",42],
				[1715774700000,"1.1020","1.1040","1.1000","1.1010","98.7",1715774999999,"0",17]
			]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newBinanceTestClient(server.URL, nil)
	ctx := context.Background()

	// Ensure fan-out fetches across a correlated group share the client
	// without corrupting request URLs.
	symbols := []string{"EURUSDT", "GBPUSDT", "USDJPY", "AUDUSD"}

	group, gctx := errgroup.WithContext(ctx)
	for idx := range symbols {
		symbol := symbols[idx]
		group.Go(func() error {
			for i := 0; i < 25; i++ {
				candles, err := client.GetCandles(gctx, symbol, shared.FiveMinute, 2)
				if err != nil {
					return err
				}
				if len(candles) != 2 || candles[0].Symbol != symbol {
					return fmt.Errorf("unexpected candles for %s", symbol)
				}
			}
			return nil
		})
	}

	assert.NoError(t, group.Wait())
}
