package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/vladborsh/trading-tg-bot/cache"
	"github.com/vladborsh/trading-tg-bot/fetch"
	"github.com/vladborsh/trading-tg-bot/rate"
	"github.com/vladborsh/trading-tg-bot/shared"
	"github.com/vladborsh/trading-tg-bot/strategy"
)

const (
	// Supported venue names.
	VenueBinance        = "binance"
	VenueBinanceFutures = "binance-futures"
	VenueCapital        = "capital"

	// defaultCadence is the default strategy run cadence.
	defaultCadence = time.Minute * 5
)

// MonitorConfig represents the configuration struct for the monitor service.
type MonitorConfig struct {
	// Venue selects the market data provider.
	Venue string
	// CapitalAPIKey is the capital.com API key.
	CapitalAPIKey string
	// CapitalIdentifier is the capital.com account identifier.
	CapitalIdentifier string
	// CapitalPassword is the capital.com account password.
	CapitalPassword string
	// Strategies are the correlation crack configurations evaluated each run.
	Strategies []*strategy.CrackConfig
	// Cadence is the strategy run cadence.
	Cadence time.Duration
	// Notify delivers emitted signals downstream.
	Notify func(signal shared.Signal)
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *MonitorConfig) Validate() error {
	var errs error

	switch cfg.Venue {
	case VenueBinance, VenueBinanceFutures:
		// no credentials required for market data.
	case VenueCapital:
		if cfg.CapitalAPIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("capital api key cannot be an empty string"))
		}
		if cfg.CapitalIdentifier == "" {
			errs = errors.Join(errs, fmt.Errorf("capital identifier cannot be an empty string"))
		}
		if cfg.CapitalPassword == "" {
			errs = errors.Join(errs, fmt.Errorf("capital password cannot be an empty string"))
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown venue %q", cfg.Venue))
	}

	if len(cfg.Strategies) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no strategies provided for monitor service"))
	}
	if cfg.Notify == nil {
		errs = errors.Join(errs, fmt.Errorf("notify function cannot be nil"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Monitor represents a correlation crack monitoring service. It owns the
// rate limiter, cache, provider and strategy engine, and drives scheduled
// strategy runs.
type Monitor struct {
	cfg      *MonitorConfig
	limiter  *rate.Limiter
	cache    *cache.TTLCache
	provider shared.MarketProvider
	crack    *strategy.CrackStrategy
	logger   *zerolog.Logger
}

// NewMonitor initializes a new monitor service.
func NewMonitor(cfg *MonitorConfig) (*Monitor, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating monitor config: %w", err)
	}

	if cfg.Cadence <= 0 {
		cfg.Cadence = defaultCadence
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "monitor").Logger()

	limiterLogger := logger.With().Str("component", "ratelimiter").Logger()
	limiter := rate.NewLimiter(&rate.LimiterConfig{Logger: &limiterLogger})

	resultCache := cache.New(&cache.Config{})

	retryLogger := logger.With().Str("component", "retry").Logger()
	retry := fetch.NewRetryExecutor(&fetch.RetryConfig{Logger: &retryLogger})

	var provider shared.MarketProvider
	providerLogger := logger.With().Str("component", cfg.Venue).Logger()
	switch cfg.Venue {
	case VenueBinance, VenueBinanceFutures:
		provider = fetch.NewBinanceClient(&fetch.BinanceConfig{
			Futures: cfg.Venue == VenueBinanceFutures,
			Limiter: limiter,
			Retry:   retry,
			Cache:   resultCache,
			Logger:  &providerLogger,
		})
	case VenueCapital:
		provider = fetch.NewCapitalClient(&fetch.CapitalConfig{
			APIKey:     cfg.CapitalAPIKey,
			Identifier: cfg.CapitalIdentifier,
			Password:   cfg.CapitalPassword,
			Limiter:    limiter,
			Retry:      retry,
			Cache:      resultCache,
			Logger:     &providerLogger,
		})
	}

	crackLogger := logger.With().Str("component", "crackstrategy").Logger()
	crack := strategy.NewCrackStrategy(&strategy.CrackStrategyConfig{
		Provider:   provider,
		SendSignal: cfg.Notify,
		Logger:     &crackLogger,
	})

	return &Monitor{
		cfg:      cfg,
		limiter:  limiter,
		cache:    resultCache,
		provider: provider,
		crack:    crack,
		logger:   &logger,
	}, nil
}

// runStrategies evaluates all configured strategies once.
func (m *Monitor) runStrategies(ctx context.Context) {
	for idx := range m.cfg.Strategies {
		cfg := m.cfg.Strategies[idx]
		result := m.crack.Run(ctx, cfg)

		switch {
		case !result.Success:
			m.logger.Error().Msgf("strategy run for %v failed: %s", cfg.PrimaryAssets, result.Error)
		case result.Signal == nil:
			m.logger.Debug().Msgf("strategy run for %v produced no signal", cfg.PrimaryAssets)
		default:
			m.logger.Info().Msgf("correlation crack on %s (%s), confidence %.2f",
				result.Signal.TriggerAsset, result.Signal.Direction, result.Signal.Confidence)
		}
	}
}

// Run handles the lifecycle processes of the monitor service.
func (m *Monitor) Run(ctx context.Context) error {
	err := m.provider.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initializing %s provider: %w", m.provider.Name(), err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating job scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(m.cfg.Cadence),
		gocron.NewTask(func() { m.runStrategies(ctx) }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduling strategy runs: %w", err)
	}

	scheduler.Start()

	<-ctx.Done()

	err = scheduler.Shutdown()
	if err != nil {
		m.logger.Error().Msgf("shutting down job scheduler: %v", err)
	}

	m.cache.Stop()

	disconnectCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	err = m.provider.Disconnect(disconnectCtx)
	if err != nil {
		m.logger.Error().Msgf("disconnecting %s provider: %v", m.provider.Name(), err)
	}

	return nil
}
