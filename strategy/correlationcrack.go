package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vladborsh/trading-tg-bot/indicator"
	"github.com/vladborsh/trading-tg-bot/shared"
	"golang.org/x/sync/errgroup"
)

const (
	// minPrimaryAssets is the minimum size of a correlated group.
	minPrimaryAssets = 2
	// maxPrimaryAssets is the maximum size of a correlated group.
	maxPrimaryAssets = 4
	// defaultMinCorrelatedAssets is the default number of assets that must
	// hold their level for a signal to fire.
	defaultMinCorrelatedAssets = 1
	// defaultCandlesLimit is the default number of candles fetched per asset.
	defaultCandlesLimit = 100

	// invalidConfigMessage is the result error for rejected configurations.
	invalidConfigMessage = "Invalid configuration"
)

// Confidence score coefficients. Tuning them is a host concern.
const (
	ConfidenceBase           = 0.5
	ConfidencePerHeldAsset   = 0.1
	ConfidenceDistanceWeight = 2.0
	ConfidenceDistanceCap    = 0.3
)

// CrackConfig represents the configuration of a correlation crack strategy
// run over a small group of correlated instruments.
type CrackConfig struct {
	// PrimaryAssets is the correlated group, between two and four symbols.
	PrimaryAssets []string
	// Period is the reference window for high/low levels.
	Period *shared.PeriodSpec
	// Direction is the crossing direction being watched.
	Direction shared.Direction
	// UseBodyHighLow toggles body extremes for the reference levels.
	UseBodyHighLow bool
	// Timezone is the fallback timezone for period resolution.
	Timezone string
	// MinCorrelatedAssets is the number of assets that must hold their level.
	MinCorrelatedAssets int
	// MarketDataInterval is the candle interval fetched per asset.
	MarketDataInterval shared.Interval
	// CandlesLimit is the number of candles fetched per asset.
	CandlesLimit int
	// CrossDetectionLookback is the number of recent candles scanned for a
	// crossing.
	CrossDetectionLookback int
}

// Validate asserts the strategy config has sane inputs.
func (cfg *CrackConfig) Validate() error {
	var errs error

	if len(cfg.PrimaryAssets) < minPrimaryAssets || len(cfg.PrimaryAssets) > maxPrimaryAssets {
		errs = errors.Join(errs, fmt.Errorf("primary assets count %d out of range [%d,%d]",
			len(cfg.PrimaryAssets), minPrimaryAssets, maxPrimaryAssets))
	}
	if cfg.Period == nil {
		errs = errors.Join(errs, fmt.Errorf("period cannot be nil"))
	} else if err := cfg.Period.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.Direction != shared.CrossOver && cfg.Direction != shared.CrossUnder {
		errs = errors.Join(errs, fmt.Errorf("unknown direction %d", cfg.Direction))
	}

	return errs
}

// applyDefaults fills unset optional config fields.
func (cfg *CrackConfig) applyDefaults() {
	if cfg.MinCorrelatedAssets <= 0 {
		cfg.MinCorrelatedAssets = defaultMinCorrelatedAssets
	}
	if cfg.MarketDataInterval == "" {
		cfg.MarketDataInterval = shared.FiveMinute
	}
	if cfg.CandlesLimit <= 0 {
		cfg.CandlesLimit = defaultCandlesLimit
	}
	if cfg.CrossDetectionLookback <= 0 {
		cfg.CrossDetectionLookback = indicator.DefaultCrossLookback
	}
}

// RunResult represents the outcome of a strategy run.
type RunResult struct {
	// Success reports whether the run completed without error. A run with no
	// signal is still successful.
	Success bool
	// Error carries the failure message of an unsuccessful run.
	Error string
	// Signal is the emitted signal, nil when the pattern did not fire.
	Signal *shared.Signal
	// Conditions are the evaluated per-asset level conditions.
	Conditions []shared.AssetCondition
	// ReferenceLevels are the per-asset reference levels.
	ReferenceLevels map[string]float64
}

// CrackStrategyConfig represents the configuration for the correlation crack
// strategy engine.
type CrackStrategyConfig struct {
	// Provider represents the market data provider.
	Provider shared.MarketProvider
	// SendSignal relays an emitted signal for delivery.
	SendSignal func(signal shared.Signal)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// CrackStrategy detects the correlation crack pattern, exactly one
// instrument of a correlated group breaking its reference level while all
// the others hold theirs.
type CrackStrategy struct {
	cfg   *CrackStrategyConfig
	state stateTracker
}

// NewCrackStrategy initializes a new correlation crack strategy engine.
func NewCrackStrategy(cfg *CrackStrategyConfig) *CrackStrategy {
	return &CrackStrategy{cfg: cfg}
}

// State returns the current run state.
func (s *CrackStrategy) State() RunState {
	return s.state.current()
}

// fail records a failed run and returns its result.
func (s *CrackStrategy) fail(message string) *RunResult {
	s.state.set(Failed)
	s.state.set(Idle)

	return &RunResult{Success: false, Error: message}
}

// Run executes a single strategy evaluation: fan-out fetch across the
// group, per-asset reference level, cross detection and the pattern
// decision. A run never produces a partial signal.
func (s *CrackStrategy) Run(ctx context.Context, cfg *CrackConfig) *RunResult {
	s.state.set(Validating)
	if err := cfg.Validate(); err != nil {
		s.cfg.Logger.Error().Msgf("invalid strategy configuration: %v", err)
		return s.fail(invalidConfigMessage)
	}

	cfg.applyDefaults()

	// Fetch one candle series per asset concurrently. The first failure
	// aborts the remaining fetches.
	s.state.set(Fetching)
	var seriesMtx sync.Mutex
	series := make(map[string][]shared.Candle, len(cfg.PrimaryAssets))

	group, gctx := errgroup.WithContext(ctx)
	for idx := range cfg.PrimaryAssets {
		asset := cfg.PrimaryAssets[idx]
		group.Go(func() error {
			candles, err := s.cfg.Provider.GetCandles(gctx, asset, cfg.MarketDataInterval, cfg.CandlesLimit)
			if err != nil {
				return &shared.FetchError{Symbol: asset, Err: err}
			}

			seriesMtx.Lock()
			series[asset] = candles
			seriesMtx.Unlock()

			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.cfg.Logger.Error().Msgf("strategy fetch failed: %v", err)
		return s.fail(err.Error())
	}

	// Compute the per-asset reference levels.
	s.state.set(Computing)
	now := time.Now().UTC()
	referenceLevels := make(map[string]float64, len(cfg.PrimaryAssets))
	for _, asset := range cfg.PrimaryAssets {
		highLow, err := indicator.CalculateHighLow(series[asset], &indicator.HighLowConfig{
			Symbol:         asset,
			Period:         cfg.Period,
			UseBodyHighLow: cfg.UseBodyHighLow,
			Timezone:       cfg.Timezone,
		}, now)
		if err != nil {
			refErr := &shared.ReferenceError{Symbol: asset, Err: err}
			s.cfg.Logger.Error().Msgf("strategy reference computation failed: %v", refErr)
			return s.fail(refErr.Error())
		}

		// A cross under breaks the high of the window, a cross over breaks
		// its low.
		if cfg.Direction == shared.CrossUnder {
			referenceLevels[asset] = highLow.High
		} else {
			referenceLevels[asset] = highLow.Low
		}
	}

	// Evaluate each asset against its reference level.
	s.state.set(Detecting)
	conditions := make([]shared.AssetCondition, 0, len(cfg.PrimaryAssets))
	for _, asset := range cfg.PrimaryAssets {
		candles := series[asset]
		cross := indicator.DetectCross(candles, referenceLevels[asset], cfg.Direction, cfg.CrossDetectionLookback)

		condition := shared.AssetCondition{
			Symbol:         asset,
			HasCrossed:     cross.Crossed,
			ReferenceLevel: referenceLevels[asset],
		}
		if len(candles) > 0 {
			condition.CurrentPrice = candles[len(candles)-1].Close
		}
		if cross.Crossed {
			condition.CrossDirection = cross.Direction
			condition.CrossTime = cross.CrossTime
		}

		conditions = append(conditions, condition)
	}

	// The pattern fires iff exactly one asset crossed while enough of the
	// others held.
	s.state.set(Deciding)
	var crossed, held []shared.AssetCondition
	for idx := range conditions {
		if conditions[idx].HasCrossed {
			crossed = append(crossed, conditions[idx])
		} else {
			held = append(held, conditions[idx])
		}
	}

	result := &RunResult{
		Success:         true,
		Conditions:      conditions,
		ReferenceLevels: referenceLevels,
	}

	if len(crossed) != 1 || len(held) < cfg.MinCorrelatedAssets {
		s.state.set(Quiet)
		s.state.set(Idle)
		return result
	}

	trigger := crossed[0]
	heldSymbols := make([]string, 0, len(held))
	for idx := range held {
		heldSymbols = append(heldSymbols, held[idx].Symbol)
	}

	signal := shared.NewSignal(trigger.Symbol, cfg.Direction, heldSymbols, trigger.ReferenceLevel,
		Confidence(held), conditions, time.Now().UTC())
	result.Signal = &signal

	s.state.set(Signalling)
	if s.cfg.SendSignal != nil {
		s.cfg.SendSignal(signal)
	}
	s.state.set(Idle)

	return result
}

// Confidence scores a fired signal from the number of holding assets and
// their average relative distance to the reference level, clamped to [0,1].
func Confidence(held []shared.AssetCondition) float64 {
	if len(held) == 0 {
		return 0
	}

	var totalDistance float64
	for idx := range held {
		if held[idx].ReferenceLevel != 0 {
			totalDistance += math.Abs(held[idx].CurrentPrice-held[idx].ReferenceLevel) / held[idx].ReferenceLevel
		}
	}
	averageDistance := totalDistance / float64(len(held))

	confidence := ConfidenceBase +
		float64(len(held)-1)*ConfidencePerHeldAsset +
		math.Min(averageDistance*ConfidenceDistanceWeight, ConfidenceDistanceCap)

	return math.Max(0, math.Min(1, confidence))
}
