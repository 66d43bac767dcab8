package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/vladborsh/trading-tg-bot/service"
	"github.com/vladborsh/trading-tg-bot/shared"
	"github.com/vladborsh/trading-tg-bot/strategy"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// parsePeriod maps the configured period string to a period spec. Calendar
// names resolve to calendar periods, anything else is treated as an interval
// tag.
func parsePeriod(period string, timezone string) *shared.PeriodSpec {
	switch shared.Calendar(period) {
	case shared.PrevDay, shared.PrevWeek, shared.PrevMonth,
		shared.CurrentDay, shared.CurrentWeek, shared.CurrentMonth:
		return &shared.PeriodSpec{
			Kind:     shared.CalendarPeriod,
			Calendar: shared.Calendar(period),
			Timezone: timezone,
		}
	default:
		return &shared.PeriodSpec{
			Kind:     shared.IntervalPeriod,
			Interval: shared.Interval(period),
			Timezone: timezone,
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	direction, err := shared.ParseDirection(cfg.Direction)
	if err != nil {
		log.Printf("parsing direction: %v", err)
		return
	}

	var cadence time.Duration
	if cfg.Cadence != "" {
		cadence, err = time.ParseDuration(cfg.Cadence)
		if err != nil {
			log.Printf("parsing cadence: %v", err)
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal delivery beyond structured logging is delegated to the hosting
	// bot or cron process.
	notify := func(sig shared.Signal) {
		zlog.Info().
			Str("id", sig.ID).
			Str("trigger", sig.TriggerAsset).
			Str("direction", sig.Direction.String()).
			Strs("correlated", sig.CorrelatedAssets).
			Float64("reference", sig.ReferenceLevel).
			Float64("confidence", sig.Confidence).
			Time("timestamp", sig.Timestamp).
			Msg("correlation crack signal")
	}

	monitorCfg := service.MonitorConfig{
		Venue:             cfg.Venue,
		CapitalAPIKey:     cfg.CapitalAPIKey,
		CapitalIdentifier: cfg.CapitalIdentifier,
		CapitalPassword:   cfg.CapitalPassword,
		Strategies: []*strategy.CrackConfig{
			{
				PrimaryAssets: cfg.Assets,
				Period:        parsePeriod(cfg.Period, cfg.Timezone),
				Direction:     direction,
				Timezone:      cfg.Timezone,
			},
		},
		Cadence: cadence,
		Notify:  notify,
		Cancel:  cancel,
	}
	monitor, err := service.NewMonitor(&monitorCfg)
	if err != nil {
		log.Printf("creating monitor service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	err = monitor.Run(ctx)
	if err != nil {
		fmt.Printf("running monitor service: %v\n", err)
	}
}
