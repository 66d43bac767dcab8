package indicator

import (
	"time"

	"github.com/vladborsh/trading-tg-bot/shared"
)

// DefaultCrossLookback is the default number of recent candles inspected for
// a level crossing.
const DefaultCrossLookback = 10

// CrossResult represents the outcome of a level crossing detection.
type CrossResult struct {
	Crossed   bool
	Direction shared.Direction
	CrossTime time.Time
}

// DetectCross scans the most recent lookback candles for a directional
// crossing of the reference level by consecutive closes. A close resting
// exactly on the level counts as not yet having broken it, so equality at
// the previous candle can start a break while equality at the current candle
// never completes one. The first satisfying pair wins.
func DetectCross(candles []shared.Candle, referenceLevel float64, direction shared.Direction, lookback int) CrossResult {
	if lookback <= 0 {
		lookback = DefaultCrossLookback
	}

	recent := shared.RecentCandles(candles, lookback)
	if len(recent) < 2 {
		return CrossResult{}
	}

	for idx := 1; idx < len(recent); idx++ {
		prev := recent[idx-1].Close
		curr := recent[idx].Close

		var crossed bool
		switch direction {
		case shared.CrossOver:
			crossed = prev <= referenceLevel && curr > referenceLevel
		case shared.CrossUnder:
			crossed = prev >= referenceLevel && curr < referenceLevel
		}

		if crossed {
			return CrossResult{
				Crossed:   true,
				Direction: direction,
				CrossTime: recent[idx].OpenTime,
			}
		}
	}

	return CrossResult{}
}
