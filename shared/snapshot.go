package shared

import "time"

// MarketSnapshot represents the current market state of a symbol.
type MarketSnapshot struct {
	Symbol           string
	Price            float64
	Volume           float64
	Timestamp        time.Time
	Change24h        float64
	ChangePercent24h float64
}

// Ticker24h represents aggregate 24-hour statistics for a symbol. Fields a
// venue does not supply are zero-filled.
type Ticker24h struct {
	Symbol      string
	Last        float64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Bid         float64
	Ask         float64
	VWAP        float64
	BaseVolume  float64
	QuoteVolume float64
	Change      float64
	Percentage  float64
	Timestamp   time.Time
}
