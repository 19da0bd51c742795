package models

import "time"

// MissingVolume marks a volume cell the source did not provide.
// Cleaning treats any negative volume as missing.
const MissingVolume int64 = -1

// PricePoint is one trading day of OHLCV data plus the derived features.
// Price fields hold NaN when a raw source left them empty; a cleaned
// series never contains NaN.
type PricePoint struct {
	Date            time.Time `json:"date"`
	Open            float64   `json:"open"`
	High            float64   `json:"high"`
	Low             float64   `json:"low"`
	Close           float64   `json:"close"`
	Volume          int64     `json:"volume"`
	DailyReturn     *float64  `json:"daily_return,omitempty"`
	MovingAvg7      *float64  `json:"moving_avg_7,omitempty"`
	VolatilityScore *float64  `json:"volatility_score,omitempty"`
	SentimentIndex  *float64  `json:"sentiment_index,omitempty"`
}

// SymbolPoint is a PricePoint tagged with the symbol it belongs to.
type SymbolPoint struct {
	Symbol string `json:"symbol"`
	PricePoint
}

// SeriesSummary holds the trailing 52-week statistics of a series.
// All values are nil for an empty series.
type SeriesSummary struct {
	Symbol       string    `json:"symbol"`
	Week52High   *float64  `json:"week_52_high"`
	Week52Low    *float64  `json:"week_52_low"`
	AvgClose     *float64  `json:"avg_close"`
	CurrentPrice *float64  `json:"current_price"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PredictionResult is the next-close estimate for a symbol.
type PredictionResult struct {
	Symbol         string    `json:"symbol"`
	CurrentPrice   float64   `json:"current_price"`
	PredictedPrice float64   `json:"predicted_price"`
	Confidence     float64   `json:"confidence"`
	PredictionDate time.Time `json:"prediction_date"`
}

// Comparison pairs two windows of stored data with their close correlation.
type Comparison struct {
	Symbol1        string         `json:"symbol1"`
	Symbol2        string         `json:"symbol2"`
	Correlation    float64        `json:"correlation"`
	Symbol1Data    []PricePoint   `json:"symbol1_data"`
	Symbol2Data    []PricePoint   `json:"symbol2_data"`
	Symbol1Summary *SeriesSummary `json:"symbol1_summary"`
	Symbol2Summary *SeriesSummary `json:"symbol2_summary"`
}

// InsightEntry is one ranked row of the insights board.
type InsightEntry struct {
	Symbol          string    `json:"symbol"`
	DailyReturn     *float64  `json:"daily_return,omitempty"`
	VolatilityScore *float64  `json:"volatility_score,omitempty"`
	Close           float64   `json:"close"`
	Date            time.Time `json:"date"`
}

// Insights ranks the most recent point of every tracked symbol.
type Insights struct {
	TopGainers   []InsightEntry `json:"top_gainers"`
	TopLosers    []InsightEntry `json:"top_losers"`
	MostVolatile []InsightEntry `json:"most_volatile"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Value dereferences p, returning 0 for nil.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
