package features

import (
	"math"

	"MarketLens/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear bounds the summary window.
const TradingDaysPerYear = 252

// ComputeSummary derives the 52-week statistics from the trailing
// TradingDaysPerYear points of a cleaned series.
func ComputeSummary(symbol string, series []models.PricePoint) models.SeriesSummary {
	s := models.SeriesSummary{Symbol: symbol}
	if len(series) == 0 {
		return s
	}
	tail := series
	if len(tail) > TradingDaysPerYear {
		tail = tail[len(tail)-TradingDaysPerYear:]
	}

	high, low := math.Inf(-1), math.Inf(1)
	for _, p := range tail {
		high = math.Max(high, p.High)
		low = math.Min(low, p.Low)
	}
	s.Week52High = models.Float(high)
	s.Week52Low = models.Float(low)
	s.AvgClose = models.Float(stat.Mean(closes(tail), nil))
	s.CurrentPrice = models.Float(tail[len(tail)-1].Close)
	return s
}
