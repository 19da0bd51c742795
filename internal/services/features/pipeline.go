package features

import (
	"math"

	"MarketLens/internal/domain/models"
)

const (
	MovingAvgWindow  = 7
	VolatilityWindow = 30
	SentimentWindow  = 5
)

// DailyReturns is (close-open)/open*100 per point; 0 when open is 0.
func DailyReturns(series []models.PricePoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		if p.Open == 0 {
			continue
		}
		out[i] = (p.Close - p.Open) / p.Open * 100
	}
	return out
}

// MovingAverage7 is the trailing 7-point mean of close.
func MovingAverage7(series []models.PricePoint) []float64 {
	return RollingMean(closes(series), MovingAvgWindow)
}

// Volatility is the absolute trailing 30-point standard deviation of the daily returns.
func Volatility(returns []float64) []float64 {
	out := RollingStdDev(returns, VolatilityWindow)
	for i, v := range out {
		out[i] = math.Abs(v)
	}
	return out
}

// Sentiment blends price and volume momentum:
// 0.7*pc + 0.3*sign(pc)*vc, scaled by 100 and smoothed over 5 points.
func Sentiment(series []models.PricePoint) []float64 {
	pc := PctChange(closes(series))
	vc := PctChange(volumes(series))
	raw := make([]float64, len(series))
	for i := range raw {
		raw[i] = (0.7*pc[i] + 0.3*sign(pc[i])*vc[i]) * 100
	}
	return RollingMean(raw, SentimentWindow)
}

// Process cleans a raw series and attaches every derived feature.
// Values that remain undefined are reported as 0.
func Process(raw []models.PricePoint) []models.PricePoint {
	out := Clean(raw)
	if len(out) == 0 {
		return out
	}
	returns := DailyReturns(out)
	ma7 := MovingAverage7(out)
	vol := Volatility(returns)
	sent := Sentiment(out)
	for i := range out {
		out[i].DailyReturn = models.Float(zeroIfNaN(returns[i]))
		out[i].MovingAvg7 = models.Float(zeroIfNaN(ma7[i]))
		out[i].VolatilityScore = models.Float(zeroIfNaN(vol[i]))
		out[i].SentimentIndex = models.Float(zeroIfNaN(sent[i]))
	}
	return out
}

func zeroIfNaN(v float64) float64 {
	if isMissing(v) {
		return 0
	}
	return v
}

func closes(series []models.PricePoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Close
	}
	return out
}

func volumes(series []models.PricePoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = float64(p.Volume)
	}
	return out
}
