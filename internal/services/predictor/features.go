// Package predictor estimates the next close of a daily series with a
// linear model fitted on lagged prices, volume and returns.
package predictor

import (
	"MarketLens/internal/domain/models"
	"MarketLens/internal/services/features"

	"gonum.org/v1/gonum/stat"
)

const (
	// Lookback is the number of trailing points each sample sees.
	Lookback = 7
	// FeatureCount is Lookback lagged closes, four aggregates and Lookback returns.
	FeatureCount = 2*Lookback + 4
)

// BuildFeatures assembles the sample for the window [end-Lookback, end).
// currentVolume is the volume of the point being estimated during training
// and the latest known volume when predicting.
func BuildFeatures(closes, volumes []float64, end int, currentVolume float64) []float64 {
	window := closes[end-Lookback : end]
	ma7 := stat.Mean(window, nil)
	ma3 := ma7
	if end >= 3 {
		ma3 = stat.Mean(closes[end-3:end], nil)
	}

	out := make([]float64, 0, FeatureCount)
	out = append(out, window...)
	out = append(out, ma7, ma3, stat.Mean(volumes[end-Lookback:end], nil), currentVolume)
	out = append(out, features.PctChange(window)...)
	return out
}

// samples builds one (features, next close) pair for every point that has a
// full lookback window behind it.
func samples(series []models.PricePoint) ([][]float64, []float64) {
	closes, volumes := columns(series)
	if len(closes) < Lookback+1 {
		return nil, nil
	}
	xs := make([][]float64, 0, len(closes)-Lookback)
	ys := make([]float64, 0, len(closes)-Lookback)
	for i := Lookback; i < len(closes); i++ {
		xs = append(xs, BuildFeatures(closes, volumes, i, volumes[i]))
		ys = append(ys, closes[i])
	}
	return xs, ys
}

// latest builds the sample describing the day after the last point.
func latest(series []models.PricePoint) []float64 {
	closes, volumes := columns(series)
	n := len(closes)
	return BuildFeatures(closes, volumes, n, volumes[n-1])
}

func columns(series []models.PricePoint) ([]float64, []float64) {
	closes := make([]float64, len(series))
	volumes := make([]float64, len(series))
	for i, p := range series {
		closes[i] = p.Close
		volumes[i] = float64(p.Volume)
	}
	return closes, volumes
}
