// Package features derives per-day statistics from daily price series.
// Every function here is pure and never fails: degenerate input resolves
// to an empty series or a zero value.
package features

import (
	"math"
	"sort"

	"MarketLens/internal/domain/models"
	xutil "MarketLens/pkg/util"
)

// Clean normalizes a raw series: dates are truncated to calendar days,
// missing OHLCV values are forward-filled then back-filled then zeroed,
// rows with close <= 0 are dropped and the rest sorted ascending by date.
// Duplicate dates keep the last row seen. High and low are widened when
// needed so every point satisfies low <= min(open, close) and
// high >= max(open, close).
func Clean(raw []models.PricePoint) []models.PricePoint {
	if len(raw) == 0 {
		return nil
	}
	pts := make([]models.PricePoint, len(raw))
	copy(pts, raw)

	n := len(pts)
	opens, highs, lows, closes, vols := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, p := range pts {
		opens[i], highs[i], lows[i], closes[i] = p.Open, p.High, p.Low, p.Close
		vols[i] = float64(p.Volume)
		if p.Volume < 0 {
			vols[i] = math.NaN()
		}
	}
	for _, col := range [][]float64{opens, highs, lows, closes, vols} {
		fillMissing(col)
	}

	out := pts[:0]
	for i, p := range pts {
		if !(closes[i] > 0) {
			continue
		}
		p.Date = xutil.DateOnly(p.Date)
		p.Open, p.High, p.Low, p.Close = opens[i], highs[i], lows[i], closes[i]
		p.Volume = int64(vols[i])
		p.High = math.Max(p.High, math.Max(p.Open, p.Close))
		p.Low = math.Min(p.Low, math.Min(p.Open, p.Close))
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, p := range out {
		if k := len(dedup); k > 0 && dedup[k-1].Date.Equal(p.Date) {
			dedup[k-1] = p
			continue
		}
		dedup = append(dedup, p)
	}
	return dedup
}

// fillMissing replaces NaN/Inf in place: forward fill, back fill, then zero.
func fillMissing(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if isMissing(v) {
			col[i] = last
			continue
		}
		last = v
	}
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if isMissing(col[i]) {
			col[i] = next
			continue
		}
		next = col[i]
	}
	for i, v := range col {
		if isMissing(v) {
			col[i] = 0
		}
	}
}

func isMissing(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
