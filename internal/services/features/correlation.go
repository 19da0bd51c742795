package features

import (
	"math"
	"sort"
	"time"

	"MarketLens/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Correlate returns the Pearson correlation of close prices over the dates
// both series share. Fewer than two shared dates, or zero variance on
// either side, yields 0. The result is symmetric in its arguments.
func Correlate(a, b []models.PricePoint) float64 {
	byDate := make(map[time.Time]float64, len(b))
	for _, p := range b {
		if _, dup := byDate[p.Date.UTC()]; !dup {
			byDate[p.Date.UTC()] = p.Close
		}
	}

	type pair struct {
		date time.Time
		x, y float64
	}
	joined := make([]pair, 0, len(a))
	seen := make(map[time.Time]bool, len(a))
	for _, p := range a {
		d := p.Date.UTC()
		y, ok := byDate[d]
		if !ok || seen[d] {
			continue
		}
		seen[d] = true
		joined = append(joined, pair{date: d, x: p.Close, y: y})
	}
	if len(joined) < 2 {
		return 0
	}
	sort.Slice(joined, func(i, j int) bool { return joined[i].date.Before(joined[j].date) })

	xs, ys := make([]float64, len(joined)), make([]float64, len(joined))
	for i, p := range joined {
		xs[i], ys[i] = p.x, p.y
	}
	// fixed column order makes the floating point result bitwise symmetric
	if lessSeq(ys, xs) {
		xs, ys = ys, xs
	}
	r := stat.Correlation(xs, ys, nil)
	if isMissing(r) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

func lessSeq(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
