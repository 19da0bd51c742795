package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RollingMean is the trailing mean over window points, requiring one point.
func RollingMean(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	for i := range vals {
		out[i] = stat.Mean(trailing(vals, i, window), nil)
	}
	return out
}

// RollingStdDev is the trailing sample standard deviation over window points.
// A window holding a single value is undefined and yields NaN.
func RollingStdDev(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	for i := range vals {
		w := trailing(vals, i, window)
		if len(w) < 2 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(w, nil)
	}
	return out
}

// PctChange returns v[i]/v[i-1]-1, with the first element and any
// undefined ratio reported as 0.
func PctChange(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i := 1; i < len(vals); i++ {
		pc := (vals[i] - vals[i-1]) / vals[i-1]
		if isMissing(pc) {
			pc = 0
		}
		out[i] = pc
	}
	return out
}

func trailing(vals []float64, i, window int) []float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	return vals[lo : i+1]
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
