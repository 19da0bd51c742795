package predictor

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// scaler standardizes each column to zero mean and unit population variance.
type scaler struct {
	mean  []float64
	scale []float64
}

func fitScaler(rows [][]float64) *scaler {
	if len(rows) == 0 {
		return &scaler{}
	}
	cols := len(rows[0])
	s := &scaler{mean: make([]float64, cols), scale: make([]float64, cols)}
	col := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		s.mean[j] = mean
		s.scale[j] = math.Sqrt(variance)
		if s.scale[j] == 0 || math.IsNaN(s.scale[j]) {
			s.scale[j] = 1
		}
	}
	return s
}

func (s *scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.mean[j]) / s.scale[j]
	}
	return out
}
