package predictor

import (
	"bytes"
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/services/features"
	"MarketLens/internal/services/synthetic"
	applogger "MarketLens/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func linearSeries(n int) []models.PricePoint {
	out := make([]models.PricePoint, n)
	for i := range out {
		c := 1000 + float64(i)
		out[i] = models.PricePoint{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1_000_000}
	}
	return out
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBuildFeaturesLayout(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15, 16, 17}
	volumes := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	f := BuildFeatures(closes, volumes, 7, volumes[7])

	require.Len(t, f, FeatureCount)
	assert.Equal(t, closes[:7], f[:7])
	assert.InDelta(t, 13.0, f[7], 1e-12) // ma7
	assert.InDelta(t, 15.0, f[8], 1e-12) // ma3
	assert.InDelta(t, 4.0, f[9], 1e-12)  // avg volume
	assert.Equal(t, 8.0, f[10])          // current volume
	assert.Equal(t, 0.0, f[11])
	assert.InDelta(t, 0.1, f[12], 1e-12)
}

func TestTrainRequiresTwentyPoints(t *testing.T) {
	s := New(nil)
	assert.False(t, s.Train(context.Background(), linearSeries(19)))
	assert.False(t, s.Trained())
	assert.True(t, s.Train(context.Background(), linearSeries(20)))
	assert.True(t, s.Trained())
}

func TestTrainHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(nil)
	assert.False(t, s.Train(ctx, linearSeries(40)))
	assert.False(t, s.Trained())
}

func TestPredictShortSeries(t *testing.T) {
	s := New(nil)
	pred, conf := s.PredictWithConfidence(context.Background(), linearSeries(5))
	assert.Nil(t, pred)
	assert.Equal(t, 0.0, conf)

	require.True(t, s.Train(context.Background(), linearSeries(30)))
	pred, conf = s.PredictWithConfidence(context.Background(), linearSeries(6))
	assert.Nil(t, pred)
	assert.Equal(t, 0.0, conf)
}

func TestPredictLinearTrend(t *testing.T) {
	s := New(nil)
	series := linearSeries(60)
	pred := s.Predict(context.Background(), series)
	require.NotNil(t, pred)
	assert.InEpsilon(t, 1060.0, *pred, 0.05)
}

func TestPredictSyntheticSeriesStaysNearLastClose(t *testing.T) {
	series := features.Process(synthetic.GenerateAt("RELIANCE.NS", 300, start.AddDate(1, 0, 0)))
	s := New(nil)
	pred, conf := s.PredictWithConfidence(context.Background(), series)
	require.NotNil(t, pred)
	assert.False(t, math.IsNaN(*pred))
	assert.InEpsilon(t, series[len(series)-1].Close, *pred, 0.2)
	assert.InDelta(t, MaxConfidence, conf, 1e-12)
}

func TestConfidenceScalesWithLength(t *testing.T) {
	s := New(nil)
	require.True(t, s.Train(context.Background(), linearSeries(40)))

	_, conf := s.PredictWithConfidence(context.Background(), linearSeries(50))
	assert.InDelta(t, 0.425, conf, 1e-12)

	_, conf = s.PredictWithConfidence(context.Background(), linearSeries(150))
	assert.InDelta(t, 0.85, conf, 1e-12)
}

func TestPredictUnsortedInput(t *testing.T) {
	series := linearSeries(40)
	reversed := make([]models.PricePoint, len(series))
	for i, p := range series {
		reversed[len(series)-1-i] = p
	}
	a, b := New(nil), New(nil)
	pa := a.Predict(context.Background(), series)
	pb := b.Predict(context.Background(), reversed)
	require.NotNil(t, pa)
	require.NotNil(t, pb)
	assert.InDelta(t, *pa, *pb, 1e-9)
}

func TestConcurrentFirstPredictTrainsOnce(t *testing.T) {
	out := &lockedBuffer{}
	s := New(applogger.FromZerolog(zerolog.New(out)))
	series := linearSeries(80)

	var wg sync.WaitGroup
	results := make([]*float64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Predict(context.Background(), series)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, *results[0], *r)
	}
	assert.Equal(t, 1, strings.Count(out.String(), "model trained"))
}

func TestConstantFeaturesDoNotBreakFit(t *testing.T) {
	series := make([]models.PricePoint, 30)
	for i := range series {
		series[i] = models.PricePoint{Date: start.AddDate(0, 0, i), Open: 50, High: 50, Low: 50, Close: 50, Volume: 10}
	}
	s := New(nil)
	pred := s.Predict(context.Background(), series)
	require.NotNil(t, pred)
	assert.InDelta(t, 50.0, *pred, 1e-9)
}
