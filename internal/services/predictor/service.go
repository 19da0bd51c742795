package predictor

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"MarketLens/internal/domain/models"
	domsvc "MarketLens/internal/domain/service"
	applogger "MarketLens/pkg/logger"
)

const (
	MinTrainPoints  = 20
	MinTrainSamples = 5
	// TestFraction of the samples, taken from the end, is held out for scoring.
	TestFraction = 0.2
	// MaxConfidence caps the confidence reported for a full window of data.
	MaxConfidence = 0.85
	// ConfidenceWindow is the series length at which confidence saturates.
	ConfidenceWindow = 100
)

// Service owns one lazily trained model shared by every caller.
// The first Predict trains it from the series it receives; later calls
// reuse it until Train is called again.
type Service struct {
	logger *applogger.Logger

	mu    sync.Mutex
	model atomic.Pointer[linearModel]
}

func New(logger *applogger.Logger) *Service {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &Service{logger: logger.With("predictor")}
}

// Trained reports whether a model is available.
func (s *Service) Trained() bool { return s.model.Load() != nil }

// Train fits a new model on series. It returns false, leaving any previous
// model in place, when the series is too short or ctx ends first.
func (s *Service) Train(ctx context.Context, series []models.PricePoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.train(ctx, series)
}

func (s *Service) train(ctx context.Context, series []models.PricePoint) bool {
	if len(series) < MinTrainPoints {
		s.logger.Warn("insufficient data for training", applogger.Int("points", len(series)))
		return false
	}
	xs, ys := samples(byDate(series))
	if len(xs) < MinTrainSamples {
		s.logger.Warn("insufficient samples for training", applogger.Int("samples", len(xs)))
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	nTest := int(math.Ceil(TestFraction * float64(len(xs))))
	nTrain := len(xs) - nTest
	m, err := fitLinear(xs[:nTrain], ys[:nTrain])
	if err != nil {
		s.logger.Error("training failed", applogger.Error(err))
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	s.logger.Info("model trained",
		applogger.Float64("r2", m.score(xs[nTrain:], ys[nTrain:])),
		applogger.Int("train_samples", nTrain),
		applogger.Int("test_samples", nTest))
	s.model.Store(m)
	return true
}

// Predict estimates the close following the last point of series, training
// on series first when no model exists yet. It returns nil when no model
// can be trained, the series is shorter than Lookback, or the estimate is
// not finite.
func (s *Service) Predict(ctx context.Context, series []models.PricePoint) *float64 {
	m := s.model.Load()
	if m == nil {
		s.mu.Lock()
		if m = s.model.Load(); m == nil && s.train(ctx, series) {
			m = s.model.Load()
		}
		s.mu.Unlock()
		if m == nil {
			return nil
		}
	}
	if len(series) < Lookback {
		return nil
	}

	v := m.predict(latest(byDate(series)))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// PredictWithConfidence pairs Predict with a confidence that grows with the
// series length: min(len/100, 1) * 0.85. A missing estimate has confidence 0.
func (s *Service) PredictWithConfidence(ctx context.Context, series []models.PricePoint) (*float64, float64) {
	pred := s.Predict(ctx, series)
	if pred == nil {
		return nil, 0
	}
	quality := math.Min(float64(len(series))/ConfidenceWindow, 1)
	return pred, quality * MaxConfidence
}

func byDate(series []models.PricePoint) []models.PricePoint {
	out := make([]models.PricePoint, len(series))
	copy(out, series)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

var _ domsvc.PriceForecaster = (*Service)(nil)
