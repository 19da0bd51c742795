// Package gateway fetches raw daily series from the configured source,
// retrying once and falling back to synthetic data when allowed.
package gateway

import (
	"context"
	"fmt"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/domain/repository"
	domsvc "MarketLens/internal/domain/service"
	"MarketLens/internal/services/synthetic"
	applogger "MarketLens/pkg/logger"
)

const (
	DefaultAttempts   = 2
	DefaultRetryDelay = time.Second
	DefaultBudget     = 20 * time.Second

	// fallback horizons in calendar days
	fallbackYearDays    = 365
	fallbackDefaultDays = 30
)

// Fetch outcomes reported to metrics.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeFallback    = "fallback"
	OutcomeUnavailable = "unavailable"
)

type Gateway struct {
	source   repository.SeriesSource
	synth    *synthetic.Generator
	logger   *applogger.Logger
	metrics  repository.Metrics
	attempts int
	delay    time.Duration
	budget   time.Duration
}

type Option func(*Gateway)

func WithAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// WithRetryDelay sets the pause before each retry.
func WithRetryDelay(d time.Duration) Option {
	return func(g *Gateway) { g.delay = d }
}

// WithBudget bounds every single attempt.
func WithBudget(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.budget = d
		}
	}
}

func WithGenerator(gen *synthetic.Generator) Option {
	return func(g *Gateway) { g.synth = gen }
}

func WithMetrics(m repository.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func New(source repository.SeriesSource, logger *applogger.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = applogger.Nop()
	}
	g := &Gateway{
		source:   source,
		logger:   logger.With("gateway"),
		attempts: DefaultAttempts,
		delay:    DefaultRetryDelay,
		budget:   DefaultBudget,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.synth == nil {
		g.synth = synthetic.New(nil)
	}
	return g
}

// Fetch returns the raw series for symbol over period. After the attempts
// are exhausted it returns a synthetic series when allowFallback is set, and
// ErrDataUnavailable otherwise. Cancellation of ctx always yields
// ErrDataUnavailable wrapping the context error, without fallback.
func (g *Gateway) Fetch(ctx context.Context, symbol, period string, allowFallback bool) ([]models.PricePoint, error) {
	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if attempt > 1 {
			if err := g.pause(ctx); err != nil {
				return nil, g.cancelled(symbol, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, g.cancelled(symbol, err)
		}

		points, err := g.attempt(ctx, symbol, period)
		if err == nil {
			g.record(OutcomeOK)
			g.logger.Info("fetched series",
				applogger.Symbol(symbol),
				applogger.String("source", g.source.Name()),
				applogger.Int("records", len(points)))
			return points, nil
		}
		lastErr = err
		g.record(OutcomeError)
		g.logger.Warn("fetch attempt failed",
			applogger.Symbol(symbol),
			applogger.Int("attempt", attempt),
			applogger.Int("max_attempts", g.attempts),
			applogger.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, g.cancelled(symbol, err)
	}

	if allowFallback {
		days := fallbackDefaultDays
		if period == "1y" {
			days = fallbackYearDays
		}
		g.record(OutcomeFallback)
		g.logger.Warn("source unavailable, using synthetic series",
			applogger.Symbol(symbol),
			applogger.Int("days", days))
		return g.synth.Generate(symbol, days), nil
	}

	g.record(OutcomeUnavailable)
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", models.ErrDataUnavailable, symbol, g.attempts, lastErr)
}

func (g *Gateway) attempt(ctx context.Context, symbol, period string) ([]models.PricePoint, error) {
	actx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()

	frame, err := g.source.Fetch(actx, symbol, period)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.source.Name(), err)
	}
	points, invalid, err := toPoints(frame)
	if err != nil {
		return nil, err
	}
	if invalid > 0 {
		g.logger.Warn("skipped invalid records",
			applogger.Symbol(symbol),
			applogger.Int("invalid", invalid))
	}
	if len(points) == 0 {
		return nil, errNoValidRows
	}
	return points, nil
}

func (g *Gateway) pause(ctx context.Context) error {
	if g.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(g.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) cancelled(symbol string, err error) error {
	g.record(OutcomeUnavailable)
	return fmt.Errorf("%w: %s: %w", models.ErrDataUnavailable, symbol, err)
}

func (g *Gateway) record(outcome string) {
	if g.metrics != nil {
		g.metrics.RecordFetch(g.source.Name(), outcome)
	}
}

var _ domsvc.SeriesFetcher = (*Gateway)(nil)
