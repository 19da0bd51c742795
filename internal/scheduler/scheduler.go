package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/usecase"
	applogger "MarketLens/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Collector runs one collection pass.
type Collector interface {
	CollectAndStore(ctx context.Context, symbols []string, period string, allowFallback bool) (*models.CollectReport, error)
}

// Pruner drops idle state, such as rate limiter buckets.
type Pruner interface {
	Prune() int
}

// CollectSpec is what every scheduled run collects.
type CollectSpec struct {
	Symbols       []string
	Period        string
	AllowFallback bool
	// Timeout bounds one run; zero means no bound.
	Timeout time.Duration
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	col    Collector
	spec   CollectSpec
	log    *applogger.Logger
}

func New(col Collector, spec CollectSpec, log *applogger.Logger) *Scheduler {
	if log == nil {
		log = applogger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		ctx:    ctx,
		cancel: cancel,
		col:    col,
		spec:   spec,
		log:    log.With("scheduler"),
	}
}

// RegisterCollect schedules collection on a six-field cron expression.
func (s *Scheduler) RegisterCollect(expr string) error {
	if _, err := s.cron.AddFunc(expr, s.collectTask); err != nil {
		return fmt.Errorf("register collect task: %w", err)
	}
	return nil
}

// RegisterPrune calls p.Prune every interval.
func (s *Scheduler) RegisterPrune(name string, every time.Duration, p Pruner) error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", every), func() {
		if n := p.Prune(); n > 0 {
			s.log.Debug("pruned", applogger.String("task", name), applogger.Int("count", n))
		}
	}); err != nil {
		return fmt.Errorf("register %s prune: %w", name, err)
	}
	return nil
}

// Entries is the number of registered tasks.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", applogger.Int("tasks", s.Entries()))
}

// Stop cancels a running collection and waits for running tasks to return
// or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes the collect task immediately, for run_on_start.
func (s *Scheduler) RunNow() {
	s.collectTask()
}

func (s *Scheduler) collectTask() {
	ctx := s.ctx
	if s.spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.spec.Timeout)
		defer cancel()
	}

	s.log.Info("scheduled collect starting", applogger.String("period", s.spec.Period))
	report, err := s.col.CollectAndStore(ctx, s.spec.Symbols, s.spec.Period, s.spec.AllowFallback)
	switch {
	case errors.Is(err, usecase.ErrCollectRunning):
		s.log.Info("scheduled collect skipped, run in progress")
	case err != nil:
		s.log.Error("scheduled collect failed", applogger.Error(err))
	default:
		s.log.Info("scheduled collect done",
			applogger.String("run_id", report.RunID),
			applogger.Int("succeeded", len(report.Succeeded)),
			applogger.Int("failed", len(report.Failed)))
	}
}
