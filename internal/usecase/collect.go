package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	domsvc "MarketLens/internal/domain/service"
	"MarketLens/internal/service/cache"
	"MarketLens/internal/services/features"
	applogger "MarketLens/pkg/logger"
	pkgmetrics "MarketLens/pkg/metrics"

	"github.com/google/uuid"
)

const (
	DefaultPeriod = "1y"
	collectLock   = "collect:run"
	// allCompanies is large enough to page the whole universe in one call.
	allCompanies = 10000
)

// ErrCollectRunning is returned when another run holds the collect lock.
var ErrCollectRunning = errors.New("collect already running")

// Locker is a lock shared between instances, such as pkg/cache.RedisCache.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// CompanyLookup resolves listing metadata for a symbol the store has not seen.
type CompanyLookup interface {
	Company(ctx context.Context, symbol string) (*models.Company, error)
}

// CollectUseCase fetches, processes and stores series for a set of symbols.
type CollectUseCase struct {
	store     domrepo.SeriesStore
	fetcher   domsvc.SeriesFetcher
	cache     *cache.ResponseCache
	publisher domrepo.EventPublisher
	lookup    CompanyLookup
	locker    Locker
	lockTTL   time.Duration
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	pause     time.Duration
	now       func() time.Time

	running sync.Mutex
}

type CollectOption func(*CollectUseCase)

// WithPublisher announces every stored symbol.
func WithPublisher(p domrepo.EventPublisher) CollectOption {
	return func(uc *CollectUseCase) { uc.publisher = p }
}

func WithCompanyLookup(l CompanyLookup) CollectOption {
	return func(uc *CollectUseCase) { uc.lookup = l }
}

// WithLocker guards runs across instances. ttl bounds a crashed holder.
func WithLocker(l Locker, ttl time.Duration) CollectOption {
	return func(uc *CollectUseCase) {
		uc.locker = l
		uc.lockTTL = ttl
	}
}

// WithPause sets the delay between two symbols of one run.
func WithPause(d time.Duration) CollectOption {
	return func(uc *CollectUseCase) { uc.pause = d }
}

func WithCollectMetrics(m domrepo.Metrics) CollectOption {
	return func(uc *CollectUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithCollectClock(now func() time.Time) CollectOption {
	return func(uc *CollectUseCase) { uc.now = now }
}

func NewCollectUseCase(store domrepo.SeriesStore, fetcher domsvc.SeriesFetcher, rc *cache.ResponseCache, logger *applogger.Logger, opts ...CollectOption) *CollectUseCase {
	uc := &CollectUseCase{
		store:   store,
		fetcher: fetcher,
		cache:   rc,
		metrics: pkgmetrics.Noop{},
		logger:  logger,
		pause:   time.Second,
		lockTTL: 30 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.logger == nil {
		uc.logger = applogger.Nop()
	}
	return uc
}

// SeedCompanies stores the default universe when the company table is empty.
// It returns how many companies were written.
func (uc *CollectUseCase) SeedCompanies(ctx context.Context) (int, error) {
	existing, err := uc.store.ListCompanies(ctx, 0, 1)
	if err != nil {
		return 0, fmt.Errorf("list companies: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for _, c := range models.DefaultCompanies {
		if err := uc.store.UpsertCompany(ctx, c); err != nil {
			return 0, fmt.Errorf("seed %s: %w", c.Symbol, err)
		}
	}
	uc.clearCompanies(ctx)
	uc.logger.Info("seeded companies", applogger.Int("count", len(models.DefaultCompanies)))
	return len(models.DefaultCompanies), nil
}

// CollectAndStore runs fetch, processing and persistence for each symbol in
// turn. An empty list means every stored company. A failing symbol is
// recorded in the report and the run moves on.
func (uc *CollectUseCase) CollectAndStore(ctx context.Context, symbols []string, period string, allowFallback bool) (*models.CollectReport, error) {
	if !uc.running.TryLock() {
		return nil, ErrCollectRunning
	}
	defer uc.running.Unlock()

	if uc.locker != nil {
		ok, err := uc.locker.TryLock(ctx, collectLock, uc.lockTTL)
		if err != nil {
			uc.logger.Warn("collect lock unavailable, running unguarded", applogger.Error(err))
		} else if !ok {
			return nil, ErrCollectRunning
		} else {
			defer func() {
				if err := uc.locker.Unlock(context.WithoutCancel(ctx), collectLock); err != nil {
					uc.logger.Warn("collect unlock failed", applogger.Error(err))
				}
			}()
		}
	}

	if period == "" {
		period = DefaultPeriod
	}
	symbols, err := uc.resolve(ctx, symbols)
	if err != nil {
		return nil, err
	}

	report := &models.CollectReport{
		RunID:     uuid.NewString(),
		Period:    period,
		StartedAt: uc.now(),
		Succeeded: []string{},
		Failed:    map[string]string{},
	}
	log := uc.logger.With("collect")
	run := applogger.String("run_id", report.RunID)
	log.Info("collect started", run, applogger.String("period", period),
		applogger.Int("symbols", len(symbols)), applogger.Bool("fallback", allowFallback))

	for i, symbol := range symbols {
		if i > 0 && uc.pause > 0 {
			if err := sleep(ctx, uc.pause); err != nil {
				for _, rest := range symbols[i:] {
					report.Failed[rest] = err.Error()
				}
				break
			}
		}
		n, err := uc.collectOne(ctx, report.RunID, symbol, period, allowFallback)
		uc.metrics.RecordCollect(symbol, err == nil)
		if err != nil {
			report.Failed[symbol] = err.Error()
			uc.metrics.RecordError("collect")
			log.Warn("collect failed", run, applogger.String("symbol", symbol), applogger.Error(err))
			continue
		}
		report.Succeeded = append(report.Succeeded, symbol)
		report.Records += n
		log.Info("collected", run, applogger.String("symbol", symbol), applogger.Int("records", n),
			applogger.String("progress", fmt.Sprintf("%d/%d", i+1, len(symbols))))
	}

	if uc.cache != nil && len(report.Succeeded) > 0 {
		for _, op := range cache.SeriesDerived {
			uc.cache.Clear(ctx, op)
		}
	}
	report.FinishedAt = uc.now()
	log.Info("collect finished", run,
		applogger.Int("succeeded", len(report.Succeeded)),
		applogger.Int("failed", len(report.Failed)),
		applogger.Int("records", report.Records),
		applogger.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (uc *CollectUseCase) resolve(ctx context.Context, symbols []string) ([]string, error) {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) > 0 {
		return out, nil
	}

	if _, err := uc.SeedCompanies(ctx); err != nil {
		return nil, err
	}
	companies, err := uc.store.ListCompanies(ctx, 0, allCompanies)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	for _, c := range companies {
		out = append(out, c.Symbol)
	}
	return out, nil
}

func (uc *CollectUseCase) collectOne(ctx context.Context, runID, symbol, period string, allowFallback bool) (int, error) {
	raw, err := uc.fetcher.Fetch(ctx, symbol, period, allowFallback)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("fetch: %w", models.ErrDataUnavailable)
	}
	series := features.Process(raw)
	if len(series) == 0 {
		return 0, fmt.Errorf("no data after processing: %w", models.ErrInsufficientData)
	}

	if err := uc.ensureCompany(ctx, symbol); err != nil {
		return 0, err
	}
	n, err := uc.store.UpsertSeries(ctx, symbol, series)
	if err != nil {
		return 0, fmt.Errorf("store series: %w", err)
	}
	summary := features.ComputeSummary(symbol, series)
	summary.UpdatedAt = uc.now()
	if err := uc.store.UpsertSummary(ctx, summary); err != nil {
		return n, fmt.Errorf("store summary: %w", err)
	}

	last := series[len(series)-1]
	uc.metrics.RecordLastPrice(symbol, last.Close)
	if uc.publisher != nil {
		ev := models.RefreshEvent{RunID: runID, Symbol: symbol, Records: n, LatestDate: last.Date, At: uc.now()}
		if err := uc.publisher.PublishRefresh(ctx, ev); err != nil {
			// peers keep serving cached results until their TTL
			uc.logger.Warn("refresh publish failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return n, nil
}

// ensureCompany registers a symbol collected outside the seeded universe.
func (uc *CollectUseCase) ensureCompany(ctx context.Context, symbol string) error {
	_, err := uc.store.GetCompany(ctx, symbol)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("get company: %w", err)
	}
	c := &models.Company{Symbol: symbol, Name: symbol, Exchange: exchangeOf(symbol)}
	if uc.lookup != nil {
		if found, lerr := uc.lookup.Company(ctx, symbol); lerr == nil && found != nil {
			c = found
		} else if lerr != nil {
			uc.logger.Debug("company lookup failed", applogger.String("symbol", symbol), applogger.Error(lerr))
		}
	}
	if err := uc.store.UpsertCompany(ctx, *c); err != nil {
		return fmt.Errorf("store company: %w", err)
	}
	uc.clearCompanies(ctx)
	return nil
}

func (uc *CollectUseCase) clearCompanies(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	uc.cache.Clear(ctx, cache.OpCompanies)
	uc.cache.Clear(ctx, cache.OpCompany)
}

func exchangeOf(symbol string) string {
	switch {
	case strings.HasSuffix(symbol, ".NS"):
		return "NSE"
	case strings.HasSuffix(symbol, ".BO"):
		return "BSE"
	default:
		return ""
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
