package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	domsvc "MarketLens/internal/domain/service"
	"MarketLens/internal/service/cache"
	"MarketLens/internal/services/features"
	pkgmetrics "MarketLens/pkg/metrics"
	xutil "MarketLens/pkg/util"
)

const (
	DefaultCompaniesLimit = 100
	DefaultSeriesDays     = 30
	MaxSeriesDays         = 365
	DefaultInsightsLimit  = 10
	DefaultHistoryDays    = 100
)

// AnalyticsUseCase serves the read side: companies, stored series and
// everything derived from them. Every operation goes through the response cache.
type AnalyticsUseCase struct {
	store       domrepo.SeriesStore
	cache       *cache.ResponseCache
	predictor   domsvc.PriceForecaster
	metrics     domrepo.Metrics
	historyDays int
	now         func() time.Time
}

func NewAnalyticsUseCase(store domrepo.SeriesStore, rc *cache.ResponseCache, predictor domsvc.PriceForecaster, metrics domrepo.Metrics, historyDays int) *AnalyticsUseCase {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	if metrics == nil {
		metrics = pkgmetrics.Noop{}
	}
	return &AnalyticsUseCase{
		store:       store,
		cache:       rc,
		predictor:   predictor,
		metrics:     metrics,
		historyDays: historyDays,
		now:         time.Now,
	}
}

// WithClock replaces time.Now. Used by tests.
func (uc *AnalyticsUseCase) WithClock(now func() time.Time) *AnalyticsUseCase {
	uc.now = now
	return uc
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func (uc *AnalyticsUseCase) observe(op string, start time.Time) {
	uc.metrics.RecordLatency(op, time.Since(start).Seconds())
}

func (uc *AnalyticsUseCase) ListCompanies(ctx context.Context, skip, limit int) ([]models.Company, error) {
	defer uc.observe(cache.OpCompanies, time.Now())
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultCompaniesLimit
	}
	return cache.GetOrLoad(ctx, uc.cache, cache.OpCompanies, cache.CompaniesTTL, nil,
		map[string]any{"skip": skip, "limit": limit},
		func(ctx context.Context) ([]models.Company, error) {
			out, err := uc.store.ListCompanies(ctx, skip, limit)
			if err != nil {
				return nil, fmt.Errorf("list companies: %w", err)
			}
			return out, nil
		})
}

func (uc *AnalyticsUseCase) GetCompany(ctx context.Context, symbol string) (*models.Company, error) {
	defer uc.observe(cache.OpCompany, time.Now())
	symbol = NormalizeSymbol(symbol)
	return cache.GetOrLoad(ctx, uc.cache, cache.OpCompany, cache.CompanyTTL, nil,
		map[string]any{"symbol": symbol},
		func(ctx context.Context) (*models.Company, error) {
			return uc.store.GetCompany(ctx, symbol)
		})
}

// since is the first date included in a window of days ending today.
func (uc *AnalyticsUseCase) since(days int) time.Time {
	return xutil.DateOnly(uc.now()).AddDate(0, 0, -days)
}

// window loads the stored points of the last days, newest first.
func (uc *AnalyticsUseCase) window(ctx context.Context, symbol string, days int) ([]models.PricePoint, error) {
	points, err := uc.store.GetSeries(ctx, symbol, uc.since(days))
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", symbol, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no data found for symbol %s: %w", symbol, models.ErrNotFound)
	}
	out := make([]models.PricePoint, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out, nil
}

func clampDays(days int) int {
	if days <= 0 {
		return DefaultSeriesDays
	}
	return min(days, MaxSeriesDays)
}

// GetSeries returns the points dated within the last days, newest first.
func (uc *AnalyticsUseCase) GetSeries(ctx context.Context, symbol string, days int) ([]models.PricePoint, error) {
	defer uc.observe(cache.OpStockData, time.Now())
	symbol = NormalizeSymbol(symbol)
	days = clampDays(days)
	return cache.GetOrLoad(ctx, uc.cache, cache.OpStockData, cache.StockDataTTL, nil,
		map[string]any{"symbol": symbol, "days": days},
		func(ctx context.Context) ([]models.PricePoint, error) {
			return uc.window(ctx, symbol, days)
		})
}

func (uc *AnalyticsUseCase) GetSummary(ctx context.Context, symbol string) (*models.SeriesSummary, error) {
	defer uc.observe(cache.OpStockSummary, time.Now())
	symbol = NormalizeSymbol(symbol)
	return cache.GetOrLoad(ctx, uc.cache, cache.OpStockSummary, cache.SummaryTTL, nil,
		map[string]any{"symbol": symbol},
		func(ctx context.Context) (*models.SeriesSummary, error) {
			return uc.store.GetSummary(ctx, symbol)
		})
}

// Compare correlates the closes two symbols share within the window and
// returns both windows with their summaries.
func (uc *AnalyticsUseCase) Compare(ctx context.Context, symbol1, symbol2 string, days int) (*models.Comparison, error) {
	defer uc.observe(cache.OpCompare, time.Now())
	symbol1, symbol2 = NormalizeSymbol(symbol1), NormalizeSymbol(symbol2)
	days = clampDays(days)
	return cache.GetOrLoad(ctx, uc.cache, cache.OpCompare, cache.CompareTTL, nil,
		map[string]any{"symbol1": symbol1, "symbol2": symbol2, "days": days},
		func(ctx context.Context) (*models.Comparison, error) {
			data1, err := uc.window(ctx, symbol1, days)
			if err != nil {
				return nil, err
			}
			data2, err := uc.window(ctx, symbol2, days)
			if err != nil {
				return nil, err
			}
			sum1, err := uc.store.GetSummary(ctx, symbol1)
			if err != nil {
				return nil, err
			}
			sum2, err := uc.store.GetSummary(ctx, symbol2)
			if err != nil {
				return nil, err
			}
			return &models.Comparison{
				Symbol1:        symbol1,
				Symbol2:        symbol2,
				Correlation:    features.Correlate(data1, data2),
				Symbol1Data:    data1,
				Symbol2Data:    data2,
				Symbol1Summary: sum1,
				Symbol2Summary: sum2,
			}, nil
		})
}

// GetInsights ranks the latest stored point of every symbol.
func (uc *AnalyticsUseCase) GetInsights(ctx context.Context, limit int) (*models.Insights, error) {
	defer uc.observe(cache.OpInsights, time.Now())
	if limit <= 0 {
		limit = DefaultInsightsLimit
	}
	return cache.GetOrLoad(ctx, uc.cache, cache.OpInsights, cache.InsightsTTL, nil,
		map[string]any{"limit": limit},
		func(ctx context.Context) (*models.Insights, error) {
			latest, err := uc.store.LatestPoints(ctx)
			if err != nil {
				return nil, fmt.Errorf("latest points: %w", err)
			}
			ins := RankInsights(latest, limit)
			ins.LastUpdated = uc.now()
			return ins, nil
		})
}

// RankInsights builds the three boards. Points without a daily return are
// left out of gainers and losers; points without a volatility score are left
// out of the volatility board. Losers are the tail of the gainer order,
// worst first.
func RankInsights(latest []models.SymbolPoint, limit int) *models.Insights {
	var byReturn, byVol []models.SymbolPoint
	for _, p := range latest {
		if p.DailyReturn != nil {
			byReturn = append(byReturn, p)
		}
		if p.VolatilityScore != nil {
			byVol = append(byVol, p)
		}
	}
	sort.SliceStable(byReturn, func(i, j int) bool {
		return *byReturn[i].DailyReturn > *byReturn[j].DailyReturn
	})
	sort.SliceStable(byVol, func(i, j int) bool {
		return *byVol[i].VolatilityScore > *byVol[j].VolatilityScore
	})

	ins := &models.Insights{
		TopGainers:   make([]models.InsightEntry, 0, min(limit, len(byReturn))),
		TopLosers:    make([]models.InsightEntry, 0, min(limit, len(byReturn))),
		MostVolatile: make([]models.InsightEntry, 0, min(limit, len(byVol))),
	}
	for _, p := range byReturn[:min(limit, len(byReturn))] {
		ins.TopGainers = append(ins.TopGainers, returnEntry(p))
	}
	for i := len(byReturn) - 1; i >= max(0, len(byReturn)-limit); i-- {
		ins.TopLosers = append(ins.TopLosers, returnEntry(byReturn[i]))
	}
	for _, p := range byVol[:min(limit, len(byVol))] {
		ins.MostVolatile = append(ins.MostVolatile, models.InsightEntry{
			Symbol:          p.Symbol,
			VolatilityScore: p.VolatilityScore,
			Close:           p.Close,
			Date:            p.Date,
		})
	}
	return ins
}

func returnEntry(p models.SymbolPoint) models.InsightEntry {
	return models.InsightEntry{
		Symbol:      p.Symbol,
		DailyReturn: p.DailyReturn,
		Close:       p.Close,
		Date:        p.Date,
	}
}

// Predict estimates the next close from the stored history window.
func (uc *AnalyticsUseCase) Predict(ctx context.Context, symbol string) (*models.PredictionResult, error) {
	defer uc.observe(cache.OpPrediction, time.Now())
	symbol = NormalizeSymbol(symbol)
	return cache.GetOrLoad(ctx, uc.cache, cache.OpPrediction, cache.PredictionTTL, nil,
		map[string]any{"symbol": symbol},
		func(ctx context.Context) (*models.PredictionResult, error) {
			history, err := uc.window(ctx, symbol, uc.historyDays)
			if err != nil {
				return nil, err
			}
			predicted, confidence := uc.predictor.PredictWithConfidence(ctx, history)
			if predicted == nil {
				return nil, fmt.Errorf("predict %s from %d points: %w", symbol, len(history), models.ErrInsufficientData)
			}
			return &models.PredictionResult{
				Symbol:         symbol,
				CurrentPrice:   history[0].Close,
				PredictedPrice: *predicted,
				Confidence:     confidence,
				PredictionDate: xutil.DateOnly(uc.now()),
			}, nil
		})
}
