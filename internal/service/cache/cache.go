package cache

import (
	"context"
	"time"
)

// Operation names double as key prefixes, so Clear(op) drops one family.
const (
	OpCompanies    = "companies"
	OpCompany      = "company"
	OpStockData    = "stock_data"
	OpStockSummary = "stock_summary"
	OpCompare      = "compare"
	OpInsights     = "insights"
	OpPrediction   = "prediction"
)

// TTLs per operation.
const (
	CompaniesTTL  = 600 * time.Second
	CompanyTTL    = 600 * time.Second
	StockDataTTL  = 300 * time.Second
	SummaryTTL    = 600 * time.Second
	CompareTTL    = 300 * time.Second
	InsightsTTL   = 120 * time.Second
	PredictionTTL = 3600 * time.Second
)

// SeriesDerived lists the operations whose results depend on stored series.
// A collect run invalidates all of them.
var SeriesDerived = []string{OpStockData, OpStockSummary, OpCompare, OpInsights, OpPrediction}

// Mirror is a shared second level behind the in-process cache.
// pkg/cache.RedisCache satisfies it.
type Mirror interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	DeleteByPattern(ctx context.Context, pattern string) error
}
