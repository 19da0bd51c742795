package repository

import (
	"context"
	"time"

	"MarketLens/internal/domain/models"
)

// SeriesStore persists companies, processed series and their summaries.
type SeriesStore interface {
	Init(ctx context.Context) error // ensure tables
	ListCompanies(ctx context.Context, skip, limit int) ([]models.Company, error)
	GetCompany(ctx context.Context, symbol string) (*models.Company, error)
	UpsertCompany(ctx context.Context, c models.Company) error
	// GetSeries returns points with date >= since, ascending by date.
	GetSeries(ctx context.Context, symbol string, since time.Time) ([]models.PricePoint, error)
	UpsertSeries(ctx context.Context, symbol string, points []models.PricePoint) (int, error)
	GetSummary(ctx context.Context, symbol string) (*models.SeriesSummary, error)
	UpsertSummary(ctx context.Context, s models.SeriesSummary) error
	// LatestPoints returns the most recent stored point of every symbol.
	LatestPoints(ctx context.Context) ([]models.SymbolPoint, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// SeriesSource retrieves a raw daily series from an external provider.
type SeriesSource interface {
	Name() string
	Fetch(ctx context.Context, symbol, period string) (*models.RawFrame, error)
}

// EventPublisher announces refreshed series to other instances.
type EventPublisher interface {
	PublishRefresh(ctx context.Context, ev models.RefreshEvent) error
	Close() error
}

type Metrics interface {
	RecordFetch(source, outcome string)
	RecordCacheLookup(op string, hit bool)
	RecordCollect(symbol string, ok bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
