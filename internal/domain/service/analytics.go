package service

import (
	"context"

	"MarketLens/internal/domain/models"
)

// SeriesFetcher retrieves a normalized raw series, optionally falling back to synthetic data.
type SeriesFetcher interface {
	Fetch(ctx context.Context, symbol, period string, allowFallback bool) ([]models.PricePoint, error)
}

// PriceForecaster estimates the next close of a cleaned series.
type PriceForecaster interface {
	PredictWithConfidence(ctx context.Context, series []models.PricePoint) (*float64, float64)
}
