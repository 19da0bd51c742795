package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"MarketLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *SQLiteSeriesStore {
	t.Helper()
	s, err := NewSQLiteSeriesStore(filepath.Join(t.TempDir(), "series.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, s.Init(context.Background()))
	return s
}

func d(day int) time.Time { return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC) }

func pt(day int, close float64) models.PricePoint {
	return models.PricePoint{
		Date: d(day), Open: close - 1, High: close + 1, Low: close - 2, Close: close, Volume: 100,
		DailyReturn: models.Float(close / 100),
	}
}

func TestSQLiteCompanies(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	for _, c := range models.DefaultCompanies[:4] {
		require.NoError(t, s.UpsertCompany(ctx, c))
	}
	renamed := models.DefaultCompanies[0]
	renamed.Name = "Renamed"
	require.NoError(t, s.UpsertCompany(ctx, renamed))

	all, err := s.ListCompanies(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "HDFCBANK.NS", all[0].Symbol)

	page, err := s.ListCompanies(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, all[1:3], page)

	c, err := s.GetCompany(ctx, renamed.Symbol)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", c.Name)

	_, err = s.GetCompany(ctx, "NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSQLiteSeriesUpsertAndWindow(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()

	n, err := s.UpsertSeries(ctx, "TCS.NS", []models.PricePoint{pt(1, 10), pt(2, 11), pt(3, 12)})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = s.UpsertSeries(ctx, "TCS.NS", []models.PricePoint{pt(3, 13), pt(4, 14)})
	require.NoError(t, err)

	got, err := s.GetSeries(ctx, "TCS.NS", d(2))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, d(2), got[0].Date)
	assert.Equal(t, 13.0, got[1].Close)
	assert.Equal(t, 14.0, got[2].Close)
	require.NotNil(t, got[2].DailyReturn)
	assert.Nil(t, got[2].MovingAvg7)

	none, err := s.GetSeries(ctx, "INFY.NS", d(1))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteSummary(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()

	_, err := s.GetSummary(ctx, "TCS.NS")
	assert.ErrorIs(t, err, models.ErrNotFound)

	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertSummary(ctx, models.SeriesSummary{
		Symbol: "TCS.NS", Week52High: models.Float(20), Week52Low: models.Float(5), UpdatedAt: at,
	}))
	require.NoError(t, s.UpsertSummary(ctx, models.SeriesSummary{
		Symbol: "TCS.NS", Week52High: models.Float(21), Week52Low: models.Float(5),
		AvgClose: models.Float(12), CurrentPrice: models.Float(14), UpdatedAt: at,
	}))

	sum, err := s.GetSummary(ctx, "TCS.NS")
	require.NoError(t, err)
	assert.Equal(t, 21.0, *sum.Week52High)
	assert.Equal(t, 14.0, *sum.CurrentPrice)
	assert.True(t, at.Equal(sum.UpdatedAt))
}

func TestSQLiteLatestPoints(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	_, err := s.UpsertSeries(ctx, "B.NS", []models.PricePoint{pt(1, 10), pt(5, 15)})
	require.NoError(t, err)
	_, err = s.UpsertSeries(ctx, "A.NS", []models.PricePoint{pt(2, 20), pt(3, 30)})
	require.NoError(t, err)

	latest, err := s.LatestPoints(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "A.NS", latest[0].Symbol)
	assert.Equal(t, d(3), latest[0].Date)
	assert.Equal(t, "B.NS", latest[1].Symbol)
	assert.Equal(t, 15.0, latest[1].Close)

	require.NoError(t, s.Health(ctx))
}
