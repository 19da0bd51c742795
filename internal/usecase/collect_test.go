package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/service/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct{}

func (fakeLookup) Company(_ context.Context, symbol string) (*models.Company, error) {
	return &models.Company{Symbol: symbol, Name: "Looked Up", Exchange: "NMS", Sector: "Technology"}, nil
}

func newCollect(store *memStore, fetcher *fakeFetcher, rc *cache.ResponseCache, opts ...CollectOption) *CollectUseCase {
	opts = append([]CollectOption{
		WithPause(0),
		WithCollectClock(func() time.Time { return today }),
	}, opts...)
	return NewCollectUseCase(store, fetcher, rc, nil, opts...)
}

func TestCollectIsolatesFailures(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{
		series: map[string][]models.PricePoint{"TCS.NS": rawSeries(40, 100), "INFY.NS": rawSeries(40, 50)},
		fail:   map[string]error{"BAD.NS": models.ErrDataUnavailable},
	}
	pub := &fakePublisher{}
	uc := newCollect(store, fetcher, nil, WithPublisher(pub))

	report, err := uc.CollectAndStore(context.Background(), []string{"tcs.ns", "BAD.NS", "INFY.NS", "TCS.NS"}, "", true)
	require.NoError(t, err)
	assert.Equal(t, DefaultPeriod, report.Period)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"TCS.NS", "INFY.NS"}, report.Succeeded)
	require.Contains(t, report.Failed, "BAD.NS")
	assert.Contains(t, report.Failed["BAD.NS"], "data unavailable")
	assert.Equal(t, 80, report.Records)
	assert.Equal(t, []string{"TCS.NS", "BAD.NS", "INFY.NS"}, fetcher.calls)

	stored, err := store.GetSeries(context.Background(), "TCS.NS", day(-100))
	require.NoError(t, err)
	assert.Len(t, stored, 40)
	assert.NotNil(t, stored[0].DailyReturn)

	sum, err := store.GetSummary(context.Background(), "INFY.NS")
	require.NoError(t, err)
	assert.InDelta(t, 89, models.Value(sum.CurrentPrice), 1e-9)
	assert.Equal(t, today, sum.UpdatedAt)

	c, err := store.GetCompany(context.Background(), "TCS.NS")
	require.NoError(t, err)
	assert.Equal(t, "NSE", c.Exchange)

	require.Len(t, pub.events, 2)
	assert.Equal(t, report.RunID, pub.events[0].RunID)
	assert.Equal(t, "TCS.NS", pub.events[0].Symbol)
	assert.Equal(t, day(0), pub.events[0].LatestDate)
}

func TestCollectAllSeedsCompanies(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{series: map[string][]models.PricePoint{"TCS.NS": rawSeries(10, 100)}}
	uc := newCollect(store, fetcher, nil)

	report, err := uc.CollectAndStore(context.Background(), nil, "6mo", false)
	require.NoError(t, err)
	assert.Len(t, fetcher.calls, len(models.DefaultCompanies))
	assert.Equal(t, []string{"TCS.NS"}, report.Succeeded)
	assert.Len(t, report.Failed, len(models.DefaultCompanies)-1)
}

func TestSeedCompaniesOnlyWhenEmpty(t *testing.T) {
	store := newMemStore()
	uc := newCollect(store, &fakeFetcher{}, nil)

	n, err := uc.SeedCompanies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(models.DefaultCompanies), n)

	n, err = uc.SeedCompanies(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollectUsesCompanyLookup(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{series: map[string][]models.PricePoint{"AAPL": rawSeries(10, 100)}}
	uc := newCollect(store, fetcher, nil, WithCompanyLookup(fakeLookup{}))

	_, err := uc.CollectAndStore(context.Background(), []string{"aapl"}, "1y", true)
	require.NoError(t, err)
	c, err := store.GetCompany(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Looked Up", c.Name)
}

func TestCollectClearsDerivedCache(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.UpsertCompany(context.Background(), models.Company{Symbol: "TCS.NS"}))
	rc := cache.NewResponseCache(cache.WithClock(func() time.Time { return today }))
	rc.Set(cache.OpStockData, "stale", time.Hour, nil, map[string]any{"symbol": "TCS.NS", "days": 30})
	rc.Set(cache.OpInsights, "stale", time.Hour, nil, map[string]any{"limit": 10})
	rc.Set(cache.OpCompanies, "kept", time.Hour, nil, map[string]any{"skip": 0, "limit": 100})

	fetcher := &fakeFetcher{series: map[string][]models.PricePoint{"TCS.NS": rawSeries(10, 100)}}
	uc := newCollect(store, fetcher, rc)
	_, err := uc.CollectAndStore(context.Background(), []string{"TCS.NS"}, "1y", true)
	require.NoError(t, err)

	assert.Equal(t, 1, rc.Len())
	_, ok := rc.Get(cache.OpCompanies, nil, map[string]any{"skip": 0, "limit": 100})
	assert.True(t, ok)
}

func TestCollectRespectsSharedLock(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{series: map[string][]models.PricePoint{"TCS.NS": rawSeries(10, 100)}}
	locker := &fakeLocker{held: true}
	uc := newCollect(store, fetcher, nil, WithLocker(locker, time.Minute))

	_, err := uc.CollectAndStore(context.Background(), []string{"TCS.NS"}, "1y", true)
	assert.ErrorIs(t, err, ErrCollectRunning)
	assert.Empty(t, fetcher.calls)

	locker.held = false
	_, err = uc.CollectAndStore(context.Background(), []string{"TCS.NS"}, "1y", true)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.unlocked)
	assert.False(t, locker.held)
}

func TestCollectRunsWhenLockBackendFails(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]models.PricePoint{"TCS.NS": rawSeries(10, 100)}}
	uc := newCollect(newMemStore(), fetcher, nil, WithLocker(&fakeLocker{err: errBoom}, time.Minute))

	report, err := uc.CollectAndStore(context.Background(), []string{"TCS.NS"}, "1y", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"TCS.NS"}, report.Succeeded)
}

func TestCollectStopsPausingOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]models.PricePoint{
		"TCS.NS": rawSeries(10, 100), "INFY.NS": rawSeries(10, 50), "LT.NS": rawSeries(10, 20),
	}}
	uc := newCollect(newMemStore(), fetcher, nil, WithPause(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := uc.CollectAndStore(ctx, []string{"TCS.NS", "INFY.NS", "LT.NS"}, "1y", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"TCS.NS"}, report.Succeeded)
	assert.Len(t, report.Failed, 2)
	assert.Equal(t, []string{"TCS.NS"}, fetcher.calls)
}

func TestPublishFailureDoesNotFailSymbol(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string][]models.PricePoint{"TCS.NS": rawSeries(10, 100)}}
	uc := newCollect(newMemStore(), fetcher, nil, WithPublisher(&fakePublisher{err: errBoom}))

	report, err := uc.CollectAndStore(context.Background(), []string{"TCS.NS"}, "1y", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"TCS.NS"}, report.Succeeded)
}

func TestCollectJobHandlesQueuedPayload(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{series: map[string][]models.PricePoint{"TCS.NS": rawSeries(10, 100)}}
	job := NewCollectJob(newCollect(store, fetcher, nil))

	assert.Equal(t, JobTypeCollect, job.Type())
	payload := json.RawMessage(`{"symbols":["TCS.NS"],"period":"1y","allow_fallback":true}`)
	require.NoError(t, job.Handle(context.Background(), payload))
	assert.Equal(t, []string{"TCS.NS"}, fetcher.calls)

	assert.Error(t, job.Handle(context.Background(), json.RawMessage(`"TCS.NS"`)))
}

func TestRefreshHandlerClearsDerivedCache(t *testing.T) {
	rc := cache.NewResponseCache(cache.WithClock(func() time.Time { return today }))
	h := NewRefreshHandler("marketlens.refresh", "node-a", rc, nil, nil)
	assert.Equal(t, "marketlens.refresh", h.Topic())

	fill := func() {
		rc.Set(cache.OpPrediction, "p", time.Hour, nil, map[string]any{"symbol": "TCS.NS"})
		rc.Set(cache.OpCompany, "c", time.Hour, nil, map[string]any{"symbol": "TCS.NS"})
	}
	msg := func(origin string) []byte {
		b, _ := json.Marshal(models.RefreshMessage{
			Type:   models.EventSeriesRefreshed,
			Origin: origin,
			Event:  models.RefreshEvent{Symbol: "TCS.NS", At: today},
		})
		return b
	}

	fill()
	require.NoError(t, h.Handle(context.Background(), msg("node-a")))
	assert.Equal(t, 2, rc.Len())

	require.NoError(t, h.Handle(context.Background(), msg("node-b")))
	assert.Equal(t, 1, rc.Len())

	assert.Error(t, h.Handle(context.Background(), []byte("{")))
}
