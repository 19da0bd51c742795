package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"MarketLens/internal/domain/models"
)

type memStore struct {
	mu        sync.Mutex
	companies map[string]models.Company
	series    map[string][]models.PricePoint
	summaries map[string]models.SeriesSummary
	seriesErr error
	reads     int
}

func newMemStore() *memStore {
	return &memStore{
		companies: map[string]models.Company{},
		series:    map[string][]models.PricePoint{},
		summaries: map[string]models.SeriesSummary{},
	}
}

func (s *memStore) Init(context.Context) error { return nil }

func (s *memStore) ListCompanies(_ context.Context, skip, limit int) ([]models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	if skip >= len(out) {
		return []models.Company{}, nil
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) GetCompany(_ context.Context, symbol string) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[symbol]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (s *memStore) UpsertCompany(_ context.Context, c models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.Symbol] = c
	return nil
}

func (s *memStore) GetSeries(_ context.Context, symbol string, since time.Time) ([]models.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.seriesErr != nil {
		return nil, s.seriesErr
	}
	var out []models.PricePoint
	for _, p := range s.series[symbol] {
		if !p.Date.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) UpsertSeries(_ context.Context, symbol string, points []models.PricePoint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDate := map[time.Time]models.PricePoint{}
	for _, p := range s.series[symbol] {
		byDate[p.Date] = p
	}
	for _, p := range points {
		byDate[p.Date] = p
	}
	merged := make([]models.PricePoint, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	s.series[symbol] = merged
	return len(points), nil
}

func (s *memStore) GetSummary(_ context.Context, symbol string) (*models.SeriesSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[symbol]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &sum, nil
}

func (s *memStore) UpsertSummary(_ context.Context, sum models.SeriesSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.Symbol] = sum
	return nil
}

func (s *memStore) LatestPoints(context.Context) ([]models.SymbolPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SymbolPoint
	for sym, pts := range s.series {
		if len(pts) > 0 {
			out = append(out, models.SymbolPoint{Symbol: sym, PricePoint: pts[len(pts)-1]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

type fakeFetcher struct {
	mu     sync.Mutex
	series map[string][]models.PricePoint
	fail   map[string]error
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, symbol, _ string, _ bool) ([]models.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	if s, ok := f.series[symbol]; ok {
		return s, nil
	}
	return nil, models.ErrDataUnavailable
}

type fakePredictor struct {
	value      *float64
	confidence float64
	got        []models.PricePoint
}

func (p *fakePredictor) PredictWithConfidence(_ context.Context, series []models.PricePoint) (*float64, float64) {
	p.got = series
	return p.value, p.confidence
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.RefreshEvent
	err    error
}

func (p *fakePublisher) PublishRefresh(_ context.Context, ev models.RefreshEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

type fakeLocker struct {
	held     bool
	err      error
	unlocked int
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) Unlock(context.Context, string) error {
	l.held = false
	l.unlocked++
	return nil
}

var errBoom = errors.New("boom")

var today = time.Date(2024, 6, 14, 15, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

// rawSeries is n consecutive raw days ending today with a steady drift.
func rawSeries(n int, start float64) []models.PricePoint {
	out := make([]models.PricePoint, n)
	for i := range out {
		c := start + float64(i)
		out[i] = models.PricePoint{
			Date:   day(i - n + 1),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: int64(1000 + i),
		}
	}
	return out
}
