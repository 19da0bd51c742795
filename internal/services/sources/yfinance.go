package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	dmodels "MarketLens/internal/domain/models"
	"MarketLens/internal/domain/repository"
	applogger "MarketLens/pkg/logger"
)

const NameYFinance = "yfinance"

// YFinanceSource pulls daily history through the go-yfinance client.
// The client has no context support, so each call runs in its own goroutine
// and is abandoned when ctx ends.
type YFinanceSource struct {
	logger *applogger.Logger
}

func NewYFinanceSource(logger *applogger.Logger) *YFinanceSource {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &YFinanceSource{logger: logger.With("yfinance")}
}

func (s *YFinanceSource) Name() string { return NameYFinance }

type historyResult struct {
	bars []models.Bar
	err  error
}

// Fetch returns one row per bar with the date kept in the frame index.
func (s *YFinanceSource) Fetch(ctx context.Context, symbol, period string) (*dmodels.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan historyResult, 1)
	go func() {
		bars, err := s.history(symbol, period)
		done <- historyResult{bars: bars, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return barsToFrame(res.bars), nil
	}
}

func (s *YFinanceSource) history(symbol, period string) ([]models.Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("create ticker %s: %w", symbol, err)
	}
	defer t.Close()

	bars, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: false,
	})
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	s.logger.Debug("history fetched", applogger.Symbol(symbol), applogger.Int("bars", len(bars)))
	return bars, nil
}

func barsToFrame(bars []models.Bar) *dmodels.RawFrame {
	f := &dmodels.RawFrame{
		Index: make([]any, len(bars)),
		Columns: map[string][]any{
			"Open":      make([]any, len(bars)),
			"High":      make([]any, len(bars)),
			"Low":       make([]any, len(bars)),
			"Close":     make([]any, len(bars)),
			"Adj Close": make([]any, len(bars)),
			"Volume":    make([]any, len(bars)),
		},
	}
	for i, b := range bars {
		f.Index[i] = b.Date
		f.Columns["Open"][i] = b.Open
		f.Columns["High"][i] = b.High
		f.Columns["Low"][i] = b.Low
		f.Columns["Close"][i] = b.Close
		f.Columns["Adj Close"][i] = b.AdjClose
		f.Columns["Volume"][i] = int64(b.Volume)
	}
	return f
}

// Company looks up the listing name, exchange and sector.
func (s *YFinanceSource) Company(ctx context.Context, symbol string) (*dmodels.Company, error) {
	type result struct {
		c   *dmodels.Company
		err error
	}
	done := make(chan result, 1)
	go func() {
		t, err := ticker.New(symbol)
		if err != nil {
			done <- result{err: fmt.Errorf("create ticker %s: %w", symbol, err)}
			return
		}
		defer t.Close()
		info, err := t.Info()
		if err != nil || info == nil {
			done <- result{err: fmt.Errorf("info %s: %w", symbol, err)}
			return
		}
		done <- result{c: companyFromInfo(symbol, info)}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.c, r.err
	}
}

var _ repository.SeriesSource = (*YFinanceSource)(nil)

// companyFromInfo maps provider metadata, defaulting the name to the symbol,
// the exchange to NSE and the sector to Unknown.
func companyFromInfo(symbol string, info *models.Info) *dmodels.Company {
	c := &dmodels.Company{
		Symbol:   strings.ToUpper(symbol),
		Name:     info.LongName,
		Exchange: info.Exchange,
		Sector:   info.Sector,
	}
	if c.Name == "" {
		c.Name = info.ShortName
	}
	if c.Name == "" {
		c.Name = c.Symbol
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.Sector == "" {
		c.Sector = "Unknown"
	}
	return c
}
