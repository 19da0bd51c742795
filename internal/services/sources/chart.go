package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/domain/repository"
	xhttp "MarketLens/pkg/http"
	applogger "MarketLens/pkg/logger"
)

const (
	NameChart        = "chart"
	DefaultChartBase = "https://query1.finance.yahoo.com"
	defaultUserAgent = "Mozilla/5.0"
)

// ChartSource reads the public v8 chart endpoint directly.
type ChartSource struct {
	client  *xhttp.Client
	baseURL string
	logger  *applogger.Logger
}

func NewChartSource(baseURL, userAgent string, timeout time.Duration, logger *applogger.Logger) *ChartSource {
	if baseURL == "" {
		baseURL = DefaultChartBase
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	return &ChartSource{
		client:  xhttp.NewClient(timeout, userAgent),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("chart"),
	}
}

func (s *ChartSource) Name() string { return NameChart }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns the daily chart for symbol over period. Null cells are kept
// as nil so the gateway can decide what a missing value means.
func (s *ChartSource) Fetch(ctx context.Context, symbol, period string) (*models.RawFrame, error) {
	var resp chartResponse
	err := s.client.GetJSON(ctx, s.baseURL+"/v8/finance/chart/"+url.PathEscape(symbol),
		url.Values{"interval": {"1d"}, "range": {period}}, &resp)
	var se *xhttp.StatusError
	if errors.As(err, &se) && json.Unmarshal(se.Body, &resp) == nil && resp.Chart.Error != nil {
		// unknown symbols come back as 404 with the reason in the body
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s: %s", symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return &models.RawFrame{}, nil
	}

	res := resp.Chart.Result[0]
	f := &models.RawFrame{Columns: map[string][]any{}}
	f.Columns["timestamp"] = make([]any, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		f.Columns["timestamp"][i] = ts
	}
	if len(res.Indicators.Quote) == 0 {
		return f, nil
	}
	q := res.Indicators.Quote[0]
	f.Columns["open"] = nullable(q.Open)
	f.Columns["high"] = nullable(q.High)
	f.Columns["low"] = nullable(q.Low)
	f.Columns["close"] = nullable(q.Close)
	f.Columns["volume"] = nullable(q.Volume)

	s.logger.Debug("chart fetched", applogger.Symbol(symbol), applogger.Int("rows", len(res.Timestamp)))
	return f, nil
}

func nullable(vals []*float64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

var _ repository.SeriesSource = (*ChartSource)(nil)
