package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnjoon/go-yfinance/pkg/models"
)

const chartBody = `{"chart":{"result":[{"timestamp":[1704153600,1704240000,1704326400],
"indicators":{"quote":[{"open":[10.0,null,12.0],"high":[11.0,12.5,13.0],"low":[9.5,10.5,11.5],
"close":[10.5,12.0,12.5],"volume":[1000,null,3000]}]}}],"error":null}}`

func TestChartFetch(t *testing.T) {
	var gotPath, gotRange, gotInterval, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	src := NewChartSource(srv.URL, "marketlens-test", time.Second, nil)
	f, err := src.Fetch(context.Background(), "TCS.NS", "1y")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/TCS.NS", gotPath)
	assert.Equal(t, "1y", gotRange)
	assert.Equal(t, "1d", gotInterval)
	assert.Equal(t, "marketlens-test", gotUA)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, int64(1704153600), f.Columns["timestamp"][0])
	assert.Nil(t, f.Columns["open"][1])
	assert.Nil(t, f.Columns["volume"][1])
	assert.Equal(t, 12.5, f.Columns["close"][2])
}

func TestChartFetchProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := NewChartSource(srv.URL, "", time.Second, nil).Fetch(context.Background(), "NOPE", "1y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestChartFetchHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewChartSource(srv.URL, "", time.Second, nil).Fetch(context.Background(), "TCS.NS", "1y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChartFetchNotFoundCarriesProviderReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := NewChartSource(srv.URL, "", time.Second, nil).Fetch(context.Background(), "GONE.NS", "1y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestChartFetchEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	f, err := NewChartSource(srv.URL, "", time.Second, nil).Fetch(context.Background(), "TCS.NS", "1y")
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
}

func TestBarsToFrame(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := barsToFrame([]models.Bar{
		{Date: d, Open: 1, High: 2, Low: 0.5, Close: 1.5, AdjClose: 1.4, Volume: 100},
	})

	require.Equal(t, 1, f.Len())
	assert.Equal(t, d, f.Index[0])
	assert.Equal(t, 1.5, f.Columns["Close"][0])
	assert.Equal(t, 1.4, f.Columns["Adj Close"][0])
	assert.Equal(t, int64(100), f.Columns["Volume"][0])
}

func TestYFinanceFetchHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewYFinanceSource(nil).Fetch(ctx, "TCS.NS", "1y")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompanyFromInfo(t *testing.T) {
	c := companyFromInfo("tcs.ns", &models.Info{
		LongName: "Tata Consultancy Services Limited",
		Exchange: "NSI",
		Sector:   "Technology",
		Industry: "Information Technology Services",
	})
	assert.Equal(t, "TCS.NS", c.Symbol)
	assert.Equal(t, "Tata Consultancy Services Limited", c.Name)
	assert.Equal(t, "NSI", c.Exchange)
	assert.Equal(t, "Technology", c.Sector)

	c = companyFromInfo("ABC.NS", &models.Info{ShortName: "ABC"})
	assert.Equal(t, "ABC", c.Name)

	c = companyFromInfo("XYZ.NS", &models.Info{})
	assert.Equal(t, "XYZ.NS", c.Name)
	assert.Equal(t, "NSE", c.Exchange)
	assert.Equal(t, "Unknown", c.Sector)
}
