package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "marketlens", r.Header.Get("User-Agent"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "x", r.URL.Query().Get("keep"))
		_, _ = w.Write([]byte(`{"close":12.5}`))
	}))
	defer srv.Close()

	var out struct {
		Close float64 `json:"close"`
	}
	err := NewClient(time.Second, "marketlens").GetJSON(context.Background(), srv.URL+"/q?keep=x", url.Values{"interval": {"1d"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 12.5, out.Close)
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	err := NewClient(time.Second, "").GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, "slow down", string(se.Body))
}
