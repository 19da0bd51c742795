package synthetic

import (
	"math"
	"testing"
	"time"

	xutil "MarketLens/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedToday = time.Date(2024, 6, 14, 10, 30, 0, 0, time.UTC) // a Friday

func TestGenerateIsDeterministic(t *testing.T) {
	a := GenerateAt("RELIANCE.NS", 120, fixedToday)
	b := GenerateAt("RELIANCE.NS", 120, fixedToday)
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
}

func TestGenerateDiffersPerSymbol(t *testing.T) {
	a := GenerateAt("TCS.NS", 30, fixedToday)
	b := GenerateAt("INFY.NS", 30, fixedToday)
	require.Equal(t, len(a), len(b))
	assert.NotEqual(t, a[len(a)-1].Close, b[len(b)-1].Close)
}

func TestSeedIsFNV1a(t *testing.T) {
	// FNV-1a 64 offset basis for the empty input.
	assert.Equal(t, uint64(0xcbf29ce484222325), Seed(""))
	assert.Equal(t, uint64(0xaf63dc4c8601ec8c), Seed("a"))
}

func TestGenerateOHLCInvariant(t *testing.T) {
	for _, sym := range []string{"RELIANCE.NS", "WIPRO.NS", "UNKNOWN"} {
		for _, p := range GenerateAt(sym, 365, fixedToday) {
			assert.GreaterOrEqual(t, p.High, math.Max(p.Open, p.Close), sym)
			assert.LessOrEqual(t, p.Low, math.Min(p.Open, p.Close), sym)
			assert.Greater(t, p.Close, 0.0)
			assert.GreaterOrEqual(t, p.Volume, int64(1_000_000))
		}
	}
}

func TestGenerateBusinessDaysOnly(t *testing.T) {
	points := GenerateAt("TESTCO", 400, fixedToday)
	want := xutil.BusinessDays(fixedToday.AddDate(0, 0, -400), fixedToday)
	require.Len(t, points, len(want))
	for i, p := range points {
		assert.True(t, xutil.IsBusinessDay(p.Date))
		assert.True(t, want[i].Equal(p.Date))
		if i > 0 {
			assert.True(t, p.Date.After(points[i-1].Date))
		}
	}
	assert.True(t, points[len(points)-1].Date.Equal(xutil.DateOnly(fixedToday)))
}

func TestGeneratePricesRoundedToCents(t *testing.T) {
	for _, p := range GenerateAt("TESTCO", 60, fixedToday) {
		for _, v := range []float64{p.Open, p.High, p.Low, p.Close} {
			assert.InDelta(t, math.Round(v*100)/100, v, 1e-9)
		}
	}
}

func TestGenerateUnknownSymbolStartsNearDefaultBase(t *testing.T) {
	points := GenerateAt("TESTCO", 10, fixedToday)
	require.NotEmpty(t, points)
	assert.InDelta(t, DefaultBasePrice, points[0].Close, DefaultBasePrice*0.1)
}

func TestGenerateZeroDaysOnWeekend(t *testing.T) {
	saturday := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, GenerateAt("TESTCO", 0, saturday))
}

func TestGeneratorUsesClock(t *testing.T) {
	g := New(func() time.Time { return fixedToday })
	assert.Equal(t, GenerateAt("ITC.NS", 30, fixedToday), g.Generate("ITC.NS", 30))
}
