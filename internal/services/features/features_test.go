package features

import (
	"math"
	"testing"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/services/synthetic"
	xutil "MarketLens/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func point(offset int, o, h, l, c float64, v int64) models.PricePoint {
	return models.PricePoint{Date: day0.AddDate(0, 0, offset), Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestCleanFillsAndDrops(t *testing.T) {
	nan := math.NaN()
	raw := []models.PricePoint{
		point(0, nan, 11, 9, 10, models.MissingVolume),
		point(1, 10.5, nan, 10, 10.8, 200),
		point(2, 11, 12, 10, 11.5, 300),
		point(3, 12, 13, 11, 0, 400),  // dropped: close <= 0
		point(4, 12, 13, 11, -5, 400), // dropped: close <= 0
	}
	got := Clean(raw)
	require.Len(t, got, 3)

	// open and volume back-filled from the next row
	assert.Equal(t, 10.5, got[0].Open)
	assert.Equal(t, int64(200), got[0].Volume)
	// high forward-filled from the previous row
	assert.Equal(t, 11.0, got[1].High)
	assert.True(t, math.IsNaN(raw[0].Open), "input must not be mutated")
}

func TestCleanSortsAndTruncatesDates(t *testing.T) {
	late := point(2, 11, 12, 10, 11.5, 300)
	late.Date = late.Date.Add(15 * time.Hour)
	got := Clean([]models.PricePoint{
		late,
		point(0, 10, 11, 9, 10, 100),
		point(1, 10, 11, 9, 10.5, 100),
	})
	require.Len(t, got, 3)
	assert.True(t, got[0].Date.Equal(day0))
	assert.True(t, got[1].Date.Equal(day0.AddDate(0, 0, 1)))
	assert.True(t, got[2].Date.Equal(day0.AddDate(0, 0, 2)))
}

func TestCleanZeroFillsAllMissingColumn(t *testing.T) {
	nan := math.NaN()
	got := Clean([]models.PricePoint{
		point(0, nan, 11, 9, 10, 100),
		point(1, nan, 12, 9, 11, 100),
	})
	require.Len(t, got, 2)
	assert.Equal(t, 0.0, got[0].Open)
	assert.Equal(t, 0.0, got[1].Open)
	// low widened to cover the zero open
	assert.Equal(t, 0.0, got[0].Low)
}

func TestCleanKeepsLastDuplicateDate(t *testing.T) {
	got := Clean([]models.PricePoint{
		point(0, 10, 11, 9, 10, 100),
		point(0, 10, 11, 9, 10.5, 120),
	})
	require.Len(t, got, 1)
	assert.Equal(t, 10.5, got[0].Close)
}

func TestCleanEmpty(t *testing.T) {
	assert.Empty(t, Clean(nil))
	assert.Empty(t, Process(nil))
}

func TestCleanEnforcesOHLCInvariant(t *testing.T) {
	got := Clean([]models.PricePoint{point(0, 10, 9, 11, 12, 1)})
	require.Len(t, got, 1)
	assert.GreaterOrEqual(t, got[0].High, math.Max(got[0].Open, got[0].Close))
	assert.LessOrEqual(t, got[0].Low, math.Min(got[0].Open, got[0].Close))
}

func TestDailyReturns(t *testing.T) {
	got := DailyReturns([]models.PricePoint{
		point(0, 100, 110, 90, 105, 1),
		point(1, 0, 1, 0, 1, 1),
	})
	assert.InDelta(t, 5.0, got[0], 1e-12)
	assert.Equal(t, 0.0, got[1])
}

func TestMovingAverageFirstPointEqualsClose(t *testing.T) {
	series := Process(synthetic.GenerateAt("RELIANCE.NS", 60, day0.AddDate(0, 6, 0)))
	require.NotEmpty(t, series)
	assert.Equal(t, series[0].Close, *series[0].MovingAvg7)

	ma := MovingAverage7(series)
	var sum float64
	for _, p := range series[3:10] {
		sum += p.Close
	}
	assert.InDelta(t, sum/7, ma[9], 1e-9)
}

func TestRollingMeanMinPeriodsOne(t *testing.T) {
	assert.Equal(t, []float64{1, 1.5, 2, 3}, RollingMean([]float64{1, 2, 3, 4}, 3))
}

func TestVolatilityFirstPointZeroAfterProcess(t *testing.T) {
	vol := Volatility([]float64{1, 3})
	assert.True(t, math.IsNaN(vol[0]))
	assert.InDelta(t, math.Sqrt2, vol[1], 1e-12)

	series := Process([]models.PricePoint{
		point(0, 100, 102, 99, 101, 10),
		point(1, 101, 104, 100, 103, 20),
	})
	assert.Equal(t, 0.0, *series[0].VolatilityScore)
	assert.Greater(t, *series[1].VolatilityScore, 0.0)
}

func TestPctChangeFirstAndUndefinedAreZero(t *testing.T) {
	got := PctChange([]float64{0, 5, 10})
	assert.Equal(t, []float64{0, 0, 1}, got)
}

func TestSentiment(t *testing.T) {
	series := []models.PricePoint{
		point(0, 100, 101, 99, 100, 1000),
		point(1, 100, 111, 99, 110, 2000),
		point(2, 110, 111, 98, 99, 1000),
	}
	got := Sentiment(series)
	raw1 := (0.7*0.1 + 0.3*1*1.0) * 100
	raw2 := (0.7*-0.1 + 0.3*-1*-0.5) * 100
	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, raw1/2, got[1], 1e-9)
	assert.InDelta(t, (raw1+raw2)/3, got[2], 1e-9)
}

func TestProcessAttachesFeaturesWithoutNaN(t *testing.T) {
	series := Process(synthetic.GenerateAt("TCS.NS", 120, day0.AddDate(0, 6, 0)))
	require.NotEmpty(t, series)
	for _, p := range series {
		for _, f := range []*float64{p.DailyReturn, p.MovingAvg7, p.VolatilityScore, p.SentimentIndex} {
			require.NotNil(t, f)
			assert.False(t, math.IsNaN(*f))
		}
		assert.GreaterOrEqual(t, *p.VolatilityScore, 0.0)
	}
}

func TestComputeSummary(t *testing.T) {
	series := []models.PricePoint{
		point(0, 10, 12, 8, 11, 1),
		point(1, 11, 15, 10, 14, 1),
		point(2, 14, 14, 9, 10, 1),
	}
	s := ComputeSummary("ABC", series)
	assert.Equal(t, "ABC", s.Symbol)
	assert.Equal(t, 15.0, *s.Week52High)
	assert.Equal(t, 8.0, *s.Week52Low)
	assert.InDelta(t, 35.0/3, *s.AvgClose, 1e-12)
	assert.Equal(t, 10.0, *s.CurrentPrice)
}

func TestComputeSummaryUsesTrailingYear(t *testing.T) {
	series := make([]models.PricePoint, 300)
	for i := range series {
		series[i] = point(i, 10, 11, 9, 10, 1)
	}
	series[0].High = 1000 // outside the trailing 252 points
	s := ComputeSummary("ABC", series)
	assert.Equal(t, 11.0, *s.Week52High)
}

func TestComputeSummaryEmpty(t *testing.T) {
	s := ComputeSummary("ABC", nil)
	assert.Nil(t, s.Week52High)
	assert.Nil(t, s.Week52Low)
	assert.Nil(t, s.AvgClose)
	assert.Nil(t, s.CurrentPrice)
}

func TestCorrelateSymmetricAndSelf(t *testing.T) {
	today := day0.AddDate(0, 6, 0)
	a := Process(synthetic.GenerateAt("INFY.NS", 90, today))
	b := Process(synthetic.GenerateAt("WIPRO.NS", 90, today))

	assert.Equal(t, Correlate(a, b), Correlate(b, a))
	assert.InDelta(t, 1.0, Correlate(a, a), 1e-12)
	r := Correlate(a, b)
	assert.GreaterOrEqual(t, r, -1.0)
	assert.LessOrEqual(t, r, 1.0)
}

func TestCorrelateExactlySymmetricAcrossPairs(t *testing.T) {
	today := day0.AddDate(0, 6, 0)
	symbols := []string{"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "ITC.NS", "LT.NS", "TITAN.NS"}
	series := make([][]models.PricePoint, len(symbols))
	for i, s := range symbols {
		series[i] = Process(synthetic.GenerateAt(s, 120, today))
	}
	for i := range series {
		for j := range series {
			assert.Equal(t, Correlate(series[i], series[j]), Correlate(series[j], series[i]), "%s/%s", symbols[i], symbols[j])
		}
	}
}

func TestCorrelateIdenticalClosesOnOverlap(t *testing.T) {
	a := []models.PricePoint{point(0, 1, 1, 1, 10, 1), point(1, 1, 1, 1, 12, 1), point(2, 1, 1, 1, 11, 1), point(3, 1, 1, 1, 15, 1)}
	b := []models.PricePoint{point(1, 1, 1, 1, 12, 1), point(2, 1, 1, 1, 11, 1), point(3, 1, 1, 1, 15, 1), point(9, 1, 1, 1, 99, 1)}
	assert.InDelta(t, 1.0, Correlate(a, b), 1e-12)
}

func TestCorrelateDegenerate(t *testing.T) {
	one := []models.PricePoint{point(0, 1, 1, 1, 10, 1)}
	assert.Equal(t, 0.0, Correlate(one, one))

	flat := []models.PricePoint{point(0, 1, 1, 1, 10, 1), point(1, 1, 1, 1, 10, 1)}
	moving := []models.PricePoint{point(0, 1, 1, 1, 10, 1), point(1, 1, 1, 1, 11, 1)}
	assert.Equal(t, 0.0, Correlate(flat, moving))

	disjoint := []models.PricePoint{point(5, 1, 1, 1, 10, 1), point(6, 1, 1, 1, 11, 1)}
	assert.Equal(t, 0.0, Correlate(moving, disjoint))
}

func TestScenarioSyntheticYearForUnknownSymbol(t *testing.T) {
	today := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	series := Process(synthetic.GenerateAt("TESTCO", 400, today))
	want := xutil.BusinessDays(today.AddDate(0, 0, -400), today)

	require.Len(t, series, len(want))
	assert.False(t, math.IsNaN(*series[0].DailyReturn))
	assert.False(t, math.IsInf(*series[0].DailyReturn, 0))

	s := ComputeSummary("TESTCO", series)
	assert.GreaterOrEqual(t, *s.Week52High, *s.Week52Low)
}
