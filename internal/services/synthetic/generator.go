// Package synthetic manufactures deterministic daily OHLCV series for
// symbols whose live source is unavailable.
package synthetic

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"MarketLens/internal/domain/models"
	xutil "MarketLens/pkg/util"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultBasePrice = 1000.0

	drift      = 0.0005
	stepVol    = 0.02
	streamSalt = 0x9e3779b97f4a7c15
)

// BasePrices anchors the random walk per symbol.
var BasePrices = map[string]float64{
	"RELIANCE.NS":   2500,
	"TCS.NS":        3500,
	"HDFCBANK.NS":   1600,
	"INFY.NS":       1500,
	"ICICIBANK.NS":  900,
	"HINDUNILVR.NS": 2400,
	"BHARTIARTL.NS": 1100,
	"SBIN.NS":       600,
	"BAJFINANCE.NS": 7000,
	"WIPRO.NS":      400,
	"ITC.NS":        450,
	"LT.NS":         3200,
	"AXISBANK.NS":   1000,
	"MARUTI.NS":     9500,
	"TITAN.NS":      3200,
}

// Seed is the 64-bit FNV-1a hash of the symbol bytes.
func Seed(symbol string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum64()
}

// Generator produces synthetic series relative to its clock's current date.
type Generator struct {
	now func() time.Time
}

// New returns a Generator. A nil clock means time.Now.
func New(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Generate builds the series for the business days in [today-days, today].
func (g *Generator) Generate(symbol string, days int) []models.PricePoint {
	return GenerateAt(symbol, days, g.now())
}

// GenerateAt is Generate with an explicit "today". Identical inputs
// always yield identical output.
func GenerateAt(symbol string, days int, today time.Time) []models.PricePoint {
	if days < 0 {
		days = 0
	}
	end := xutil.DateOnly(today)
	dates := xutil.BusinessDays(end.AddDate(0, 0, -days), end)
	n := len(dates)
	if n == 0 {
		return nil
	}

	seed := Seed(symbol)
	src := rand.NewPCG(seed, seed^streamSalt)
	walk := distuv.Normal{Mu: drift, Sigma: stepVol, Src: src}
	uniform := func(lo, hi float64) float64 {
		return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
	}

	base, ok := BasePrices[symbol]
	if !ok {
		base = DefaultBasePrice
	}

	closes := make([]float64, n)
	cum := 0.0
	for i := range closes {
		cum += walk.Rand()
		closes[i] = base * math.Exp(cum)
	}

	out := make([]models.PricePoint, n)
	for i, d := range dates {
		c := closes[i]
		intraday := uniform(0.01, 0.03)

		var o float64
		if i == 0 {
			o = c * uniform(0.98, 1.02)
		} else {
			o = closes[i-1] * uniform(0.99, 1.01)
		}
		h := math.Max(o, c) * (1 + uniform(0, intraday))
		l := math.Min(o, c) * (1 - uniform(0, intraday))
		move := math.Abs(c-o) / o
		vol := uniform(1e6, 5e6) * (1 + 2*move)

		ro, rh, rl, rc := round2(o), round2(h), round2(l), round2(c)
		rh = math.Max(rh, math.Max(ro, rc))
		rl = math.Min(rl, math.Min(ro, rc))

		out[i] = models.PricePoint{
			Date:   d,
			Open:   ro,
			High:   rh,
			Low:    rl,
			Close:  rc,
			Volume: int64(vol),
		}
	}
	return out
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
