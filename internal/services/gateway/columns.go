package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"MarketLens/internal/domain/models"
	xutil "MarketLens/pkg/util"
)

var (
	requiredColumns = []string{"open", "high", "low", "close", "volume"}
	dateColumns     = []string{"date", "datetime", "timestamp"}

	errEmptyFrame     = errors.New("empty frame")
	errMissingColumns = errors.New("missing required columns")
	errNoValidRows    = errors.New("no valid rows")
)

// reconcile maps every required column, plus the date column, onto the
// frame's own columns. Names compare case-insensitively; an exact match wins,
// otherwise the first column (in sorted order) containing the name is used.
func reconcile(f *models.RawFrame) (map[string][]any, []any, error) {
	names := make([]string, 0, len(f.Columns))
	for name := range f.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	lower := make(map[string][]any, len(names))
	lowered := make([]string, 0, len(names))
	for _, name := range names {
		l := strings.ToLower(strings.TrimSpace(name))
		if _, dup := lower[l]; dup {
			continue
		}
		lower[l] = f.Columns[name]
		lowered = append(lowered, l)
	}

	cols := make(map[string][]any, len(requiredColumns))
	var missing []string
	for _, req := range requiredColumns {
		if col, ok := lower[req]; ok {
			cols[req] = col
			continue
		}
		found := false
		for _, l := range lowered {
			if strings.Contains(l, req) {
				cols[req] = lower[l]
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s (available: %s)", errMissingColumns,
			strings.Join(missing, ","), strings.Join(lowered, ","))
	}

	for _, name := range dateColumns {
		if col, ok := lower[name]; ok {
			return cols, col, nil
		}
	}
	if len(f.Index) > 0 {
		return cols, f.Index, nil
	}
	return nil, nil, fmt.Errorf("%w: date", errMissingColumns)
}

// toPoints coerces a reconciled frame into raw points. Rows that cannot be
// coerced are skipped and counted.
func toPoints(f *models.RawFrame) ([]models.PricePoint, int, error) {
	if f.Len() == 0 {
		return nil, 0, errEmptyFrame
	}
	cols, dates, err := reconcile(f)
	if err != nil {
		return nil, 0, err
	}

	n := f.Len()
	out := make([]models.PricePoint, 0, n)
	invalid := 0
	for i := 0; i < n; i++ {
		p, err := toPoint(i, cols, dates)
		if err != nil {
			invalid++
			continue
		}
		out = append(out, p)
	}
	return out, invalid, nil
}

func toPoint(i int, cols map[string][]any, dates []any) (models.PricePoint, error) {
	var p models.PricePoint
	d, ok := toDate(cell(dates, i))
	if !ok {
		return p, fmt.Errorf("%w: date %v", models.ErrInvalidRecord, cell(dates, i))
	}
	p.Date = d

	prices := []*float64{&p.Open, &p.High, &p.Low, &p.Close}
	for j, name := range requiredColumns[:4] {
		v, ok := toFloat(cell(cols[name], i))
		if !ok {
			return p, fmt.Errorf("%w: %s %v", models.ErrInvalidRecord, name, cell(cols[name], i))
		}
		*prices[j] = v
	}
	// a missing close stays NaN; features.Clean fills it from its neighbours
	if math.IsInf(p.Close, 0) {
		p.Close = math.NaN()
	}

	v, ok := toFloat(cell(cols["volume"], i))
	switch {
	case !ok:
		return p, fmt.Errorf("%w: volume %v", models.ErrInvalidRecord, cell(cols["volume"], i))
	case math.IsNaN(v) || math.IsInf(v, 0) || v < 0:
		p.Volume = models.MissingVolume
	default:
		p.Volume = int64(v)
	}
	return p, nil
}

func cell(col []any, i int) any {
	if i < len(col) {
		return col[i]
	}
	return nil
}

// toFloat converts a numeric cell. nil and empty strings are missing (NaN);
// anything else unparsable reports false.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case *float64:
		if x == nil {
			return math.NaN(), true
		}
		return *x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
			return math.NaN(), true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	case int64:
		return xutil.UnixAuto(x), x > 0
	case int:
		return xutil.UnixAuto(int64(x)), x > 0
	case float64:
		return xutil.UnixAuto(int64(x)), x > 0
	case json.Number:
		n, err := x.Int64()
		return xutil.UnixAuto(n), err == nil && n > 0
	case string:
		return xutil.ParseTime(strings.TrimSpace(x))
	default:
		return time.Time{}, false
	}
}
