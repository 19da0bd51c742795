package repository

import (
	"database/sql"
	"time"
)

const dateLayout = "2006-01-02"

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
