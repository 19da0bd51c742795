package models

import "time"

// RawFrame is the column-oriented payload returned by a series source.
// Column names are whatever the source used; the gateway reconciles them.
// Index carries row dates when the source keeps them outside the columns.
type RawFrame struct {
	Index   []any
	Columns map[string][]any
}

// Len returns the number of rows in the frame.
func (f *RawFrame) Len() int {
	if f == nil {
		return 0
	}
	n := len(f.Index)
	for _, col := range f.Columns {
		if len(col) > n {
			n = len(col)
		}
	}
	return n
}

// CollectReport summarises one collectAndStore run.
type CollectReport struct {
	RunID      string            `json:"run_id"`
	Period     string            `json:"period"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Succeeded  []string          `json:"succeeded"`
	Failed     map[string]string `json:"failed"`
	Records    int               `json:"records"`
}

// RefreshEvent announces that a symbol's stored series was rewritten.
type RefreshEvent struct {
	RunID      string    `json:"run_id"`
	Symbol     string    `json:"symbol"`
	Records    int       `json:"records"`
	LatestDate time.Time `json:"latest_date"`
	At         time.Time `json:"at"`
}

// EventSeriesRefreshed is the type carried by every refresh message.
const EventSeriesRefreshed = "series.refreshed"

// RefreshMessage is the wire form of a RefreshEvent. Origin names the
// publishing instance so it can ignore its own echo.
type RefreshMessage struct {
	Type   string       `json:"type"`
	Origin string       `json:"origin,omitempty"`
	Event  RefreshEvent `json:"event"`
}
