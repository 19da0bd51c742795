// Package queue runs background jobs from a Redis list. Failed jobs are
// retried after a delay and parked in a dead-letter list once they run out
// of attempts.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher enqueues a job for asynchronous handling.
type Publisher interface {
	Enqueue(ctx context.Context, jobType string, payload any) error
}

// Job handles every queued message of one type.
type Job interface {
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

type Config struct {
	Workers    int
	RetryLimit int           // attempts after the first
	RetryDelay time.Duration // wait before a failed job runs again
	// PollTimeout bounds one blocking pop so workers notice Stop.
	PollTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 10 * time.Second
	}
	if out.PollTimeout <= 0 {
		out.PollTimeout = time.Second
	}
	if out.RetryLimit < 0 {
		out.RetryLimit = 0
	}
	return out
}

// Stats is a snapshot of queue depth.
type Stats struct {
	Pending  int64 `json:"pending"`
	Retrying int64 `json:"retrying"`
	Dead     int64 `json:"dead"`
}

// envelope is the stored form of a job.
type envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// Decode unmarshals a job payload into T.
func Decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, fmt.Errorf("decode payload: empty")
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}
