package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"MarketLens/pkg/queue"
)

// JobTypeCollect is the queue message type of a collect request.
const JobTypeCollect = "collect"

// CollectRequest is the queued payload of a collect run.
type CollectRequest struct {
	Symbols       []string `json:"symbols,omitempty"`
	Period        string   `json:"period"`
	AllowFallback bool     `json:"allow_fallback"`
}

// CollectJob runs queued collect requests.
type CollectJob struct {
	uc *CollectUseCase
}

func NewCollectJob(uc *CollectUseCase) *CollectJob { return &CollectJob{uc: uc} }

func (j *CollectJob) Type() string { return JobTypeCollect }

// Handle runs the request. A run already in progress is not an error.
func (j *CollectJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[CollectRequest](payload)
	if err != nil {
		return err
	}
	_, err = j.uc.CollectAndStore(ctx, req.Symbols, req.Period, req.AllowFallback)
	if errors.Is(err, ErrCollectRunning) {
		j.uc.logger.Info("collect job skipped, run in progress")
		return nil
	}
	return err
}

var _ queue.Job = (*CollectJob)(nil)
