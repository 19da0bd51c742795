package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectPayload struct {
	Symbol string `json:"symbol"`
	Period string `json:"period"`
}

type stubJob struct {
	typ  string
	seen []json.RawMessage
}

func (j *stubJob) Type() string { return j.typ }
func (j *stubJob) Handle(_ context.Context, payload json.RawMessage) error {
	j.seen = append(j.seen, payload)
	return nil
}

func TestDecode(t *testing.T) {
	p, err := Decode[collectPayload](json.RawMessage(`{"symbol":"INFY.NS","period":"6mo"}`))
	require.NoError(t, err)
	assert.Equal(t, collectPayload{Symbol: "INFY.NS", Period: "6mo"}, p)
}

func TestDecodeRejectsBadPayloads(t *testing.T) {
	_, err := Decode[collectPayload](nil)
	assert.Error(t, err)
	_, err = Decode[collectPayload](json.RawMessage(`7`))
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := (*Config)(nil).withDefaults()
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 10*time.Second, cfg.RetryDelay)
	assert.Equal(t, time.Second, cfg.PollTimeout)

	cfg = (&Config{Workers: 3, RetryLimit: -1}).withDefaults()
	assert.Equal(t, 3, cfg.Workers)
	assert.Zero(t, cfg.RetryLimit)
}

func TestKeysUsePrefix(t *testing.T) {
	q := New(nil, nil, nil)
	assert.Equal(t, "marketlens:queue:pending", q.pendingKey())
	assert.Equal(t, "marketlens:queue:retry", q.retryKey())
	assert.Equal(t, "marketlens:queue:dead", q.deadKey())

	q = New(nil, nil, nil, WithKeyPrefix("test:q"))
	assert.Equal(t, "test:q:pending", q.pendingKey())
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := New(nil, nil, nil)
	q.Register(&stubJob{typ: "collect"})
	err := q.Enqueue(context.Background(), "collect", collectPayload{})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestEnqueueUnknownType(t *testing.T) {
	q := New(nil, nil, nil)
	q.running = true
	err := q.Enqueue(context.Background(), "collect", collectPayload{})
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRegisterKeepsFirstJob(t *testing.T) {
	first, second := &stubJob{typ: "collect"}, &stubJob{typ: "collect"}
	q := New(nil, nil, nil)
	q.Register(first)
	q.Register(second)
	require.Len(t, q.jobs, 1)
	assert.Same(t, first, q.jobs["collect"])
}

func TestRunHandsPayloadToJob(t *testing.T) {
	job := &stubJob{typ: "collect"}
	q := New(nil, nil, nil)
	q.Register(job)

	q.run(context.Background(), envelope{ID: "1", Type: "collect", Payload: json.RawMessage(`{"symbol":"TCS.NS"}`)})

	require.Len(t, job.seen, 1)
	p, err := Decode[collectPayload](job.seen[0])
	require.NoError(t, err)
	assert.Equal(t, "TCS.NS", p.Symbol)
}
