package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu    sync.Mutex
	topic string
	batch []AggregatedLogEntry
	done  chan struct{}
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batch = payload.([]AggregatedLogEntry)
	close(p.done)
	return nil
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf)).With("features")
	l.Info("computed",
		Symbol("TCS.NS"),
		Int("rows", 250),
		Duration("took", 1500*time.Millisecond),
		Bool("cached", true),
		Error(errors.New("boom")))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "features", got["component"])
	assert.Equal(t, "TCS.NS", got["symbol"])
	assert.EqualValues(t, 250, got["rows"])
	assert.EqualValues(t, 1500, got["took"])
	assert.Equal(t, true, got["cached"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, "computed", got["message"])
}

func TestCollectorAggregatesRepeatedWarnings(t *testing.T) {
	pub := &capturePublisher{done: make(chan struct{})}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})

	child := l.With("gateway")
	for i := 0; i < 3; i++ {
		child.Warn("yfinance slow", Symbol("INFY.NS"))
	}
	child.Info("not collected")
	l.RemoveCollector()

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not publish")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, "logs", pub.topic)
	require.Len(t, pub.batch, 1)
	assert.Equal(t, 3, pub.batch[0].Count)
	assert.Equal(t, "warn", pub.batch[0].Level)
	assert.Equal(t, "INFY.NS", pub.batch[0].Fields["symbol"])
	assert.Contains(t, pub.batch[0].Caller, "logger_test.go")
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{done: make(chan struct{})}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	defer c.Close()

	c.AddLog("error", "store down", nil, "a.go:1")
	c.AddLog("error", "source down", nil, "b.go:2")

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("threshold did not flush")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.batch, 2)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}
