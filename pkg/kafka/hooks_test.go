package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingHookThreadsTraceID(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: TraceHeader, Value: []byte("run-42")}}}

	ctx, _, _, err := LoggingHook{}.BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-42", TraceID(ctx))
	_, ok := ctx.Value(CtxStartTime).(time.Time)
	assert.True(t, ok)
}

func TestHookChainOrderAndPanicSafety(t *testing.T) {
	var order []string
	first := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, d []byte) (context.Context, kafka.Message, []byte, error) {
			order = append(order, "before1")
			return ctx, km, append(d, '1'), nil
		},
		After: func(context.Context, string, kafka.Message, []byte, error) { order = append(order, "after1") },
	}
	second := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, d []byte) (context.Context, kafka.Message, []byte, error) {
			order = append(order, "before2")
			return ctx, km, append(d, '2'), nil
		},
		After: func(context.Context, string, kafka.Message, []byte, error) {
			order = append(order, "after2")
			panic("boom")
		},
	}

	chain := NewHookChain(first, nil, second)
	ctx, km, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "x12", string(data))

	assert.NotPanics(t, func() { chain.AfterHandle(ctx, "t", km, data, nil) })
	assert.Equal(t, []string{"before1", "before2", "after2", "after1"}, order)
}

func TestHookChainBeforeErrorNotifiesAll(t *testing.T) {
	var notified int
	errHook := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, d []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, d, errors.New("reject")
		},
		Err: func(context.Context, string, kafka.Message, []byte, error) { notified++ },
	}
	counter := HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { notified++ }}

	_, _, _, err := NewHookChain(errHook, counter).BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	require.Error(t, err)
	assert.Equal(t, 2, notified)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 200*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 200*time.Millisecond)
	}
}

func TestEncode(t *testing.T) {
	b, err := encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = encode("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
}
