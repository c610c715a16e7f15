package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
	// first attempt is within [min/2, min]
	d := backoffWithJitter(min, max, 1)
	assert.GreaterOrEqual(t, d, min/2)
	assert.LessOrEqual(t, d, min)
}

func TestHookChainOrderAndPanicSafety(t *testing.T) {
	var calls []string
	first := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			calls = append(calls, "before1")
			return ctx, km, append(data, '1'), nil
		},
		After: func(context.Context, string, kafka.Message, []byte, error) { calls = append(calls, "after1") },
	}
	second := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			calls = append(calls, "before2")
			return ctx, km, append(data, '2'), nil
		},
		After: func(context.Context, string, kafka.Message, []byte, error) {
			calls = append(calls, "after2")
			panic("boom")
		},
	}

	chain := NewHookChain(first, nil, second)
	ctx, km, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "x12", string(data))

	chain.AfterHandle(ctx, "t", km, data, nil)
	assert.Equal(t, []string{"before1", "before2", "after2", "after1"}, calls)
}

func TestHookChainBeforePanicBecomesError(t *testing.T) {
	bad := HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("bad hook")
		},
	}
	_, _, data, err := NewHookChain(bad).BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	require.Error(t, err)
	assert.Equal(t, "x", string(data))
}

func TestTraceHook(t *testing.T) {
	km := kafka.Message{Key: []byte("req-1"), Headers: []kafka.Header{{Key: "trace_id", Value: []byte("trace-9")}}}
	ctx, _, _, err := TraceHook().BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "trace-9", TraceID(ctx))

	ctx, _, _, _ = TraceHook().BeforeHandle(context.Background(), "t", kafka.Message{Key: []byte("req-1")}, nil)
	assert.Equal(t, "req-1", TraceID(ctx))
	assert.Equal(t, "", TraceID(context.Background()))
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	_, err = encodeValue(func() {})
	require.Error(t, err)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)
}
