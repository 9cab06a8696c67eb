package queue

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestMemoryQueue_EnqueueAndConsume(t *testing.T) {
	q := NewMemoryQueue(8, testLogger())
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a1"))
	require.NoError(t, q.Enqueue(ctx, "a2"))
	require.NoError(t, q.Enqueue(ctx, "a3"))
	require.NoError(t, q.Close())

	var (
		mu  sync.Mutex
		got []string
	)

	err := q.Consume(ctx, func(_ context.Context, id string) error {
		mu.Lock()
		got = append(got, id)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a2", "a3"}, got)
}

func TestMemoryQueue_EnqueueBlocksWhenFull(t *testing.T) {
	q := NewMemoryQueue(1, testLogger())
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a1"))

	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err := q.Enqueue(blocked, "a2")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueue_EnqueueAfterClose(t *testing.T) {
	q := NewMemoryQueue(8, testLogger())
	require.NoError(t, q.Close())

	err := q.Enqueue(context.Background(), "a1")
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestMemoryQueue_HandlerErrorDoesNotStopConsumption(t *testing.T) {
	q := NewMemoryQueue(8, testLogger())
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "bad"))
	require.NoError(t, q.Enqueue(ctx, "good"))
	require.NoError(t, q.Close())

	var got []string

	err := q.Consume(ctx, func(_ context.Context, id string) error {
		got = append(got, id)
		if id == "bad" {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"bad", "good"}, got)
}

func TestMemoryQueue_CloseIsIdempotent(t *testing.T) {
	q := NewMemoryQueue(8, testLogger())
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}
