package indexqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"storyhub/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	batches [][]domain.SearchDocument
	failIDs map[string]bool
}

func (f *fakeBackend) EnsureIndexes(ctx context.Context) error { return nil }

func (f *fakeBackend) IndexArticles(ctx context.Context, docs []domain.SearchDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range docs {
		if f.failIDs[d.ID] {
			return errors.New("index unavailable")
		}
	}

	f.batches = append(f.batches, docs)
	return nil
}

func (f *fakeBackend) IndexStories(ctx context.Context, docs []domain.StoryDocument) error {
	return nil
}

func (f *fakeBackend) SimilarArticles(ctx context.Context, embedding []float32, since time.Time, excludeID string, limit int) ([]domain.Candidate, error) {
	return nil, nil
}

func (f *fakeBackend) GetArticle(ctx context.Context, id string) (*domain.SearchDocument, error) {
	return nil, nil
}

func (f *fakeBackend) indexed() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func doc(id string) domain.SearchDocument {
	return domain.SearchDocument{ID: id, Title: "t-" + id}
}

func TestQueue_FlushOnBatchSize(t *testing.T) {
	backend := &fakeBackend{}
	q := New(backend, Config{BatchSize: 3, FlushInterval: time.Hour}, nil, testLogger())
	defer q.Close()

	ctx := context.Background()
	q.Add(ctx, doc("a1"))
	q.Add(ctx, doc("a2"))
	assert.Equal(t, 0, backend.indexed())

	q.Add(ctx, doc("a3"))
	assert.Equal(t, 3, backend.indexed())
}

func TestQueue_FlushOnInterval(t *testing.T) {
	backend := &fakeBackend{}
	q := New(backend, Config{BatchSize: 100, FlushInterval: 20 * time.Millisecond}, nil, testLogger())
	defer q.Close()

	q.Add(context.Background(), doc("a1"))

	require.Eventually(t, func() bool {
		return backend.indexed() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_CloseFlushesRemainder(t *testing.T) {
	backend := &fakeBackend{}
	q := New(backend, Config{BatchSize: 100, FlushInterval: time.Hour}, nil, testLogger())

	q.Add(context.Background(), doc("a1"))
	q.Add(context.Background(), doc("a2"))
	q.Close()

	assert.Equal(t, 2, backend.indexed())
}

func TestQueue_PartialFailureReported(t *testing.T) {
	backend := &fakeBackend{failIDs: map[string]bool{"bad": true}}

	var results []Result
	q := New(backend, Config{BatchSize: 1, FlushInterval: time.Hour}, func(r Result) {
		results = append(results, r)
	}, testLogger())
	defer q.Close()

	// BatchSize 1 makes each Add flush its own chunk.
	ctx := context.Background()
	q.Add(ctx, doc("good"))
	q.Add(ctx, doc("bad"))

	require.Len(t, results, 2)
	assert.Equal(t, Result{Indexed: 1}, results[0])
	assert.Equal(t, 1, results[1].Failed)
	assert.Error(t, results[1].Err)
	assert.Equal(t, 1, backend.indexed())
}

func TestQueue_FlushEmptyIsNoop(t *testing.T) {
	backend := &fakeBackend{}

	var calls int
	q := New(backend, Config{BatchSize: 10, FlushInterval: time.Hour}, func(Result) {
		calls++
	}, testLogger())
	defer q.Close()

	result := q.Flush(context.Background())
	assert.Equal(t, Result{}, result)
	assert.Equal(t, 0, calls)
}
