package cluster

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"storyhub/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearch struct {
	candidates []domain.Candidate
	err        error

	gotSince     time.Time
	gotExcludeID string
	gotLimit     int
}

func (f *fakeSearch) EnsureIndexes(ctx context.Context) error { return nil }

func (f *fakeSearch) IndexArticles(ctx context.Context, docs []domain.SearchDocument) error {
	return nil
}

func (f *fakeSearch) IndexStories(ctx context.Context, docs []domain.StoryDocument) error {
	return nil
}

func (f *fakeSearch) SimilarArticles(ctx context.Context, embedding []float32, since time.Time, excludeID string, limit int) ([]domain.Candidate, error) {
	f.gotSince = since
	f.gotExcludeID = excludeID
	f.gotLimit = limit
	return f.candidates, f.err
}

func (f *fakeSearch) GetArticle(ctx context.Context, id string) (*domain.SearchDocument, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func strPtr(s string) *string { return &s }

func TestAssignStory_NoCandidates(t *testing.T) {
	backend := &fakeSearch{}
	engine := NewEngine(backend, DefaultConfig(), testLogger())

	article := &domain.Article{ID: "a1", Title: "Quake Hits Tokyo", PublishedAt: time.Now()}

	id, err := engine.AssignStory(context.Background(), article, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, id)

	assert.Equal(t, "a1", backend.gotExcludeID)
	assert.Equal(t, 200, backend.gotLimit)
}

func TestAssignStory_IdenticalArticleJoinsExistingStory(t *testing.T) {
	// Identical embedding and title: cosine is 1 and title Jaccard is 1,
	// so the candidate survives both filter stages at any threshold < 1.
	existing := domain.Candidate{
		ArticleID:   "a0",
		StoryID:     strPtr("story-1"),
		Embedding:   []float32{0.6, 0.8, 0},
		PublishedAt: time.Now().Add(-time.Hour),
		Title:       "Quake Hits Tokyo Overnight",
		Content:     "A strong Earthquake shook Tokyo late on Tuesday.",
	}

	backend := &fakeSearch{candidates: []domain.Candidate{existing}}
	engine := NewEngine(backend, DefaultConfig(), testLogger())

	article := &domain.Article{
		ID:           "a1",
		Title:        "Quake Hits Tokyo Overnight",
		PlainContent: "A strong Earthquake shook Tokyo late on Tuesday.",
		PublishedAt:  time.Now(),
	}

	id, err := engine.AssignStory(context.Background(), article, []float32{0.6, 0.8, 0})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "story-1", *id)
}

func TestAssignStory_PrefilterRejectsLowCosine(t *testing.T) {
	// Orthogonal embedding fails the cosine prefilter even though the
	// titles match exactly.
	backend := &fakeSearch{candidates: []domain.Candidate{{
		ArticleID:   "a0",
		StoryID:     strPtr("story-1"),
		Embedding:   []float32{0, 0, 1},
		PublishedAt: time.Now().Add(-time.Hour),
		Title:       "Quake Hits Tokyo Overnight",
	}}}
	engine := NewEngine(backend, DefaultConfig(), testLogger())

	article := &domain.Article{ID: "a1", Title: "Quake Hits Tokyo Overnight", PublishedAt: time.Now()}

	id, err := engine.AssignStory(context.Background(), article, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestAssignStory_LargestGroupWins(t *testing.T) {
	now := time.Now()
	embedding := []float32{0.6, 0.8, 0}
	title := "Quake Hits Tokyo Overnight"
	content := "A strong Earthquake shook Tokyo late on Tuesday."

	candidate := func(id, storyID string) domain.Candidate {
		return domain.Candidate{
			ArticleID:   id,
			StoryID:     strPtr(storyID),
			Embedding:   embedding,
			PublishedAt: now.Add(-time.Hour),
			Title:       title,
			Content:     content,
		}
	}

	backend := &fakeSearch{candidates: []domain.Candidate{
		candidate("a0", "story-b"),
		candidate("a2", "story-a"),
		candidate("a3", "story-b"),
	}}
	engine := NewEngine(backend, DefaultConfig(), testLogger())

	article := &domain.Article{ID: "a1", Title: title, PlainContent: content, PublishedAt: now}

	id, err := engine.AssignStory(context.Background(), article, embedding)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "story-b", *id)
}

func TestAssignStory_GroupSizeTieBreaksToSmallestID(t *testing.T) {
	now := time.Now()
	embedding := []float32{0.6, 0.8, 0}
	title := "Quake Hits Tokyo Overnight"

	backend := &fakeSearch{candidates: []domain.Candidate{
		{ArticleID: "a0", StoryID: strPtr("story-b"), Embedding: embedding, PublishedAt: now, Title: title},
		{ArticleID: "a2", StoryID: strPtr("story-a"), Embedding: embedding, PublishedAt: now, Title: title},
	}}
	engine := NewEngine(backend, DefaultConfig(), testLogger())

	article := &domain.Article{ID: "a1", Title: title, PublishedAt: now}

	id, err := engine.AssignStory(context.Background(), article, embedding)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "story-a", *id)
}

func TestAssignStory_MintsFromEarliestMember(t *testing.T) {
	now := time.Now()
	embedding := []float32{0.6, 0.8, 0}
	title := "Quake Hits Tokyo Overnight"

	// The surviving candidate predates the new article, so the minted id
	// derives from the candidate.
	backend := &fakeSearch{candidates: []domain.Candidate{{
		ArticleID:   "a0",
		Embedding:   embedding,
		PublishedAt: now.Add(-2 * time.Hour),
		Title:       title,
	}}}
	engine := NewEngine(backend, DefaultConfig(), testLogger())

	article := &domain.Article{ID: "a1", Title: title, PublishedAt: now}

	id, err := engine.AssignStory(context.Background(), article, embedding)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, domain.StoryIDFrom("a0"), *id)

	// Recomputing the same cluster from the other side yields the same id.
	backend.candidates[0].ArticleID = "a0"
	again, err := engine.AssignStory(context.Background(), article, embedding)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, *id, *again)
}

func TestAssignStory_SearchFailureDegradesToNoStory(t *testing.T) {
	backend := &fakeSearch{err: errors.New("connection refused")}
	engine := NewEngine(backend, DefaultConfig(), testLogger())

	article := &domain.Article{ID: "a1", Title: "Quake Hits Tokyo", PublishedAt: time.Now()}

	id, err := engine.AssignStory(context.Background(), article, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, id)
}
