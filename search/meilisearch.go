package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"storyhub/domain"
)

const (
	articleIndexName = "articles"
	storyIndexName   = "stories"

	// embedderName is the userProvided embedder configured on the article
	// index; documents carry vectors under _vectors.default.
	embedderName = "default"

	taskTimeout = 15 * time.Second
)

// NewClient creates a Meilisearch service manager.
func NewClient(host, apiKey string) meilisearch.ServiceManager {
	return meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
}

// MeilisearchEngine implements Engine on a Meilisearch instance.
type MeilisearchEngine struct {
	client   meilisearch.ServiceManager
	articles meilisearch.IndexManager
	stories  meilisearch.IndexManager
	logger   *slog.Logger
}

// NewMeilisearchEngine creates the engine over an existing client.
func NewMeilisearchEngine(client meilisearch.ServiceManager, logger *slog.Logger) *MeilisearchEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MeilisearchEngine{
		client:   client,
		articles: client.Index(articleIndexName),
		stories:  client.Index(storyIndexName),
		logger:   logger,
	}
}

// EnsureIndexes provisions filterable and sortable attributes used by the
// clustering candidate query. The userProvided embedder itself is
// provisioned with the instance, not here.
func (e *MeilisearchEngine) EnsureIndexes(ctx context.Context) error {
	task, err := e.articles.UpdateFilterableAttributes(&[]interface{}{"id", "feed_id", "story_id", "language", "published_at"})
	if err != nil {
		return fmt.Errorf("failed to set article filterable attributes: %w", err)
	}
	if _, err := e.articles.WaitForTask(task.TaskUID, taskTimeout); err != nil {
		return fmt.Errorf("failed waiting for article index settings: %w", err)
	}

	task, err = e.articles.UpdateSortableAttributes(&[]string{"published_at"})
	if err != nil {
		return fmt.Errorf("failed to set article sortable attributes: %w", err)
	}
	if _, err := e.articles.WaitForTask(task.TaskUID, taskTimeout); err != nil {
		return fmt.Errorf("failed waiting for article index settings: %w", err)
	}

	task, err = e.stories.UpdateFilterableAttributes(&[]interface{}{"id", "last_published_at"})
	if err != nil {
		return fmt.Errorf("failed to set story filterable attributes: %w", err)
	}
	if _, err := e.stories.WaitForTask(task.TaskUID, taskTimeout); err != nil {
		return fmt.Errorf("failed waiting for story index settings: %w", err)
	}

	return nil
}

// IndexArticles bulk-upserts article documents.
func (e *MeilisearchEngine) IndexArticles(ctx context.Context, docs []domain.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}

	task, err := e.articles.AddDocuments(docs, nil)
	if err != nil {
		return fmt.Errorf("failed to index %d articles: %w", len(docs), err)
	}

	if _, err := e.articles.WaitForTask(task.TaskUID, taskTimeout); err != nil {
		return fmt.Errorf("failed waiting for article indexing task: %w", err)
	}

	e.logger.InfoContext(ctx, "articles indexed", "count", len(docs))
	return nil
}

// IndexStories bulk-upserts story documents.
func (e *MeilisearchEngine) IndexStories(ctx context.Context, docs []domain.StoryDocument) error {
	if len(docs) == 0 {
		return nil
	}

	task, err := e.stories.AddDocuments(docs, nil)
	if err != nil {
		return fmt.Errorf("failed to index %d stories: %w", len(docs), err)
	}

	if _, err := e.stories.WaitForTask(task.TaskUID, taskTimeout); err != nil {
		return fmt.Errorf("failed waiting for story indexing task: %w", err)
	}

	e.logger.InfoContext(ctx, "stories indexed", "count", len(docs))
	return nil
}

// SimilarArticles runs a pure-vector search with a published-time prefilter
// and an id exclusion.
func (e *MeilisearchEngine) SimilarArticles(ctx context.Context, embedding []float32, since time.Time, excludeID string, limit int) ([]domain.Candidate, error) {
	filter := fmt.Sprintf("published_at >= %d AND id != %q", since.Unix(), excludeID)

	req := &meilisearch.SearchRequest{
		Limit:           int64(limit),
		Filter:          filter,
		Vector:          embedding,
		RetrieveVectors: true,
		Hybrid: &meilisearch.SearchRequestHybrid{
			SemanticRatio: 1.0,
			Embedder:      embedderName,
		},
	}

	result, err := e.articles.Search("", req)
	if err != nil {
		return nil, fmt.Errorf("similar-article search failed: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if c, ok := candidateFromHit(hit); ok {
			candidates = append(candidates, c)
		}
	}

	return candidates, nil
}

// candidateFromHit decodes one search hit into a clustering candidate.
func candidateFromHit(hit meilisearch.Hit) (domain.Candidate, bool) {
	var hitMap map[string]interface{}
	if err := hit.Decode(&hitMap); err != nil {
		return domain.Candidate{}, false
	}

	c := domain.Candidate{
		ArticleID:   getString(hitMap, "id"),
		Title:       getString(hitMap, "title"),
		Content:     getString(hitMap, "content"),
		PublishedAt: time.Unix(getInt64(hitMap, "published_at"), 0).UTC(),
		Embedding:   getVector(hitMap, embedderName),
	}
	if sid := getString(hitMap, "story_id"); sid != "" {
		c.StoryID = &sid
	}

	return c, c.ArticleID != ""
}

// GetArticle fetches one indexed document by id. A missing document returns
// (nil, nil); any other failure is surfaced so callers can tell an absent
// member from a search outage.
func (e *MeilisearchEngine) GetArticle(ctx context.Context, id string) (*domain.SearchDocument, error) {
	var doc domain.SearchDocument
	if err := e.articles.GetDocument(id, nil, &doc); err != nil {
		var mErr *meilisearch.Error
		if errors.As(err, &mErr) && mErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch indexed article %s: %w", id, err)
	}
	return &doc, nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt64(m map[string]interface{}, key string) int64 {
	if v, ok := m[key]; ok {
		if f, ok := v.(float64); ok {
			return int64(f)
		}
	}
	return 0
}

// getVector tolerates both vector response shapes: a bare array and the
// object form carrying an embeddings field.
func getVector(m map[string]interface{}, embedder string) []float32 {
	vectors, ok := m["_vectors"].(map[string]interface{})
	if !ok {
		return nil
	}

	raw, ok := vectors[embedder]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []interface{}:
		return toFloat32Slice(v)
	case map[string]interface{}:
		emb, ok := v["embeddings"].([]interface{})
		if !ok {
			return nil
		}
		// Either one flat vector or a single-element list of vectors.
		if len(emb) > 0 {
			if nested, ok := emb[0].([]interface{}); ok {
				return toFloat32Slice(nested)
			}
		}
		return toFloat32Slice(emb)
	}

	return nil
}

func toFloat32Slice(values []interface{}) []float32 {
	out := make([]float32, 0, len(values))
	for _, v := range values {
		f, ok := v.(float64)
		if !ok {
			return nil
		}
		out = append(out, float32(f))
	}
	return out
}
