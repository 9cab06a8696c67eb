// Package cluster groups related articles into stories.
package cluster

import (
	"context"
	"log/slog"
	"time"

	"storyhub/domain"
	"storyhub/search"
	"storyhub/similarity"
)

// Config holds clustering parameters.
type Config struct {
	// Threshold is the base similarity threshold for story membership.
	Threshold float64
	// Window restricts candidates to articles published within this range.
	Window time.Duration
	// MaxCandidates caps the nearest-neighbor working set.
	MaxCandidates int
	// Weights combine cosine, title and entity scores.
	Weights similarity.Weights
}

// DefaultConfig returns the default clustering configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:     0.75,
		Window:        72 * time.Hour,
		MaxCandidates: 200,
		Weights:       similarity.DefaultWeights(),
	}
}

// Engine decides which story, if any, a newly enriched article belongs to.
// It only reads: persisting the returned id is the caller's job.
type Engine struct {
	backend search.Engine
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine creates a clustering engine over the given search backend.
func NewEngine(searchEngine search.Engine, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Threshold <= 0 {
		cfg = DefaultConfig()
	}

	return &Engine{
		backend: searchEngine,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// AssignStory returns the story id for the article, or nil when it stands
// alone. Candidates pass a cheap cosine prefilter before the title and
// entity comparisons run, which bounds per-article cost.
func (e *Engine) AssignStory(ctx context.Context, article *domain.Article, embedding []float32) (*string, error) {
	since := e.now().Add(-e.cfg.Window)

	candidates, err := e.backend.SimilarArticles(ctx, embedding, since, article.ID, e.cfg.MaxCandidates)
	if err != nil {
		// Search unavailability degrades to "no story" rather than failing
		// the enrichment step.
		e.logger.WarnContext(ctx, "candidate search failed, article stands alone",
			"article_id", article.ID,
			"error", err)
		return nil, nil
	}

	prefilter := 0.9 * e.cfg.Threshold
	final := 0.95 * e.cfg.Threshold

	survivors := make([]domain.Candidate, 0, len(candidates))

	for _, c := range candidates {
		cos := similarity.Cosine(embedding, c.Embedding)
		if cos < prefilter {
			continue
		}

		jac := similarity.TitleJaccard(article.Title, c.Title)
		ent := similarity.EntityOverlap(article.PlainContent, c.Content)

		combined := similarity.Combined(cos, jac, ent, e.cfg.Weights)
		if combined >= final {
			survivors = append(survivors, c)
		}
	}

	if len(survivors) == 0 {
		return nil, nil
	}

	if id := largestStoryGroup(survivors); id != "" {
		return &id, nil
	}

	id := mintStoryID(article, survivors)

	e.logger.InfoContext(ctx, "minted new story",
		"article_id", article.ID,
		"story_id", id,
		"members", len(survivors)+1)

	return &id, nil
}

// largestStoryGroup returns the most common existing story id among the
// survivors, breaking size ties by the lexicographically smallest id so the
// outcome never depends on iteration order. Empty when no survivor carries
// a story id.
func largestStoryGroup(survivors []domain.Candidate) string {
	counts := map[string]int{}

	for _, c := range survivors {
		if c.StoryID != nil && *c.StoryID != "" {
			counts[*c.StoryID]++
		}
	}

	best := ""
	bestCount := 0

	for id, count := range counts {
		if count > bestCount || (count == bestCount && id < best) {
			best = id
			bestCount = count
		}
	}

	return best
}

// mintStoryID derives a story id from the earliest-published member of the
// would-be cluster, the new article included. Recomputing the same cluster
// yields the same id as long as the earliest member is unchanged.
func mintStoryID(article *domain.Article, survivors []domain.Candidate) string {
	earliestID := article.ID
	earliestAt := article.PublishedAt

	for _, c := range survivors {
		if c.PublishedAt.Before(earliestAt) ||
			(c.PublishedAt.Equal(earliestAt) && c.ArticleID < earliestID) {
			earliestID = c.ArticleID
			earliestAt = c.PublishedAt
		}
	}

	return domain.StoryIDFrom(earliestID)
}
