package domain

import (
	"time"

	"github.com/google/uuid"
)

// storyNamespace seeds deterministic story id derivation. Deriving the id
// from the earliest member article guarantees that independently recomputed
// clusters converge on the same story id.
var storyNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// StoryIDFrom derives the story id for a cluster seeded by the given article.
func StoryIDFrom(articleID string) string {
	return uuid.NewSHA1(storyNamespace, []byte(articleID)).String()
}

// Story is the derived aggregate for a cluster of articles covering the same
// event. It is recomputed from member articles, never hand-edited.
type Story struct {
	ID               string
	Title            string
	Summary          string
	Keywords         []string
	Sources          []string
	FirstPublishedAt time.Time
	LastPublishedAt  time.Time
	Centroid         []float32
	ArticleCount     int
	UpdatedAt        time.Time
}

// Candidate is the clustering working set entry: a prior article considered
// for membership when a new article arrives.
type Candidate struct {
	ArticleID   string
	StoryID     *string
	Embedding   []float32
	PublishedAt time.Time
	Title       string
	Content     string
}
