package domain

// SearchDocument is the shape indexed into the search engine, one per
// article. The embedding is carried in the _vectors field consumed by the
// engine's userProvided embedder.
type SearchDocument struct {
	ID          string               `json:"id"`
	FeedID      string               `json:"feed_id"`
	Title       string               `json:"title"`
	Content     string               `json:"content"`
	Language    string               `json:"language"`
	Keywords    []string             `json:"keywords"`
	StoryID     string               `json:"story_id,omitempty"`
	PublishedAt int64                `json:"published_at"`
	Vectors     map[string][]float32 `json:"_vectors,omitempty"`
}

// NewSearchDocument builds the index document for an enriched article.
func NewSearchDocument(a *Article, embedding []float32) SearchDocument {
	doc := SearchDocument{
		ID:          a.ID,
		FeedID:      a.FeedID,
		Title:       a.Title,
		Content:     a.PlainContent,
		Language:    a.Language,
		Keywords:    a.Keywords,
		PublishedAt: a.PublishedAt.Unix(),
	}
	if a.StoryID != nil {
		doc.StoryID = *a.StoryID
	}
	if len(embedding) > 0 {
		doc.Vectors = map[string][]float32{"default": embedding}
	}
	return doc
}

// StoryDocument is the story-level aggregate indexed alongside articles so
// search can surface stories directly.
type StoryDocument struct {
	ID               string               `json:"id"`
	Title            string               `json:"title"`
	Summary          string               `json:"summary"`
	Keywords         []string             `json:"keywords"`
	Sources          []string             `json:"sources"`
	ArticleCount     int                  `json:"article_count"`
	FirstPublishedAt int64                `json:"first_published_at"`
	LastPublishedAt  int64                `json:"last_published_at"`
	Vectors          map[string][]float32 `json:"_vectors,omitempty"`
}

// NewStoryDocument builds the index document for a recomputed story.
func NewStoryDocument(s *Story) StoryDocument {
	doc := StoryDocument{
		ID:               s.ID,
		Title:            s.Title,
		Summary:          s.Summary,
		Keywords:         s.Keywords,
		Sources:          s.Sources,
		ArticleCount:     s.ArticleCount,
		FirstPublishedAt: s.FirstPublishedAt.Unix(),
		LastPublishedAt:  s.LastPublishedAt.Unix(),
	}
	if len(s.Centroid) > 0 {
		doc.Vectors = map[string][]float32{"default": s.Centroid}
	}
	return doc
}
