package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Article is one entry pulled from a feed. Identity is stable across
// re-ingestion: the upsert key is (FeedID, SourceURL).
type Article struct {
	ID           string
	FeedID       string
	SourceURL    string
	CanonicalURL string
	Title        string
	Summary      string
	RawContent   string
	PlainContent string
	Author       string
	Language     string
	Keywords     []string
	ContentHash  string
	PublishedAt  time.Time
	FetchedAt    time.Time
	StoryID      *string
}

// HashContent returns the hex sha256 of the plain text, used to detect
// content changes across enrichment runs.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EnrichmentStatus is the lifecycle state of an article's enrichment.
type EnrichmentStatus string

const (
	EnrichmentPending    EnrichmentStatus = "pending"
	EnrichmentProcessing EnrichmentStatus = "processing"
	EnrichmentSuccess    EnrichmentStatus = "success"
	EnrichmentFailed     EnrichmentStatus = "failed"
)

// ArticleMetadata carries enrichment state and descriptive fields extracted
// from the article page, one row per article.
type ArticleMetadata struct {
	ArticleID          string
	Status             EnrichmentStatus
	OGTitle            string
	OGDescription      string
	OGImage            string
	OGLocale           string
	TwitterCard        string
	TwitterImage       string
	Favicon            string
	HeroImage          string
	WordCount          int
	ReadingTimeMinutes int
	ErrorMessage       string
	RetryCount         int
	UpdatedAt          time.Time
}
