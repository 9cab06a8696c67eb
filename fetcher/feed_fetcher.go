// Package fetcher retrieves remote documents: syndicated feed XML and
// article HTML pages.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedEntry is one normalized entry from a parsed feed document.
type FeedEntry struct {
	Title       string
	Link        string
	Summary     string
	Content     string
	Author      string
	GUID        string
	Categories  []string
	PublishedAt *time.Time
}

// FeedDocument is the parsed result of one feed fetch.
type FeedDocument struct {
	Title       string
	Description string
	Entries     []FeedEntry
}

// FeedFetcher retrieves and parses a feed URL into entries.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) (*FeedDocument, error)
}

// feedFetcher parses RSS/Atom/JSON feeds with gofeed under a bounded
// per-call timeout.
type feedFetcher struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewFeedFetcher creates a feed fetcher. timeout bounds each fetch.
func NewFeedFetcher(timeout time.Duration, userAgent string, logger *slog.Logger) FeedFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	if userAgent != "" {
		parser.UserAgent = userAgent
	}

	return &feedFetcher{parser: parser, logger: logger}
}

// Fetch retrieves and parses the feed at feedURL.
func (f *feedFetcher) Fetch(ctx context.Context, feedURL string) (*FeedDocument, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	doc := &FeedDocument{
		Title:       feed.Title,
		Description: feed.Description,
		Entries:     make([]FeedEntry, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		entry := FeedEntry{
			Title:       item.Title,
			Link:        item.Link,
			Summary:     item.Description,
			Content:     item.Content,
			GUID:        item.GUID,
			Categories:  item.Categories,
			PublishedAt: item.PublishedParsed,
		}
		if item.Author != nil {
			entry.Author = item.Author.Name
		}
		if entry.PublishedAt == nil {
			entry.PublishedAt = item.UpdatedParsed
		}
		doc.Entries = append(doc.Entries, entry)
	}

	f.logger.InfoContext(ctx, "feed fetched",
		"url", feedURL,
		"title", feed.Title,
		"entries", len(doc.Entries))

	return doc, nil
}
