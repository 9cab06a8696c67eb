package domain

import "errors"

var (
	// ErrFeedNotFound indicates the feed id is not in the catalog.
	ErrFeedNotFound = errors.New("feed not found")
	// ErrArticleNotFound indicates the article id does not exist.
	ErrArticleNotFound = errors.New("article not found")
	// ErrEntryMissingLink indicates a feed entry had no resolvable link and
	// was skipped during ingestion.
	ErrEntryMissingLink = errors.New("feed entry has no resolvable link")
)
