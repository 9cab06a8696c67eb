package domain

import "time"

// FetchLogStatus is the lifecycle state of an ingestion run.
type FetchLogStatus string

const (
	FetchLogRunning FetchLogStatus = "running"
	FetchLogSuccess FetchLogStatus = "success"
	FetchLogFailure FetchLogStatus = "failure"
)

// FetchLog is an append-only record of one ingestion attempt for a feed.
// A row is created in running state when the run starts and closed exactly
// once with either success or failure.
type FetchLog struct {
	ID             string
	FeedID         string
	Status         FetchLogStatus
	StartedAt      time.Time
	FinishedAt     *time.Time
	ItemsParsed    int
	ItemsInserted  int
	ItemsDuplicate int
	ErrorMessage   string
	ErrorStack     string
}
