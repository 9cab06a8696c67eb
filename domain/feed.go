package domain

import "time"

// FetchStatus is the outcome of the most recent ingestion run for a feed.
type FetchStatus string

const (
	FetchStatusNone    FetchStatus = ""
	FetchStatusSuccess FetchStatus = "success"
	FetchStatusError   FetchStatus = "error"
)

// Feed is a syndicated source registered in the catalog.
type Feed struct {
	ID              string
	URL             string
	Title           string
	Active          bool
	IntervalMinutes int
	LastFetchAt     *time.Time
	LastFetchStatus FetchStatus
	CreatedAt       time.Time
}

// IsDue reports whether the feed should be fetched at the given instant.
// A feed that has never been fetched is always due. The interval boundary
// is inclusive: exactly IntervalMinutes since the last fetch counts as due.
func (f *Feed) IsDue(now time.Time) bool {
	if !f.Active {
		return false
	}
	if f.LastFetchAt == nil {
		return true
	}
	interval := time.Duration(f.IntervalMinutes) * time.Minute
	return now.Sub(*f.LastFetchAt) >= interval
}
