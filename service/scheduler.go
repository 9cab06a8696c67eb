package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"storyhub/repository"

	"golang.org/x/sync/errgroup"
)

const minPollInterval = 5 * time.Second

// SchedulerConfig holds scheduler parameters.
type SchedulerConfig struct {
	// PollInterval is how often the feed catalog is checked for due feeds.
	PollInterval time.Duration
	// Concurrency bounds how many feeds ingest at once within a tick.
	Concurrency int
}

// Scheduler polls the feed catalog and submits due feeds to the ingestion
// pipeline. Ticks never overlap: a tick that fires while the previous one
// is still draining is skipped.
type Scheduler struct {
	feeds   repository.FeedRepository
	ingest  IngestService
	cfg     SchedulerConfig
	logger  *slog.Logger
	now     func() time.Time
	ticking atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates the ingestion scheduler.
func NewScheduler(feeds repository.FeedRepository, ingest IngestService, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.PollInterval < minPollInterval {
		cfg.PollInterval = minPollInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	return &Scheduler{
		feeds:  feeds,
		ingest: ingest,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the polling loop in a goroutine. The first tick fires
// immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		s.Tick(ctx)

		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop cancels the timer. In-flight ingestion keeps running; call Wait to
// drain it.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Wait blocks until the polling loop and its in-flight tick have finished.
func (s *Scheduler) Wait() {
	<-s.done
}

// Tick loads the active feeds, filters the due ones and ingests them under
// the concurrency limit, waiting for pool drain before returning. A tick
// that fires while another is in flight is skipped.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.logger.InfoContext(ctx, "previous tick still in flight, skipping")
		return
	}
	defer s.ticking.Store(false)

	feeds, err := s.feeds.GetActive(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load active feeds", "error", err)
		return
	}

	now := s.now()

	due := feeds[:0]
	for _, feed := range feeds {
		if feed.IsDue(now) {
			due = append(due, feed)
		}
	}

	if len(due) == 0 {
		return
	}

	s.logger.InfoContext(ctx, "ingesting due feeds", "due", len(due), "total", len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, feed := range due {
		feedID := feed.ID

		g.Go(func() error {
			// A panic on one feed is contained here so the rest of the
			// tick keeps draining.
			defer func() {
				if r := recover(); r != nil {
					s.logger.ErrorContext(gctx, "panic during ingestion",
						"feed_id", feedID,
						"panic", r)
				}
			}()

			// Ingestion failures are recorded per feed, never returned,
			// so the group always drains fully.
			s.ingest.IngestFeed(gctx, feedID)
			return nil
		})
	}

	_ = g.Wait()
}

// IngestNow submits one feed outside the schedule, bypassing the due check.
// Used by the operational trigger surface.
func (s *Scheduler) IngestNow(ctx context.Context, feedID string) *IngestResult {
	s.logger.InfoContext(ctx, "manual ingestion requested", "feed_id", feedID)
	return s.ingest.IngestFeed(ctx, feedID)
}
