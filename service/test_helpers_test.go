package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storyhub/domain"
	"storyhub/fetcher"
	"storyhub/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type fakeFeedRepo struct {
	mu    sync.Mutex
	feeds map[string]*domain.Feed

	marked []markCall
	err    error
}

type markCall struct {
	feedID    string
	fetchedAt time.Time
	status    domain.FetchStatus
}

func newFakeFeedRepo(feeds ...*domain.Feed) *fakeFeedRepo {
	m := map[string]*domain.Feed{}
	for _, f := range feeds {
		m[f.ID] = f
	}
	return &fakeFeedRepo{feeds: m}
}

func (r *fakeFeedRepo) GetActive(ctx context.Context) ([]*domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	out := []*domain.Feed{}
	for _, f := range r.feeds {
		if f.Active {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFeedRepo) GetByID(ctx context.Context, id string) (*domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.feeds[id]
	if !ok {
		return nil, domain.ErrFeedNotFound
	}
	return f, nil
}

func (r *fakeFeedRepo) MarkFetched(ctx context.Context, id string, fetchedAt time.Time, status domain.FetchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.feeds[id]
	if !ok {
		return domain.ErrFeedNotFound
	}

	f.LastFetchAt = &fetchedAt
	f.LastFetchStatus = status
	r.marked = append(r.marked, markCall{feedID: id, fetchedAt: fetchedAt, status: status})

	return nil
}

func (r *fakeFeedRepo) lastMark() (markCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.marked) == 0 {
		return markCall{}, false
	}
	return r.marked[len(r.marked)-1], true
}

type storedArticle struct {
	article  domain.Article
	status   domain.EnrichmentStatus
	meta     *domain.ArticleMetadata
	errorMsg string
}

type fakeArticleRepo struct {
	mu        sync.Mutex
	byKey     map[string]string // feedID "\x00" sourceURL -> article id
	byID      map[string]*storedArticle
	upsertErr error
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{
		byKey: map[string]string{},
		byID:  map[string]*storedArticle{},
	}
}

func articleKey(feedID, sourceURL string) string {
	return feedID + "\x00" + sourceURL
}

func (r *fakeArticleRepo) Upsert(ctx context.Context, a *domain.Article) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.upsertErr != nil {
		return false, r.upsertErr
	}

	key := articleKey(a.FeedID, a.SourceURL)

	if existingID, ok := r.byKey[key]; ok {
		stored := r.byID[existingID]
		stored.article.Title = a.Title
		stored.article.Summary = a.Summary
		stored.article.Author = a.Author
		stored.article.FetchedAt = a.FetchedAt
		a.ID = existingID
		return false, nil
	}

	r.byKey[key] = a.ID
	r.byID[a.ID] = &storedArticle{article: *a, status: domain.EnrichmentPending}

	return true, nil
}

func (r *fakeArticleRepo) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrArticleNotFound
	}

	clone := stored.article
	return &clone, nil
}

func (r *fakeArticleRepo) GetEnrichmentStatus(ctx context.Context, id string) (domain.EnrichmentStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return "", domain.ErrArticleNotFound
	}
	return stored.status, nil
}

func (r *fakeArticleRepo) SetEnrichmentStatus(ctx context.Context, id string, status domain.EnrichmentStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return domain.ErrArticleNotFound
	}

	stored.status = status
	stored.errorMsg = errorMessage

	return nil
}

func (r *fakeArticleRepo) SaveEnrichment(ctx context.Context, a *domain.Article, meta *domain.ArticleMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[a.ID]
	if !ok {
		return domain.ErrArticleNotFound
	}

	stored.article = *a
	stored.status = domain.EnrichmentSuccess
	stored.meta = meta

	return nil
}

func (r *fakeArticleRepo) ResetFailed(ctx context.Context, feedID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, stored := range r.byID {
		if stored.status != domain.EnrichmentFailed {
			continue
		}
		if feedID != "" && stored.article.FeedID != feedID {
			continue
		}
		stored.status = domain.EnrichmentPending
		stored.errorMsg = ""
		n++
	}

	return n, nil
}

func (r *fakeArticleRepo) GetByStoryID(ctx context.Context, storyID string) ([]*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Article{}
	for _, stored := range r.byID {
		if stored.article.StoryID != nil && *stored.article.StoryID == storyID {
			clone := stored.article
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeArticleRepo) get(id string) *storedArticle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

func (r *fakeArticleRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type fakeFetchLogRepo struct {
	mu   sync.Mutex
	logs []*domain.FetchLog
}

func (r *fakeFetchLogRepo) Create(ctx context.Context, log *domain.FetchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.ID = "log-1"
	clone := *log
	r.logs = append(r.logs, &clone)

	return nil
}

func (r *fakeFetchLogRepo) Complete(ctx context.Context, log *domain.FetchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.logs {
		if existing.ID == log.ID {
			clone := *log
			r.logs[i] = &clone
			return nil
		}
	}

	return domain.ErrFeedNotFound
}

func (r *fakeFetchLogRepo) last() *domain.FetchLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.logs) == 0 {
		return nil
	}
	return r.logs[len(r.logs)-1]
}

type fakeFeedFetcher struct {
	mu    sync.Mutex
	doc   *fetcher.FeedDocument
	err   error
	calls int
	delay time.Duration
}

func (f *fakeFeedFetcher) Fetch(ctx context.Context, feedURL string) (*fetcher.FeedDocument, error) {
	f.mu.Lock()
	f.calls++
	doc, err, delay := f.doc, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *fakeFeedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeArticleFetcher struct {
	html string
	err  error
}

func (f *fakeArticleFetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *recordingQueue) Enqueue(ctx context.Context, articleID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, articleID)
	return nil
}

func (q *recordingQueue) Consume(ctx context.Context, handler queue.Handler) error {
	return nil
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string{}, q.ids...)
}
