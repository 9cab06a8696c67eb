package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"storyhub/cluster"
	"storyhub/domain"
	"storyhub/embedding"
	"storyhub/extract"
	"storyhub/fetcher"
	"storyhub/indexqueue"
	"storyhub/queue"
	"storyhub/repository"
	"storyhub/storyqueue"
)

// enrichService turns a pending article into an enriched, embedded,
// clustered and indexed one.
type enrichService struct {
	articles   repository.ArticleRepository
	fetcher    fetcher.ArticleFetcher
	provider   embedding.Provider
	clusterer  *cluster.Engine
	indexQueue *indexqueue.Queue
	storyQueue *storyqueue.Queue
	logger     *slog.Logger
}

// NewEnrichService creates the enrichment pipeline service.
func NewEnrichService(
	articles repository.ArticleRepository,
	articleFetcher fetcher.ArticleFetcher,
	provider embedding.Provider,
	clusterer *cluster.Engine,
	indexQueue *indexqueue.Queue,
	storyQueue *storyqueue.Queue,
	logger *slog.Logger,
) EnrichService {
	return &enrichService{
		articles:   articles,
		fetcher:    articleFetcher,
		provider:   provider,
		clusterer:  clusterer,
		indexQueue: indexQueue,
		storyQueue: storyQueue,
		logger:     logger,
	}
}

func (s *enrichService) EnrichArticle(ctx context.Context, articleID string) error {
	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load article", "article_id", articleID, "error", err)
		return err
	}

	status, err := s.articles.GetEnrichmentStatus(ctx, articleID)
	if err != nil {
		return err
	}

	// Re-running an already enriched article is a no-op.
	if status == domain.EnrichmentSuccess {
		return nil
	}

	if err := s.articles.SetEnrichmentStatus(ctx, articleID, domain.EnrichmentProcessing, ""); err != nil {
		return err
	}

	if err := s.enrich(ctx, article); err != nil {
		s.logger.ErrorContext(ctx, "enrichment failed",
			"article_id", articleID,
			"error", err)

		if markErr := s.articles.SetEnrichmentStatus(ctx, articleID, domain.EnrichmentFailed, err.Error()); markErr != nil {
			s.logger.ErrorContext(ctx, "failed to mark article failed", "article_id", articleID, "error", markErr)
		}

		return err
	}

	return nil
}

func (s *enrichService) enrich(ctx context.Context, article *domain.Article) error {
	rawHTML, err := s.fetcher.FetchHTML(ctx, article.SourceURL)
	if err != nil {
		return fmt.Errorf("failed to fetch article page: %w", err)
	}

	rawHTML, _ = extract.Truncate(rawHTML, extract.MaxRawHTMLChars)

	content := extract.ExtractContent(rawHTML)

	baseURL, _ := url.Parse(article.SourceURL)
	pageMeta := extract.ExtractMetadata(rawHTML, baseURL)

	plainText := ""
	if content != nil {
		plainText = content.PlainText
	}

	article.RawContent = rawHTML
	article.PlainContent = plainText
	article.ContentHash = domain.HashContent(plainText)

	if pageMeta != nil {
		if pageMeta.CanonicalURL != "" {
			article.CanonicalURL = pageMeta.CanonicalURL
		}
		article.Language = extract.DetectLanguage(pageMeta.DeclaredLang, pageMeta.OGLocale, plainText)
		article.Keywords = mergeKeywords(article.Keywords, pageMeta.Keywords)
	}

	vector, err := s.provider.Embed(ctx, embeddingText(article, plainText))
	if err != nil {
		return fmt.Errorf("failed to embed article: %w", err)
	}

	storyID, err := s.clusterer.AssignStory(ctx, article, vector)
	if err != nil {
		return fmt.Errorf("failed to cluster article: %w", err)
	}
	article.StoryID = storyID

	meta := buildMetadata(article.ID, pageMeta, content)

	if err := s.articles.SaveEnrichment(ctx, article, meta); err != nil {
		return err
	}

	s.indexQueue.Add(ctx, domain.NewSearchDocument(article, vector))

	assigned := ""
	if storyID != nil {
		assigned = *storyID
		s.storyQueue.Enqueue(assigned)
	}

	s.logger.InfoContext(ctx, "article enriched",
		"article_id", article.ID,
		"language", article.Language,
		"story_id", assigned)

	return nil
}

func (s *enrichService) RetryFailed(ctx context.Context, feedID string) (int64, error) {
	return s.articles.ResetFailed(ctx, feedID)
}

// embeddingText prefers the extracted body; articles whose page yielded no
// text fall back to the title and feed summary so they still get a usable
// vector.
func embeddingText(article *domain.Article, plainText string) string {
	if plainText != "" {
		return article.Title + "\n\n" + plainText
	}
	return article.Title + "\n\n" + article.Summary
}

func mergeKeywords(a, b []string) []string {
	set := map[string]struct{}{}
	for _, k := range a {
		set[k] = struct{}{}
	}
	for _, k := range b {
		set[k] = struct{}{}
	}

	merged := make([]string, 0, len(set))
	for k := range set {
		merged = append(merged, k)
	}
	sort.Strings(merged)

	return merged
}

func buildMetadata(articleID string, pageMeta *extract.Metadata, content *extract.Content) *domain.ArticleMetadata {
	meta := &domain.ArticleMetadata{
		ArticleID: articleID,
		Status:    domain.EnrichmentSuccess,
		UpdatedAt: time.Now(),
	}

	if pageMeta != nil {
		meta.OGTitle = pageMeta.OGTitle
		meta.OGDescription = pageMeta.OGDescription
		meta.OGImage = pageMeta.OGImage
		meta.OGLocale = pageMeta.OGLocale
		meta.TwitterCard = pageMeta.TwitterCard
		meta.TwitterImage = pageMeta.TwitterImage
		meta.Favicon = pageMeta.Favicon
		meta.HeroImage = pageMeta.HeroImage
	}

	if content != nil {
		meta.WordCount = content.WordCount
		meta.ReadingTimeMinutes = content.ReadingTimeMinutes
	}

	return meta
}

// EnrichWorkerPool drains the article queue with a fixed number of workers.
type EnrichWorkerPool struct {
	queue   queue.ArticleQueue
	service EnrichService
	workers int
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewEnrichWorkerPool creates the enrichment worker pool.
func NewEnrichWorkerPool(articleQueue queue.ArticleQueue, service EnrichService, workers int, logger *slog.Logger) *EnrichWorkerPool {
	if workers <= 0 {
		workers = 4
	}

	return &EnrichWorkerPool{
		queue:   articleQueue,
		service: service,
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers. They stop when the context is cancelled or
// the queue is closed.
func (p *EnrichWorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)

		go func(worker int) {
			defer p.wg.Done()

			err := p.queue.Consume(ctx, p.handle)
			if err != nil && ctx.Err() == nil {
				p.logger.ErrorContext(ctx, "enrichment worker stopped", "worker", worker, "error", err)
			}
		}(i)
	}
}

// Wait blocks until every worker has returned.
func (p *EnrichWorkerPool) Wait() {
	p.wg.Wait()
}

// handle guards the pool boundary: a panic in one article's enrichment is
// logged and must not take the worker down.
func (p *EnrichWorkerPool) handle(ctx context.Context, articleID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "panic during enrichment",
				"article_id", articleID,
				"panic", r)
			err = fmt.Errorf("panic during enrichment: %v", r)
		}
	}()

	return p.service.EnrichArticle(ctx, articleID)
}
