// Package bootstrap constructs the application in dependency order.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"storyhub/cluster"
	"storyhub/config"
	"storyhub/embedding"
	"storyhub/fetcher"
	"storyhub/indexqueue"
	"storyhub/queue"
	"storyhub/repository"
	"storyhub/resilience"
	"storyhub/retry"
	"storyhub/search"
	"storyhub/service"
	"storyhub/similarity"
	"storyhub/storyqueue"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds the wired application.
type Dependencies struct {
	DBPool *pgxpool.Pool
	Logger *slog.Logger

	FeedRepo    repository.FeedRepository
	ArticleRepo repository.ArticleRepository

	Queue      queue.ArticleQueue
	IndexQueue *indexqueue.Queue
	StoryQueue *storyqueue.Queue

	Scheduler *service.Scheduler
	Enrich    service.EnrichService
	Workers   *service.EnrichWorkerPool
}

// BuildDependencies wires everything in leaf-to-root order and returns a
// cleanup function to defer.
func BuildDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Dependencies, func(), error) {
	dbPool, err := repository.Init(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		dbPool.Close()
	}

	feedRepo := repository.NewFeedRepository(dbPool, log)
	articleRepo := repository.NewArticleRepository(dbPool, log)
	fetchLogRepo := repository.NewFetchLogRepository(dbPool, log)
	storyRepo := repository.NewStoryRepository(dbPool, log)

	searchEngine := search.NewMeilisearchEngine(search.NewClient(cfg.MeilisearchHost, cfg.MeilisearchAPIKey), log)
	if err := searchEngine.EnsureIndexes(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to provision search indexes: %w", err)
	}

	provider := buildProvider(cfg, log)

	articleQueue, err := buildQueue(ctx, cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	indexQueue := indexqueue.New(searchEngine, indexqueue.Config{
		BatchSize:     cfg.IndexBatchSize,
		FlushInterval: cfg.IndexFlushInterval,
	}, nil, log)

	storyQueue := storyqueue.New(articleRepo, storyRepo, searchEngine, storyqueue.Config{
		Debounce:       cfg.StoryDebounce,
		BatchThreshold: cfg.StoryBatchThreshold,
	}, log)

	clusterer := cluster.NewEngine(searchEngine, cluster.Config{
		Threshold:     cfg.ClusterThreshold,
		Window:        cfg.ClusterWindow,
		MaxCandidates: 200,
		Weights:       similarity.DefaultWeights(),
	}, log)

	feedFetcher := fetcher.NewFeedFetcher(cfg.FeedFetchTimeout, cfg.UserAgent, log)
	articleFetcher := fetcher.NewArticleFetcher(cfg.ArticleFetchTimeout, cfg.UserAgent, log)

	ingest := service.NewIngestService(feedRepo, articleRepo, fetchLogRepo, feedFetcher, articleQueue, log)
	enrich := service.NewEnrichService(articleRepo, articleFetcher, provider, clusterer, indexQueue, storyQueue, log)

	scheduler := service.NewScheduler(feedRepo, ingest, service.SchedulerConfig{
		PollInterval: cfg.PollInterval,
		Concurrency:  cfg.IngestConcurrency,
	}, log)

	workers := service.NewEnrichWorkerPool(articleQueue, enrich, cfg.EnrichWorkers, log)

	deps := &Dependencies{
		DBPool:      dbPool,
		Logger:      log,
		FeedRepo:    feedRepo,
		ArticleRepo: articleRepo,
		Queue:       articleQueue,
		IndexQueue:  indexQueue,
		StoryQueue:  storyQueue,
		Scheduler:   scheduler,
		Enrich:      enrich,
		Workers:     workers,
	}

	return deps, cleanup, nil
}

// buildProvider picks the remote provider with its breaker when an endpoint
// is configured, the local deterministic one otherwise.
func buildProvider(cfg *config.Config, log *slog.Logger) embedding.Provider {
	if cfg.EmbeddingEndpoint == "" {
		log.Warn("no embedding endpoint configured, using local provider")
		return embedding.NewLocal(cfg.EmbeddingDimensions)
	}

	breaker := resilience.NewCircuitBreaker(resilience.DefaultConfig(), func(from, to resilience.State) {
		log.Info("embedding circuit breaker state change", "from", from, "to", to)
	})

	return embedding.NewRemote(embedding.RemoteConfig{
		Endpoint:   cfg.EmbeddingEndpoint,
		Dimensions: cfg.EmbeddingDimensions,
		Timeout:    cfg.EmbeddingTimeout,
		Retry:      retry.DefaultConfig(),
	}, breaker, log)
}

func buildQueue(ctx context.Context, cfg *config.Config, log *slog.Logger) (queue.ArticleQueue, error) {
	if cfg.QueueBackend == "redis" {
		redisCfg := queue.DefaultRedisConfig()
		redisCfg.RedisURL = cfg.RedisURL

		q, err := queue.NewRedisQueue(ctx, redisCfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis queue: %w", err)
		}
		return q, nil
	}

	return queue.NewMemoryQueue(cfg.QueueCapacity, log), nil
}
