package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the Redis Streams queue configuration.
type RedisConfig struct {
	// RedisURL is the Redis connection URL.
	RedisURL string
	// StreamKey is the stream the ids are published to.
	StreamKey string
	// GroupName is the consumer group name.
	GroupName string
	// ConsumerName is this consumer's name within the group.
	ConsumerName string
	// BatchSize is the number of messages to read at once.
	BatchSize int64
	// BlockTimeout is how long XREADGROUP blocks waiting for messages.
	BlockTimeout time.Duration
	// MaxLen caps the stream length, trimmed approximately on publish.
	MaxLen int64
}

// DefaultRedisConfig returns the default Redis queue configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		RedisURL:     "redis://localhost:6379",
		StreamKey:    "storyhub:enrich:articles",
		GroupName:    "storyhub-enrichers",
		ConsumerName: "enricher-1",
		BatchSize:    10,
		BlockTimeout: 5 * time.Second,
		MaxLen:       100_000,
	}
}

// RedisQueue is the Redis Streams backend for the article queue. Messages
// stay pending until acknowledged, so an enricher crash redelivers them to
// another group member.
type RedisQueue struct {
	client *redis.Client
	config RedisConfig
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewRedisQueue connects to Redis and creates the consumer group.
func NewRedisQueue(ctx context.Context, config RedisConfig, logger *slog.Logger) (*RedisQueue, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	q := &RedisQueue{
		client: client,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := q.ensureGroup(ctx); err != nil {
		return nil, err
	}

	return q, nil
}

func (q *RedisQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.config.StreamKey, q.config.GroupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, articleID string) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.config.StreamKey,
		MaxLen: q.config.MaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"article_id":  articleID,
			"enqueued_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish article id: %w", err)
	}

	return nil
}

func (q *RedisQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return nil
		default:
			if err := q.readAndProcess(ctx, handler); err != nil {
				q.logger.ErrorContext(ctx, "error processing stream messages", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (q *RedisQueue) readAndProcess(ctx context.Context, handler Handler) error {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.config.GroupName,
		Consumer: q.config.ConsumerName,
		Streams:  []string{q.config.StreamKey, ">"},
		Count:    q.config.BatchSize,
		Block:    q.config.BlockTimeout,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			articleID, ok := message.Values["article_id"].(string)
			if !ok {
				// Malformed message, acknowledge so it does not loop forever.
				q.logger.WarnContext(ctx, "dropping malformed stream message", "message_id", message.ID)
				_ = q.client.XAck(ctx, q.config.StreamKey, q.config.GroupName, message.ID).Err()
				continue
			}

			if err := handler(ctx, articleID); err != nil {
				q.logger.ErrorContext(ctx, "failed to process queued article",
					"message_id", message.ID,
					"article_id", articleID,
					"error", err)
				// Left unacknowledged so the group redelivers it.
				continue
			}

			if err := q.client.XAck(ctx, q.config.StreamKey, q.config.GroupName, message.ID).Err(); err != nil {
				q.logger.ErrorContext(ctx, "failed to acknowledge message",
					"message_id", message.ID,
					"error", err)
			}
		}
	}

	return nil
}

func (q *RedisQueue) Close() error {
	var err error
	q.closeOnce.Do(func() {
		close(q.done)
		err = q.client.Close()
	})
	return err
}
