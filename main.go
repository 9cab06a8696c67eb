package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storyhub/bootstrap"
	"storyhub/config"
	"storyhub/logger"
)

func main() {
	log := logger.New("storyhub")

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, cleanup, err := bootstrap.BuildDependencies(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	deps.Workers.Start(ctx)
	deps.Scheduler.Start(ctx)

	log.Info("storyhub started",
		"poll_interval", cfg.PollInterval,
		"ingest_concurrency", cfg.IngestConcurrency,
		"enrich_workers", cfg.EnrichWorkers,
		"queue_backend", cfg.QueueBackend)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")

	// Stop taking new work, then drain in dependency order: scheduler
	// first, then the enrichment queue and workers, then the outbound
	// queues so nothing recently enriched is lost.
	deps.Scheduler.Stop()
	deps.Scheduler.Wait()

	if err := deps.Queue.Close(); err != nil {
		log.Error("failed to close article queue", "error", err)
	}
	deps.Workers.Wait()

	deps.IndexQueue.Close()
	deps.StoryQueue.Close()

	log.Info("shutdown complete")
}
