// Command processor consumes submission events from the broker and runs the
// asynchronous enrichment, classification, and provisioning pipeline.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"leadgate/internal/dedup"
	"leadgate/internal/enrich"
	"leadgate/internal/platform/config"
	"leadgate/internal/platform/kafka"
	"leadgate/internal/platform/logger"
	"leadgate/internal/platform/redis"
	"leadgate/internal/queue"
	"leadgate/internal/submission"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("processor exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The processor shares state with the gateway; both backends are
	// mandatory here because a second process cannot see in-memory stores.
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("POSTGRES_URL is required")
	}
	db, err := sql.Open("postgres", cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient == nil {
		return fmt.Errorf("REDIS_URL is required")
	}
	defer redisClient.Close()

	waterfall, err := buildWaterfall(cfg.Enrichment, log)
	if err != nil {
		return fmt.Errorf("build enrichment waterfall: %w", err)
	}

	provisioner, marketing := buildDownstream(cfg.Downstream, log)
	processor, err := queue.NewProcessor(
		dedup.NewRedisStore(redisClient.Client, cfg.Dedup.TTL),
		submission.NewPostgresStore(db),
		waterfall,
		provisioner,
		marketing,
		log,
	)
	if err != nil {
		return fmt.Errorf("build processor: %w", err)
	}

	consumerClient, err := kafka.NewConsumer(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	defer consumerClient.Close()

	log.Info("processor consuming",
		"topic", cfg.Kafka.Topic,
		"group", cfg.Kafka.Group,
	)
	return queue.NewConsumer(consumerClient.Client, processor, log).Run(ctx)
}

func buildWaterfall(cfg config.Enrichment, log *slog.Logger) (*enrich.Waterfall, error) {
	var providers []enrich.Provider
	if cfg.PrimaryURL != "" {
		providers = append(providers, enrich.NewHTTPProvider("primary", cfg.PrimaryURL, cfg.PrimaryKey))
	}
	if cfg.SecondaryURL != "" {
		providers = append(providers, enrich.NewHTTPProvider("secondary", cfg.SecondaryURL, cfg.SecondaryKey))
	}
	if len(providers) == 0 {
		log.Warn("no enrichment providers configured")
		providers = append(providers, enrich.NoopProvider{})
	}
	return enrich.NewWaterfall(providers, cfg.ProviderTimeout, enrich.WithLogger(log))
}

func buildDownstream(cfg config.Downstream, log *slog.Logger) (queue.Provisioner, queue.MarketingSink) {
	var provisioner queue.Provisioner = queue.LogDownstream{Logger: log}
	var marketing queue.MarketingSink = queue.LogDownstream{Logger: log}
	if cfg.ProvisionerURL != "" {
		provisioner = queue.NewHTTPDownstream(cfg.ProvisionerURL)
	}
	if cfg.MarketingURL != "" {
		marketing = queue.NewHTTPDownstream(cfg.MarketingURL)
	}
	return provisioner, marketing
}
