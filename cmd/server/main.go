// Command server runs the submission gateway: the public HTTP intake API,
// plus an in-process worker when no broker is configured.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"leadgate/internal/builder"
	"leadgate/internal/captcha"
	"leadgate/internal/dedup"
	"leadgate/internal/enrich"
	"leadgate/internal/platform/config"
	"leadgate/internal/platform/geoip"
	"leadgate/internal/platform/httpserver"
	"leadgate/internal/platform/kafka"
	"leadgate/internal/platform/logger"
	"leadgate/internal/platform/redis"
	"leadgate/internal/policy"
	"leadgate/internal/queue"
	"leadgate/internal/ratelimit"
	"leadgate/internal/submission"
	transporthttp "leadgate/internal/transport/http"
	"leadgate/internal/verify"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var checks []transporthttp.HealthCheck

	// Stores fall back to in-memory variants when a backend is not
	// configured, which keeps local development a single binary.
	var (
		subStore   submission.Store
		allowStore policy.AllowBlockStore
	)
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		subStore = submission.NewPostgresStore(db)
		allowStore = policy.NewPostgresAllowBlockStore(db)
		checks = append(checks, transporthttp.HealthCheck{Name: "postgres", Check: db.PingContext})
	} else {
		log.Warn("postgres not configured, using in-memory submission store")
		subStore = submission.NewMemoryStore()
		allowStore = policy.NewMemoryAllowBlockStore()
	}

	var claims dedup.Store
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		claims = dedup.NewRedisStore(redisClient.Client, cfg.Dedup.TTL)
		checks = append(checks, transporthttp.HealthCheck{Name: "redis", Check: redisClient.Health})
	} else {
		log.Warn("redis not configured, using in-memory claim store")
		claims = dedup.NewMemoryStore(cfg.Dedup.TTL)
	}

	var geo submission.GeoResolver
	if db, err := geoip.Open(cfg.Geo.MMDBPath); err == nil {
		defer db.Close()
		geo = db
	} else {
		log.Warn("geolocation database unavailable, country checks fail closed", "error", err)
		geo = unavailableGeo{}
	}

	limiter, err := ratelimit.New(subStore, allowStore, cfg.RateLimit.Window, ratelimit.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build rate limiter: %w", err)
	}

	var sender verify.Sender
	if cfg.Verification.SenderURL != "" {
		sender = verify.NewHTTPSender(cfg.Verification.SenderURL)
	} else {
		log.Warn("verification sender not configured, codes will be logged")
		sender = verify.LogSender{Logger: log}
	}
	codes, err := verify.New(sender, cfg.Verification.CodeLength, cfg.Verification.TTL)
	if err != nil {
		return fmt.Errorf("build verification service: %w", err)
	}

	var probe submission.BuilderProbe
	if cfg.Builder.BaseURL != "" {
		probe, err = builder.NewHTTPProbe(cfg.Builder.BaseURL, cfg.Builder.ProbeTimeout, log)
		if err != nil {
			return fmt.Errorf("build capacity probe: %w", err)
		}
	} else {
		log.Warn("builder probe not configured, assuming available capacity")
		probe = builder.Static(submission.BuilderAvailable)
	}

	waterfall, err := buildWaterfall(cfg.Enrichment, log)
	if err != nil {
		return fmt.Errorf("build enrichment waterfall: %w", err)
	}

	provisioner, marketing := buildDownstream(cfg.Downstream, log)
	processor, err := queue.NewProcessor(claims, subStore, waterfall, provisioner, marketing, log)
	if err != nil {
		return fmt.Errorf("build processor: %w", err)
	}

	var dispatcher submission.EventDispatcher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer producer.Close()
		dispatcher = queue.NewKafkaDispatcher(producer.Client, cfg.Kafka.Topic)
		checks = append(checks, transporthttp.HealthCheck{Name: "kafka", Check: producer.Health})
	} else {
		log.Warn("kafka not configured, processing events in-process")
		channel := queue.NewChannelDispatcher(64)
		dispatcher = channel
		go func() {
			if err := queue.RunWorker(ctx, channel.Events(), processor, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("in-process worker stopped", "error", err)
			}
		}()
	}

	gateway, err := submission.New(
		subStore,
		limiter,
		codes,
		captcha.NewTurnstile(cfg.Turnstile.Secret, cfg.Turnstile.Endpoint),
		geo,
		probe,
		dispatcher,
		log,
	)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	handler := transporthttp.NewHandler(gateway, processor, geo, cfg.Server.TrustedOrigins, log)
	srv := httpserver.New(cfg.Server.Addr, transporthttp.NewRouter(handler, checks, log))

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
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

// unavailableGeo reports every lookup as failed so callers fail closed.
type unavailableGeo struct{}

func (unavailableGeo) Lookup(string) (geoip.Location, error) {
	return geoip.Location{}, fmt.Errorf("geolocation database not loaded")
}
