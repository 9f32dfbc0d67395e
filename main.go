package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"hotfeed/api"
	"hotfeed/archive"
	"hotfeed/cache"
	"hotfeed/config"
	"hotfeed/events"
	"hotfeed/pipeline"
	"hotfeed/scheduler"
	"hotfeed/store"
	"hotfeed/upstream"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is required for the route catalog and shard-year tracking.
	primary, err := cache.New(cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer primary.Close()
	log.Printf("connected to redis at %s", cfg.Redis.Addr())

	sink := buildSink(cfg, primary)

	st, err := store.Open(ctx, cfg, primary)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()
	log.Printf("connected to shard store (prefix %s)", cfg.PGDBPrefix)

	client := upstream.NewClient(cfg.APIBaseURL)

	pipe := &pipeline.Pipeline{
		Upstream: client,
		Sink:     sink,
		Store:    st,
		Archiver: buildArchiver(ctx, cfg),
	}
	if pub := buildPublisher(cfg); pub != nil {
		defer pub.Close()
		pipe.Publisher = pub
	}

	status := api.NewStatus()
	if cfg.HealthAddr != "" {
		go func() {
			if err := api.NewRouter(status).Run(cfg.HealthAddr); err != nil {
				log.Printf("health server: %v", err)
			}
		}()
		log.Printf("health endpoint on %s", cfg.HealthAddr)
	}

	sched := &scheduler.Scheduler{
		Upstream: client,
		Catalog:  primary,
		Tables:   st,
		Pipeline: pipe,
		MinSleep: cfg.CycleMin,
		MaxSleep: cfg.CycleMax,
		OnCycle:  status.RecordCycle,
	}

	if err := sched.Initialize(ctx); err != nil {
		log.Fatalf("initialize: %v", err)
	}
	sched.Run(ctx)
}

// buildSink selects the single or mirrored cache variant. A mirror that
// cannot connect is logged and skipped rather than blocking startup.
func buildSink(cfg config.Config, primary *cache.Client) cache.Sink {
	if !cfg.MirrorEnabled {
		return cache.Single{Primary: primary}
	}
	secondary, err := cache.New(cfg.Mirror)
	if err != nil {
		log.Printf("cache mirror disabled: %v", err)
		return cache.Single{Primary: primary}
	}
	log.Printf("mirroring ranked cache to %s", cfg.Mirror.Addr())
	return cache.Mirrored{Primary: primary, Secondary: secondary}
}

func buildArchiver(ctx context.Context, cfg config.Config) pipeline.Archiver {
	if cfg.S3Bucket == "" {
		return nil
	}
	a, err := archive.New(ctx, archive.Config{
		Bucket: cfg.S3Bucket,
		Region: cfg.S3Region,
		Prefix: cfg.S3Prefix,
	})
	if err != nil {
		log.Printf("snapshot archiving disabled: %v", err)
		return nil
	}
	log.Printf("archiving snapshots to s3://%s", cfg.S3Bucket)
	return a
}

func buildPublisher(cfg config.Config) *events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}
	pub, err := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Printf("ingest events disabled: %v", err)
		return nil
	}
	return pub
}
