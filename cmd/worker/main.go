package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"portal/internal/audit"
	"portal/internal/config"
	"portal/internal/jobs"
	"portal/internal/logging"
	"portal/internal/queue"
	"portal/internal/store"
)

// Worker drains the audit queue into Postgres and purges old entries.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", false)
		boot.Fatal().Err(err).Msg("config load failed")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty).With().Str("service", "worker").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		log.Warn().Msg("memory queue selected, the api drains its own audit entries")
		q = queue.NewInMemory(64)
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		if !redisClient.Healthy(ctx) {
			log.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable yet, consumer will retry")
		}
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	repo := audit.NewRepository(db.Client)

	scheduler := jobs.NewManager(log)
	err = scheduler.Add("purge_audit", cfg.PurgeSchedule, purgeAudit(repo, cfg.AuditRetention, log))
	if err != nil {
		log.Fatal().Err(err).Msg("schedule purge failed")
	}
	scheduler.Start()
	defer scheduler.Stop()

	if err := audit.NewSink(repo, log).Run(ctx, q); err != nil {
		log.Error().Err(err).Msg("sink stopped")
	}
}

type auditPurger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// purgeAudit deletes entries older than retention. A zero retention keeps
// everything.
func purgeAudit(repo auditPurger, retention time.Duration, log zerolog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		if retention <= 0 {
			return nil
		}
		n, err := repo.Purge(ctx, time.Now().Add(-retention))
		if err != nil {
			return err
		}
		log.Info().Int64("deleted", n).Dur("retention", retention).Msg("audit entries purged")
		return nil
	}
}
