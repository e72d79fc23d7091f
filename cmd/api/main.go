package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"portal/internal/audit"
	"portal/internal/backend"
	"portal/internal/config"
	"portal/internal/dashboard"
	"portal/internal/handler"
	"portal/internal/httpmiddleware"
	"portal/internal/jobs"
	"portal/internal/logging"
	"portal/internal/queue"
	"portal/internal/session"
	"portal/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", false)
		boot.Fatal().Err(err).Msg("config load failed")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the audit log is optional for the portal itself
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("db not reachable, audit log disabled")
	}
	defer func() { _ = db.Close() }()

	var redisClient *store.Redis
	if cfg.SessionBackend == "redis" || cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
	}

	var sessions session.Store
	if cfg.SessionBackend == "memory" {
		sessions = session.NewMemoryStore()
	} else {
		sessions = session.NewRedisStore(redisClient.Client, "portal:session:")
	}
	provider := session.NewProvider(sessions, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(1024)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	var reader handler.AuditReader
	if db != nil {
		repo := audit.NewRepository(db.Client)
		reader = repo
		if cfg.QueueBackend == "memory" {
			// nothing else can drain an in-process queue
			go func() {
				if err := audit.NewSink(repo, log).Run(ctx, q); err != nil {
					log.Error().Err(err).Msg("audit sink stopped")
				}
			}()
		}
	}

	client := backend.New(cfg.BackendURL, cfg.BackendTimeout, log)
	registry := dashboard.NewRegistry()
	boards := dashboard.NewService(
		backend.NewResources(client),
		audit.NewRecorder(q, cfg.AuditEnabled, log),
		registry,
		dashboard.Options{
			Scheme:                 cfg.GradeScheme,
			Policy:                 cfg.MarkPolicy,
			PageSize:               cfg.PageSize,
			LowAttendanceThreshold: cfg.LowAttendanceThreshold,
		},
		log,
	)

	probes := map[string]handler.Probe{
		"backend": func(ctx context.Context) bool { return client.Health(ctx) == nil },
	}
	if redisClient != nil {
		probes["redis"] = redisClient.Healthy
	}
	if db != nil {
		probes["db"] = db.Healthy
	}

	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)

	scheduler := jobs.NewManager(log)
	err = scheduler.Add("sweep_boards", cfg.SweepSchedule, func(context.Context) error {
		boardsDropped := registry.Sweep(cfg.BoardTTL)
		buckets := limiter.Sweep(cfg.BoardTTL)
		log.Debug().Int("boards", boardsDropped).Int("buckets", buckets).Msg("idle state swept")
		return nil
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(log, "/healthz", "/metrics"))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(limiter.Middleware("/healthz", "/metrics"))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.New(client, provider, boards, reader, probes, cfg.Production(), log).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("backend", cfg.BackendURL).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}

	log.Info().Msg("server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Cache-Control", "no-store")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
