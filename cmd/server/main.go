package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/api"
	"github.com/notifyhub/tubealert/internal/cache"
	"github.com/notifyhub/tubealert/internal/captions"
	"github.com/notifyhub/tubealert/internal/config"
	"github.com/notifyhub/tubealert/internal/db"
	"github.com/notifyhub/tubealert/internal/hub"
	"github.com/notifyhub/tubealert/internal/logger"
	"github.com/notifyhub/tubealert/internal/metrics"
	"github.com/notifyhub/tubealert/internal/provider"
	"github.com/notifyhub/tubealert/internal/queue"
	"github.com/notifyhub/tubealert/internal/ratelimiter"
	"github.com/notifyhub/tubealert/internal/repository"
	"github.com/notifyhub/tubealert/internal/service"
	"github.com/notifyhub/tubealert/internal/summarizer"
	"github.com/notifyhub/tubealert/internal/usage"
	"github.com/notifyhub/tubealert/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to build logger", zap.Error(err))
	}
	defer log.Sync() //nolint:errcheck

	log = log.With(zap.String("env", cfg.Environment))

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	q := newQueue(cfg, pool, log)
	notifications := repository.NewPgNotificationRepository(pool)
	subscribers := repository.NewPgSubscriberRepository(pool)
	accountant := usage.NewPgAccountant(pool)
	limiter := ratelimiter.New(map[string]int{
		ratelimiter.KeyEmail:      cfg.Email.RateLimit,
		ratelimiter.KeySummarizer: cfg.Summarizer.RateLimit,
	})

	front, closeFront := newCacheFront(ctx, cfg, log)
	defer closeFront()
	store := cache.NewLayered(repository.NewPgAIContentRepository(pool), front, cfg.CacheTTL, log.Named("cache"))

	summaries := service.NewSummaryService(
		store,
		summarizer.NewClient(cfg.Summarizer.BaseURL, cfg.Summarizer.APIKey, cfg.Summarizer.Model,
			cfg.Summarizer.MaxTranscriptChars, cfg.Summarizer.Timeout),
		limiter,
		log.Named("summary"),
		m.ObserveSummary,
	)
	fanout := service.NewFanoutService(
		subscribers,
		notifications,
		hub.NewClient(cfg.Hub.URL, cfg.Hub.CallbackURL, cfg.Hub.Timeout),
		captions.NewHTTPFetcher(cfg.Captions.BaseURL, cfg.Captions.Language, cfg.Captions.Timeout),
		summaries,
		cfg.DashboardURL,
		log.Named("fanout"),
		m.AddNotificationsCreated,
	)

	// ---- workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	hooks := worker.MetricHooks{
		OnOutcome:    m.ObserveOutcome,
		OnQueueDepth: m.SetQueueDepth,
		OnSent:       m.ObserveSent,
		OnFailed:     m.ObserveFailed,
		OnReset:      m.ObserveReset,
	}

	supervisor := worker.NewSupervisor(workerCtx, log, m.SetWorkerRunning)
	supervisor.Register(worker.NameQueue,
		worker.NewQueueWorker(q, fanout, cfg.Queue, log.Named("queue_worker"), hooks))
	supervisor.Register(worker.NameEmail,
		worker.NewEmailWorker(notifications, newProvider(cfg, log), accountant, limiter, cfg.Email,
			log.Named("email_worker"), hooks))
	supervisor.Register(worker.NameSubscriptionCheck,
		worker.NewSubscriptionCheckWorker(subscribers, accountant,
			cfg.SubscriptionCheck.Interval, cfg.SubscriptionCheck.Window, cfg.SubscriptionCheckEnabled(),
			log.Named("subscription_check"), hooks))

	for _, name := range cfg.AutoStartWorkers {
		if err := supervisor.Start(name); err != nil {
			log.Error("failed to autostart worker", zap.String("worker", name), zap.Error(err))
		}
	}

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Queue:         q,
		Notifications: notifications,
		Workers:       supervisor,
		DB:            pool,
		Gatherer:      reg,
		Logger:        log,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop every worker loop and wait for in-flight work to finish.
	supervisor.StopAll()

	log.Info("server stopped cleanly")
}

func newQueue(cfg *config.Config, pool *pgxpool.Pool, log *zap.Logger) queue.Queue {
	if cfg.Queue.Backend == "memory" {
		log.Warn("using in-memory queue: events are lost on restart")
		return queue.NewMemory()
	}
	return queue.NewPgQueue(pool)
}

// newCacheFront connects the optional Redis front of the summary cache.
// Redis being down at boot is not fatal; the cache falls back to Postgres.
func newCacheFront(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.KV, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, summary cache front disabled", zap.Error(err))
		_ = client.Close()
		return nil, func() {}
	}
	log.Info("summary cache front enabled", zap.String("addr", cfg.RedisAddr))
	return cache.NewRedisKV(client), func() { _ = client.Close() }
}

func newProvider(cfg *config.Config, log *zap.Logger) provider.Provider {
	if cfg.Email.Provider == "smtp" {
		log.Info("email provider: smtp", zap.String("host", cfg.Email.SMTPHost))
		return provider.NewSMTPProvider(provider.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			UseTLS:   cfg.Email.SMTPUseTLS,
			Timeout:  cfg.Email.Timeout,
		})
	}
	log.Info("email provider: resend", zap.String("base_url", cfg.Email.APIBaseURL))
	return provider.NewResendProvider(cfg.Email.APIBaseURL, cfg.Email.APIKey, cfg.Email.Timeout)
}
