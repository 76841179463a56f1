package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/config"
	dbRedis "github.com/memoir-labs/memoir/internal/db/redis"
	logpkg "github.com/memoir-labs/memoir/internal/logger"
	"github.com/memoir-labs/memoir/internal/metrics"
	"github.com/memoir-labs/memoir/internal/repository/embcache"
	embeddingrepo "github.com/memoir-labs/memoir/internal/repository/embedding"
	memoryrepo "github.com/memoir-labs/memoir/internal/repository/memory"
	usagerepo "github.com/memoir-labs/memoir/internal/repository/usage"
	chiTransport "github.com/memoir-labs/memoir/internal/transport/chi"
	aiTransport "github.com/memoir-labs/memoir/internal/transport/openai"
	classifyuc "github.com/memoir-labs/memoir/internal/usecase/classify"
	healthuc "github.com/memoir-labs/memoir/internal/usecase/health"
	memoryuc "github.com/memoir-labs/memoir/internal/usecase/memory"
	pipelineuc "github.com/memoir-labs/memoir/internal/usecase/pipeline"
	searchuc "github.com/memoir-labs/memoir/internal/usecase/search"
	usageuc "github.com/memoir-labs/memoir/internal/usecase/usage"
	"github.com/memoir-labs/memoir/internal/version"
	"github.com/memoir-labs/memoir/internal/worker"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting memoir API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Store not ready", zap.Error(err))
	}
	logger.Info("Connected to store")

	// Register metrics explicitly (no init())
	metrics.RegisterAIMetrics()
	metrics.RegisterTaskMetrics()

	// Every provider call feeds the shared token ledger.
	usageRepo := usagerepo.New(store, cfg.Storage.KeyPrefix)

	aiTimeout := time.Duration(cfg.AI.RequestTimeoutSec) * time.Second
	embedder := aiTransport.NewEmbedder(&aiTransport.EmbedderConfig{
		APIKey:     cfg.AI.APIKey,
		BaseURL:    cfg.AI.BaseURL,
		Model:      cfg.AI.EmbeddingModel,
		Dimensions: cfg.AI.Dimensions,
		Timeout:    aiTimeout,
		Usage:      usageRepo,
		Logger:     logger,
	})
	chatClient := aiTransport.NewChatClient(&aiTransport.ChatConfig{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.ClassificationModel,
		Timeout: aiTimeout,
		Usage:   usageRepo,
		Logger:  logger,
	})

	// Vectorizing the same text twice is pure waste, so embeddings are
	// cached by content hash in front of the provider.
	cachedEmbedder := embcache.New(embedder, store, cfg.Storage.KeyPrefix,
		metrics.EmbeddingCacheTotal, logger)
	logger.Info("AI clients created",
		zap.String("classification_model", cfg.AI.ClassificationModel),
		zap.String("embedding_model", cfg.AI.EmbeddingModel),
		zap.Int("dimensions", cfg.AI.Dimensions),
	)

	// Repositories share the configured key namespace.
	memRepo := memoryrepo.New(store, cfg.Storage.KeyPrefix)
	embRepo := embeddingrepo.New(store, cfg.AI.Dimensions, cfg.Storage.KeyPrefix)
	if err := embRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	engine := classifyuc.New(chatClient, cfg.AI.MaxTags, logger)
	pipeSvc := pipelineuc.New(
		memRepo, embRepo, engine, cachedEmbedder,
		cfg.AI.EmbeddingModel, cfg.AI.MaxTags, logger,
	)

	pool := worker.NewPool(worker.Config{
		Workers:     cfg.Pipeline.Workers,
		QueueSize:   cfg.Pipeline.QueueSize,
		TaskTimeout: time.Duration(cfg.Pipeline.TaskTimeoutSec) * time.Second,
		Retry: worker.RetryPolicy{
			Attempts:  cfg.Pipeline.RetryAttempts,
			BaseDelay: time.Duration(cfg.Pipeline.RetryBaseMS) * time.Millisecond,
		},
		Logger: logger,
	})
	pool.Start()
	defer pool.Stop()

	memSvc := memoryuc.New(memRepo, embRepo, &processEnqueuer{pool: pool, pipe: pipeSvc}, logger)
	searchSvc := searchuc.New(memRepo, embRepo, cachedEmbedder).
		WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit).
		WithDistanceThreshold(cfg.Search.DistanceThreshold)
	// Health checks go to the raw embedder: a cache hit would mask a
	// provider outage.
	healthSvc := healthuc.New(store, embedder, chatClient)
	usageSvc := usageuc.New(usageRepo)

	server := chiTransport.NewServer(memSvc, searchSvc, pipeSvc, engine, healthSvc, usageSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// processEnqueuer hands newly created memories to the background pipeline.
type processEnqueuer struct {
	pool *worker.Pool
	pipe *pipelineuc.Service
}

func (e *processEnqueuer) EnqueueProcess(memoryID string) bool {
	return e.pool.Enqueue(worker.Task{
		Name: "memory.process",
		Run: func(ctx context.Context) (any, error) {
			return e.pipe.ProcessMemory(ctx, memoryID)
		},
	})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.Info("http request",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
