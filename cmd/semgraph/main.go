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
	"go.uber.org/zap"

	"github.com/resolve-studio/semgraph/internal/config"
	"github.com/resolve-studio/semgraph/internal/db"
	dbMemory "github.com/resolve-studio/semgraph/internal/db/memory"
	dbRedis "github.com/resolve-studio/semgraph/internal/db/redis"
	"github.com/resolve-studio/semgraph/internal/domain"
	"github.com/resolve-studio/semgraph/internal/graphbuild"
	"github.com/resolve-studio/semgraph/internal/hue"
	logpkg "github.com/resolve-studio/semgraph/internal/logger"
	"github.com/resolve-studio/semgraph/internal/metrics"
	"github.com/resolve-studio/semgraph/internal/projection"
	articlesrepo "github.com/resolve-studio/semgraph/internal/repository/articles"
	"github.com/resolve-studio/semgraph/internal/repository/embcache"
	"github.com/resolve-studio/semgraph/internal/repository/graphcache"
	"github.com/resolve-studio/semgraph/internal/segment"
	chiTransport "github.com/resolve-studio/semgraph/internal/transport/chi"
	ollamaEmb "github.com/resolve-studio/semgraph/internal/transport/ollama"
	openaiEmb "github.com/resolve-studio/semgraph/internal/transport/openai"
	articleuc "github.com/resolve-studio/semgraph/internal/usecase/article"
	embeddinguc "github.com/resolve-studio/semgraph/internal/usecase/embedding"
	healthuc "github.com/resolve-studio/semgraph/internal/usecase/health"
	visualizationuc "github.com/resolve-studio/semgraph/internal/usecase/visualization"
	"github.com/resolve-studio/semgraph/internal/version"
)

// batchEmbedder is what the pipeline needs from the embedder chain.
type batchEmbedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting semgraph API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGraphMetrics()

	// Build embedder chain from the configured default vectorizer
	vecCfg, ok := cfg.Embedding.Vectorizers[cfg.Embedding.Default]
	if !ok {
		logger.Fatal("Unknown default vectorizer", zap.String("vectorizer", cfg.Embedding.Default))
	}

	embedder, err := buildEmbedder(vecCfg, cfg.Embedding.Providers[vecCfg.Provider], store, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	logger.Info("Embedder created",
		zap.String("provider", vecCfg.Provider),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	// Graph cache: single flight per (article, version), persisted artifacts
	graphTTL := time.Duration(cfg.Storage.GraphTTLHours) * time.Hour
	cache := graphcache.New(store, graphTTL, metrics.GraphCacheTotal, logger)

	// Repositories and use case services
	articlesRepo := articlesrepo.New(store)
	articleSvc := articleuc.New(articlesRepo, cache)
	vizSvc := visualizationuc.New(
		articlesRepo,
		cache,
		segment.New(cfg.Pipeline.Segmenter.MinChars),
		embedder,
		projection.New(projection.Config{
			Neighbors:  cfg.Pipeline.Projection.Neighbors,
			MinDist:    cfg.Pipeline.Projection.MinDist,
			Iterations: cfg.Pipeline.Projection.Iterations,
		}),
		hue.New(*cfg.Pipeline.DefaultHue),
		graphbuild.New(graphbuild.Config{
			NeighborsPerNode: cfg.Pipeline.Graph.NeighborsPerNode,
			MinSimilarity:    *cfg.Pipeline.Graph.MinSimilarity,
			MaxEdges:         cfg.Pipeline.Graph.MaxEdges,
		}),
		cfg.Pipeline.Segmenter.MaxTextLen,
	)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder))

	// Create chi server
	server := chiTransport.NewServer(articleSvc, vizSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r, cfg.Auth.APIKeys)

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

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	vecCfg config.VectorizerConfig,
	provCfg config.ProviderConfig,
	store db.Store,
	logger *zap.Logger,
) (batchEmbedder, error) {
	var base domain.Embedder
	switch vecCfg.Provider {
	case "ollama":
		emb, err := ollamaEmb.NewEmbedder(&ollamaEmb.Config{
			BaseURL: provCfg.BaseURL,
			APIKey:  provCfg.APIKey,
			Model:   vecCfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("ollama embedder: %w", err)
		}
		base = emb
	default:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
		})
	}

	// Cached, keyed on segment text, so unchanged segments skip the provider
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (metrics + chunking)
	instrumented := embeddinguc.NewInstrumentedEmbedder(embedder, vecCfg.Provider, vecCfg.Model, logger)

	// Instruction prefix is outermost so the cache key includes it
	if vecCfg.DocumentInstruction != "" {
		return domain.NewInstructionEmbedder(instrumented, vecCfg.DocumentInstruction), nil
	}

	return instrumented, nil
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

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
