package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/emilykay2/tbuie/config"
	"github.com/emilykay2/tbuie/internal/db"
	"github.com/emilykay2/tbuie/internal/handlers"
	"github.com/emilykay2/tbuie/internal/repositories"
	"github.com/emilykay2/tbuie/internal/routes"
	"github.com/emilykay2/tbuie/internal/services"
	"github.com/emilykay2/tbuie/internal/workers"
)

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewServer builds the workspace for cfg and returns a server ready to listen.
// Building the workspace can take minutes on a cold cache.
func NewServer(ctx context.Context, cfg config.Config) (*http.Server, error) {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)
	if cfg.LoadedFrom != "" {
		logger.Printf("Loaded environment from %s", cfg.LoadedFrom)
	}

	poolConfig := workers.DefaultPoolConfig("tbuie", cfg.Workers)
	poolConfig.Logger = &workers.StdLogger{Logger: logger}
	pool := workers.NewPool(poolConfig)

	cache, closeCache := initializeResultCache(ctx, cfg, logger)
	ws, err := services.BuildWorkspace(ctx, cfg, cache, pool, logger)
	if err != nil {
		closeCache()
		return nil, fmt.Errorf("failed to build workspace: %w", err)
	}

	anchorRepo := repositories.NewFileAnchorRepository(cfg.FinalDir)
	topicService, err := services.NewTopicService(ws, anchorRepo, pool, logger)
	if err != nil {
		closeCache()
		return nil, err
	}
	logger.Printf("✅ Topic service ready: %d topics, %d training and %d held-out documents",
		len(ws.InitialAnchors), len(ws.Split.Train), len(ws.Split.Test))
	logger.Printf("   Finalized anchors are written to %s", anchorRepo.Root())

	h := &routes.Handlers{
		Health: handlers.HealthCheckHandler,
		Home:   handlers.HomeHandler(ws.Dataset.Name),
		Topics: handlers.NewTopicHandler(topicService, logger),
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	// Add Swagger endpoints
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Port)),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           corsMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(closeCache)
	return srv, nil
}

// initializeResultCache picks the configured cache backend. An unreachable
// Redis falls back to the file cache.
func initializeResultCache(ctx context.Context, cfg config.Config, logger *log.Logger) (repositories.ResultCache, func()) {
	noop := func() {}

	switch cfg.Cache {
	case config.CacheNone:
		logger.Println("⚠️  Result cache disabled, startup state will be recomputed")
		return repositories.NopResultCache{}, noop

	case config.CacheRedis:
		redisConfig := getRedisConfig(cfg.Redis)
		logger.Printf("Connecting to Redis: %s (DB: %d)", redisConfig.Addr(), redisConfig.DB)

		redisClient, err := db.NewRedisClient(redisConfig)
		if err != nil {
			logger.Printf("❌ Failed to create Redis client: %v", err)
			break
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx); err != nil {
			logger.Printf("❌ Redis connection failed: %v", err)
			logger.Println("   Hint: Ensure Redis is running (docker run -d -p 6379:6379 redis:7-alpine)")
			redisClient.Close()
			break
		}
		logger.Println("✅ Redis connected successfully")

		return repositories.NewRedisResultCache(redisClient, cfg.CacheTTL), func() {
			logRedisPoolStats(logger, redisClient.PoolStats())
			if err := redisClient.Close(); err != nil {
				logger.Printf("⚠️  Failed to close Redis client: %v", err)
			}
		}
	}

	if cfg.Cache != config.CacheFile {
		logger.Printf("   Falling back to file cache in %s", cfg.CacheDir)
	}
	return repositories.NewFileResultCache(cfg.CacheDir), noop
}

// logRedisPoolStats reports connection reuse for the lifetime of the client
func logRedisPoolStats(logger *log.Logger, stats *redis.PoolStats) {
	if stats == nil {
		return
	}
	logger.Printf("Redis pool: %d hits, %d misses, %d timeouts, %d/%d idle connections",
		stats.Hits, stats.Misses, stats.Timeouts, stats.IdleConns, stats.TotalConns)
}

// getRedisConfig converts the loaded settings into a client configuration
func getRedisConfig(c config.RedisConfig) db.RedisConfig {
	redisConfig := db.DefaultRedisConfig()

	if c.Host != "" {
		redisConfig.Host = c.Host
	}
	if c.Port != 0 {
		redisConfig.Port = c.Port
	}
	redisConfig.Password = c.Password
	redisConfig.DB = c.DB
	if c.PoolSize > 0 {
		redisConfig.PoolSize = c.PoolSize
	}

	return redisConfig
}
