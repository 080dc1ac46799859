package main

// @title Boundary Pipeline API
// @version 1.0.0
// @description Раздача карт административных границ, построенных конвейером partition/simplify.
// @description
// @description Основные возможности:
// @description - GeoJSON и TopoJSON файлы по уровню, слою, группе и качеству
// @description - Диагностика запусков (стрим Redis и архив PostgreSQL)
// @description - Сводка последнего запуска

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/boundary-pipeline/docs/swagger"
	"github.com/boundary-pipeline/internal/config"
	httpDelivery "github.com/boundary-pipeline/internal/delivery/http"
	"github.com/boundary-pipeline/internal/delivery/http/handler"
	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/metrics"
	"github.com/boundary-pipeline/internal/pkg/logger"
	"github.com/boundary-pipeline/internal/repository/cache"
	"github.com/boundary-pipeline/internal/repository/file"
	"github.com/boundary-pipeline/internal/repository/postgres"
	redisRepo "github.com/boundary-pipeline/internal/repository/redis"
	"github.com/boundary-pipeline/internal/usecase"
	"github.com/boundary-pipeline/internal/worker"
	"github.com/boundary-pipeline/internal/worker/archive"
)

const streamMaxLen = 100000

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Boundary Pipeline API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("base_dir", cfg.Pipeline.BaseDir),
		zap.Bool("db_enabled", cfg.Database.Enabled),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 3. Connect to PostgreSQL (архив диагностики)
	var (
		db          *postgres.DB
		archiveRepo repository.DiagnosticsRepository
	)
	if cfg.Database.Enabled {
		db, err = postgres.New(&cfg.Database, log)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to prepare diagnostics schema", zap.Error(err))
		}
		archiveRepo = postgres.NewDiagnosticsRepository(db)
		log.Info("PostgreSQL connected")
	}

	// 4. Connect to Redis (кеш карт и стрим диагностики)
	var (
		redisClient *cache.Redis
		cacheRepo   repository.CacheRepository
		streamRepo  repository.StreamRepository
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		if err := redisClient.Health(ctx); err != nil {
			log.Fatal("Redis health check failed", zap.Error(err))
		}
		cacheRepo = cache.NewCacheRepository(redisClient)
		streamRepo = redisRepo.NewStreamRepository(redisClient.Client(), streamMaxLen, log)
		log.Info("Redis connected")
	}

	// 5. Initialize Use Cases
	mapsUC := usecase.NewMapsUseCase(
		file.NewFeatureStore(log),
		cacheRepo,
		cfg.Pipeline.BaseDir,
		cfg.Cache.MapsCacheTTL,
		log,
	)
	diagnosticsUC := usecase.NewDiagnosticsUseCase(archiveRepo, streamRepo, cacheRepo, log)

	// 6. Initialize HTTP Handlers and Server
	server := httpDelivery.NewServer(
		cfg,
		log,
		handler.NewMapsHandler(mapsUC, log),
		handler.NewDiagnosticsHandler(diagnosticsUC, log),
		metrics.New().RunHandler(diagnosticsUC, 2*time.Second, log),
	)

	// 7. Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var manager *worker.WorkerManager
	switch {
	case !cfg.Worker.Enabled:
	case archiveRepo == nil || streamRepo == nil:
		log.Warn("Diagnostics archive worker requires both PostgreSQL and Redis, skipping")
	default:
		manager = worker.NewWorkerManager(log, 30*time.Second)
		manager.Register(archive.NewDiagnosticsWorker(
			streamRepo,
			archiveRepo,
			cfg.Worker.ConsumerGroup,
			cfg.Worker.ConsumerName,
			cfg.Worker.BatchSize,
			log,
		))
		if err := manager.Start(workerCtx); err != nil {
			log.Fatal("Failed to start workers", zap.Error(err))
		}
	}

	// 8. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	stopWorkers()
	if manager != nil {
		if err := manager.Stop(); err != nil {
			log.Error("Workers shutdown error", zap.Error(err))
		}
	}

	if db != nil {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}

	log.Info("Server stopped successfully")
}
