package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/config"
	"github.com/boundary-pipeline/internal/diagnostics"
	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/metrics"
	"github.com/boundary-pipeline/internal/pkg/logger"
	"github.com/boundary-pipeline/internal/pkg/utils"
	"github.com/boundary-pipeline/internal/repository/cache"
	"github.com/boundary-pipeline/internal/repository/file"
	"github.com/boundary-pipeline/internal/repository/postgres"
	redisRepo "github.com/boundary-pipeline/internal/repository/redis"
	"github.com/boundary-pipeline/internal/usecase"
)

const streamMaxLen = 100000

// pipeline [baseDir] [skipExisting]
func main() {
	os.Exit(run())
}

func run() int {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if len(os.Args) > 1 && os.Args[1] != "" {
		cfg.Pipeline.BaseDir = os.Args[1]
	}
	if len(os.Args) > 2 {
		cfg.Pipeline.SkipExisting = utils.ParseBool(os.Args[2], cfg.Pipeline.SkipExisting)
	}
	pc := &cfg.Pipeline

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, pc.Resolve(cfg.Log.File))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	def, err := config.LoadPipeline(pc.Resolve(pc.DefinitionFile))
	if err != nil {
		log.Error("Failed to load pipeline definition", zap.Error(err))
		return 1
	}
	def.ResolvePaths(pc)

	log.Info("Configuration loaded",
		zap.String("base_dir", pc.BaseDir),
		zap.Bool("skip_existing", pc.SkipExisting),
		zap.Int("pool_size", pc.PoolSize),
		zap.Int("layers", len(def.Layers)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Diagnostics sinks
	jsonl, err := diagnostics.OpenJSONLSink(pc.Resolve(pc.DiagnosticsLog))
	if err != nil {
		log.Error("Failed to open diagnostics log", zap.Error(err))
		return 1
	}
	defer jsonl.Close()
	sinks := diagnostics.MultiSink{jsonl, diagnostics.NewLogSink(log)}

	// 4. Optional PostgreSQL
	var db *postgres.DB
	if cfg.Database.Enabled {
		db, err = postgres.New(&cfg.Database, log)
		if err != nil {
			log.Error("Failed to connect to PostgreSQL", zap.Error(err))
			return 1
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close PostgreSQL connection", zap.Error(err))
			}
		}()
		if err := db.EnsureSchema(ctx); err != nil {
			log.Error("Failed to prepare diagnostics schema", zap.Error(err))
			return 1
		}
	}

	// 5. Optional Redis: кеш сводки запуска и стрим диагностики
	var cacheRepo repository.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Error("Failed to connect to Redis", zap.Error(err))
			return 1
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		}()
		cacheRepo = cache.NewCacheRepository(redisClient)
		streams := redisRepo.NewStreamRepository(redisClient.Client(), streamMaxLen, log)
		sinks = append(sinks, redisRepo.NewDiagnosticsSink(streams))
	} else if db != nil {
		// без стрима архивируем напрямую
		sinks = append(sinks, postgres.NewDiagnosticsRepository(db))
	}

	// 6. Unit source
	var units repository.UnitSource
	switch def.UnitSource.Type {
	case config.UnitSourcePostgres:
		if db == nil {
			log.Error("unit_source.type=postgres requires DB_ENABLED=true")
			return 1
		}
		units = postgres.NewUnitRepository(db, def.UnitSource.Table, def.UnitSource.Level, def.UnitSource.Columns)
	default:
		units = file.NewUnitSource(def.UnitSource.Path, def.UnitSource.Level, log)
	}

	// 7. Run
	m := metrics.New()
	uc := usecase.NewPipelineUseCase(usecase.PipelineDeps{
		Definition:      def,
		Config:          pc,
		Units:           units,
		Tables:          file.NewTableSource(log),
		Store:           file.NewFeatureStore(log),
		Sink:            sinks,
		Cache:           cacheRepo,
		Metrics:         m,
		MetricsTextfile: pc.Resolve(cfg.Metrics.TextfilePath),
	}, log)

	summary, err := uc.Run(ctx)
	if err != nil {
		log.Error("Pipeline aborted", zap.Error(err))
		return 1
	}
	if summary.Failed() {
		log.Warn("Pipeline finished with failed jobs", zap.String("run_id", summary.RunID.String()))
		return 1
	}
	return 0
}
