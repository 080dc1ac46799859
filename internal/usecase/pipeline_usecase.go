package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/config"
	"github.com/boundary-pipeline/internal/diagnostics"
	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/lookup"
	"github.com/boundary-pipeline/internal/metrics"
	"github.com/boundary-pipeline/internal/worker"
)

// PipelineDeps - зависимости запуска. Sink, Cache и Metrics необязательны.
type PipelineDeps struct {
	Definition *config.PipelineDefinition
	Config     *config.PipelineConfig
	Units      repository.UnitSource
	Tables     repository.TableSource
	Store      repository.FeatureStore
	Sink       repository.DiagnosticsSink
	Cache      repository.CacheRepository
	Metrics    *metrics.Metrics
	// MetricsTextfile - путь для node_exporter textfile collector
	MetricsTextfile string
}

// PipelineUseCase выполняет запуск целиком: таблица соответствия,
// пул разбиения, пул топологии, итоговый отчет.
type PipelineUseCase struct {
	deps   PipelineDeps
	logger *zap.Logger
}

func NewPipelineUseCase(deps PipelineDeps, logger *zap.Logger) *PipelineUseCase {
	return &PipelineUseCase{deps: deps, logger: logger}
}

// Run возвращает ошибку только если таблицу соответствия собрать нельзя.
// Сбои отдельных заданий попадают в сводку и диагностику.
func (uc *PipelineUseCase) Run(ctx context.Context) (*domain.RunSummary, error) {
	d := uc.deps
	summary := &domain.RunSummary{
		RunID:     uuid.New(),
		BaseDir:   d.Config.BaseDir,
		StartedAt: time.Now().UTC(),
	}
	logger := uc.logger.With(zap.String("run_id", summary.RunID.String()))

	collector := diagnostics.NewCollector()
	sink := diagnostics.RunSink{
		RunID: summary.RunID,
		Next:  diagnostics.MultiSink{collector, d.Sink},
	}
	record := func(items []*domain.Diagnostic) {
		for _, item := range items {
			if err := sink.Record(ctx, item); err != nil {
				logger.Warn("Failed to record diagnostic", zap.String("job", item.JobID), zap.Error(err))
			}
			if d.Metrics != nil {
				d.Metrics.ObserveDiagnostic(item)
			}
		}
	}

	logger.Info("Pipeline started",
		zap.String("base_dir", d.Config.BaseDir),
		zap.Bool("skip_existing", d.Config.SkipExisting),
		zap.Int("pool_size", d.Config.PoolSize))

	// 1. Таблица соответствия
	builder := lookup.NewBuilder(d.Units, d.Tables, lookup.Config{
		Rules:    d.Definition.Rules,
		SubUnits: d.Definition.SubUnits,
		Clusters: d.Definition.Clusters,
	}, logger)
	table, report, err := builder.Build(ctx)
	if err != nil {
		record([]*domain.Diagnostic{diagnostics.FromError("lookup", "", err)})
		uc.finish(ctx, summary, collector, logger)
		return summary, fmt.Errorf("build lookup table: %w", err)
	}
	summary.Units = report.Units
	for _, name := range report.SkippedSources {
		record([]*domain.Diagnostic{domain.NewDiagnostic("lookup", domain.DiagnosticConfig, "",
			fmt.Sprintf("optional source %s not found, its columns are absent", name))})
	}

	var observer worker.Observer
	if d.Metrics != nil {
		observer = d.Metrics
	}
	newPool := func(label string) *worker.Pool {
		return worker.NewPool(worker.PoolConfig{
			Size:       d.Config.PoolSize,
			JobTimeout: d.Config.JobTimeout,
			OnProgress: worker.LogProgress(logger, label),
			Observer:   observer,
		}, logger)
	}

	// 2. Разбиение
	partitions := NewPartitionUseCase(d.Store, d.Tables, d.Definition, d.Config, logger)
	jobs, diags := partitions.Jobs(ctx, table)
	record(diags)
	rep := newPool("partition").Run(ctx, jobs)
	record(rep.Diagnostics())
	summary.Stages = append(summary.Stages, stageSummary(domain.JobKindPartition, rep))

	// 3. Топология по всем файлам geojson, включая созданные на шаге 2
	var constructions ConstructionObserver
	if d.Metrics != nil {
		constructions = d.Metrics
	}
	topologies := NewTopologyUseCase(d.Store, d.Config, constructions, logger)
	topoJobs, err := topologies.Jobs(ctx)
	if err != nil {
		record([]*domain.Diagnostic{diagnostics.FromError("topology", "", err)})
		logger.Error("Failed to plan topology jobs", zap.Error(err))
	}
	rep = newPool("topology").Run(ctx, topoJobs)
	record(rep.Diagnostics())
	stage := stageSummary(domain.JobKindSimplify, rep)
	if err != nil {
		stage.Failed++
	}
	summary.Stages = append(summary.Stages, stage)

	uc.finish(ctx, summary, collector, logger)
	return summary, nil
}

func (uc *PipelineUseCase) finish(ctx context.Context, summary *domain.RunSummary, collector *diagnostics.Collector, logger *zap.Logger) {
	d := uc.deps
	summary.FinishedAt = time.Now().UTC()
	summary.Diagnostics = collector.CountByKind()

	for _, st := range summary.Stages {
		logger.Info("Stage finished",
			zap.String("kind", string(st.Kind)),
			zap.Int("total", st.Total),
			zap.Int("succeeded", st.Succeeded),
			zap.Int("skipped", st.Skipped),
			zap.Int("failed", st.Failed),
			zap.Duration("duration", st.Duration))
	}
	collector.LogSummary(logger)

	if d.Cache != nil {
		// контекст запуска может быть уже отменен, сводку все равно сохраняем
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := d.Cache.SetLatestRun(cctx, summary); err != nil {
			logger.Warn("Failed to cache run summary", zap.Error(err))
		}
		cancel()
	}
	if d.Metrics != nil {
		d.Metrics.ObserveRun(summary)
		if err := d.Metrics.WriteToTextfile(d.MetricsTextfile); err != nil {
			logger.Warn("Failed to write metrics", zap.Error(err))
		}
	}

	logger.Info("Pipeline finished",
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
		zap.Bool("failed", summary.Failed()))
}

func stageSummary(kind domain.JobKind, rep *worker.Report) domain.StageSummary {
	return domain.StageSummary{
		Kind:      kind,
		Total:     rep.Total,
		Succeeded: rep.Succeeded,
		Skipped:   rep.Skipped,
		Failed:    rep.Failed,
		Duration:  rep.Duration,
	}
}
