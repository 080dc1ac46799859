package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/config"
	"github.com/boundary-pipeline/internal/diagnostics"
	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/lookup"
	"github.com/boundary-pipeline/internal/partition"
	"github.com/boundary-pipeline/internal/worker"
)

// PartitionUseCase строит задания разбиения слой x уровень [x фильтр]
type PartitionUseCase struct {
	engine  *partition.Engine
	store   repository.FeatureStore
	tables  repository.TableSource
	def     *config.PipelineDefinition
	cfg     *config.PipelineConfig
	sources *sourceCache
	logger  *zap.Logger
}

func NewPartitionUseCase(
	store repository.FeatureStore,
	tables repository.TableSource,
	def *config.PipelineDefinition,
	cfg *config.PipelineConfig,
	logger *zap.Logger,
) *PartitionUseCase {
	return &PartitionUseCase{
		engine:  partition.NewEngine(store, logger),
		store:   store,
		tables:  tables,
		def:     def,
		cfg:     cfg,
		sources: newSourceCache(store, cfg.JobTimeout),
		logger:  logger,
	}
}

// Jobs перечисляет задания для всех слоев. Фильтр, таблица которого не
// читается, дает диагностику config, остальные задания строятся как обычно.
func (uc *PartitionUseCase) Jobs(ctx context.Context, table *domain.LookupTable) ([]worker.Job, []*domain.Diagnostic) {
	var jobs []worker.Job
	var diags []*domain.Diagnostic

	for i := range uc.def.Layers {
		layer := &uc.def.Layers[i]
		for _, level := range layer.Levels {
			jobs = append(jobs, uc.newJob(layer, level, "", table))
		}

		for _, f := range layer.Filters {
			filtered, err := uc.filterTable(ctx, table, f)
			if err != nil {
				id := fmt.Sprintf("partition:%s/%s", layer.Name, f.Name)
				diags = append(diags, domain.NewDiagnostic(id, domain.DiagnosticConfig, f.Path, err.Error()))
				uc.logger.Warn("Filter skipped",
					zap.String("layer", layer.Name),
					zap.String("filter", f.Name),
					zap.Error(err))
				continue
			}
			for _, level := range layer.Levels {
				jobs = append(jobs, uc.newJob(layer, level, f.Name, filtered))
			}
		}
	}

	uc.logger.Info("Partition jobs planned", zap.Int("jobs", len(jobs)))
	return jobs, diags
}

func (uc *PartitionUseCase) filterTable(ctx context.Context, table *domain.LookupTable, f domain.FilterConfig) (*domain.LookupTable, error) {
	t, err := uc.tables.ReadTable(ctx, f.Path)
	if err != nil {
		return nil, fmt.Errorf("read filter table: %w", err)
	}
	return lookup.ApplyFilter(table, t, f)
}

func (uc *PartitionUseCase) newJob(layer *domain.LayerConfig, level, filter string, table *domain.LookupTable) *partitionJob {
	key := domain.PartitionKey{Layer: layer.Name, Level: level, Filter: filter}
	id := "partition:" + layer.Name + "/" + level
	if filter != "" {
		id += "/" + filter
	}
	return &partitionJob{uc: uc, id: id, key: key, layer: layer, table: table}
}

// ResolveSource возвращает первый существующий кандидат базовой коллекции слоя
func (uc *PartitionUseCase) ResolveSource(layer *domain.LayerConfig) (string, error) {
	qualities := layer.SourceQualities
	if len(qualities) == 0 {
		qualities = config.DefaultSourceQualities
	}
	tried := make([]string, 0, len(qualities))
	for _, q := range qualities {
		path := domain.SourcePath(uc.cfg.BaseDir, layer.Scope, layer.Name, q)
		if uc.store.Exists(path) {
			return path, nil
		}
		tried = append(tried, path)
	}
	return "", &fs.PathError{Op: "open", Path: strings.Join(tried, " | "), Err: fs.ErrNotExist}
}

type partitionJob struct {
	uc    *PartitionUseCase
	id    string
	key   domain.PartitionKey
	layer *domain.LayerConfig
	table *domain.LookupTable
}

func (j *partitionJob) ID() string           { return j.id }
func (j *partitionJob) Kind() domain.JobKind { return domain.JobKindPartition }

func (j *partitionJob) Run(ctx context.Context) domain.JobResult {
	res := domain.JobResult{JobID: j.id, Kind: domain.JobKindPartition}
	fail := func(file string, err error) domain.JobResult {
		res.Status = domain.JobStatusFailed
		res.Err = err
		res.Diagnostics = append(res.Diagnostics, diagnostics.FromError(j.id, file, err))
		return res
	}

	src, err := j.uc.ResolveSource(j.layer)
	if err != nil {
		return fail("", err)
	}
	fc, err := j.uc.sources.load(ctx, src)
	if err != nil {
		return fail(src, err)
	}

	base := j.uc.cfg.BaseDir
	out, err := j.uc.engine.Partition(ctx, partition.Request{
		JobID:              j.id,
		Layer:              j.layer.Name,
		Level:              j.key.Level,
		Features:           fc,
		Table:              j.table,
		GroupingColumn:     j.uc.def.LevelColumn(j.key.Level),
		JoinColumn:         j.layer.JoinColumn,
		IdentifierProperty: j.layer.IdentifierProperty,
		Fallback:           j.layer.Fallback,
		OutputPath: func(group string) string {
			k := j.key
			k.GroupID = group
			return k.Path(base)
		},
		SkipExisting: j.uc.cfg.SkipExisting,
		Rewind:       j.uc.cfg.Rewind,
	})
	if out != nil {
		res.Written = out.Written
		res.Skipped = out.Skipped
		res.Diagnostics = append(res.Diagnostics, out.Diagnostics...)
	}
	if err != nil {
		return fail(src, err)
	}

	res.Status = domain.JobStatusDone
	if out.Written == 0 && out.Skipped > 0 {
		res.Status = domain.JobStatusSkipped
	}
	return res
}

// sourceCache читает базовую коллекцию слоя один раз на запуск: ее делят
// все задания уровней и фильтров этого слоя. Коллекция только читается.
// Чтение идет под собственным таймаутом, отмена первого задания его не прерывает.
type sourceCache struct {
	store   repository.FeatureStore
	timeout time.Duration
	mu      sync.Mutex
	entries map[string]*sourceEntry
}

type sourceEntry struct {
	done chan struct{}
	fc   *geojson.FeatureCollection
	err  error
}

const defaultSourceReadTimeout = 30 * time.Minute

func newSourceCache(store repository.FeatureStore, timeout time.Duration) *sourceCache {
	if timeout <= 0 {
		timeout = defaultSourceReadTimeout
	}
	return &sourceCache{store: store, timeout: timeout, entries: make(map[string]*sourceEntry)}
}

func (c *sourceCache) load(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	c.mu.Lock()
	e, ok := c.entries[path]
	if !ok {
		e = &sourceEntry{done: make(chan struct{})}
		c.entries[path] = e
		go c.read(context.WithoutCancel(ctx), path, e)
	}
	c.mu.Unlock()

	select {
	case <-e.done:
		return e.fc, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *sourceCache) read(ctx context.Context, path string, e *sourceEntry) {
	defer close(e.done)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	e.fc, e.err = c.store.ReadCollection(ctx, path)

	// по таймауту источник можно перечитать, остальные ошибки запоминаются
	if errors.Is(e.err, context.DeadlineExceeded) {
		c.mu.Lock()
		if c.entries[path] == e {
			delete(c.entries, path)
		}
		c.mu.Unlock()
	}
}
