package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/config"
	"github.com/boundary-pipeline/internal/diagnostics"
	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/topology"
	"github.com/boundary-pipeline/internal/worker"
)

// ConstructionObserver считает построения топологии
type ConstructionObserver interface {
	ObserveConstruction()
}

// TopologyUseCase строит задания конвертации geojson -> topojson
type TopologyUseCase struct {
	converter *topology.Converter
	store     repository.FeatureStore
	cfg       *config.PipelineConfig
	observer  ConstructionObserver
	logger    *zap.Logger
}

func NewTopologyUseCase(
	store repository.FeatureStore,
	cfg *config.PipelineConfig,
	observer ConstructionObserver,
	logger *zap.Logger,
) *TopologyUseCase {
	return &TopologyUseCase{
		converter: topology.NewConverter(store, cfg.Ladder(), cfg.Validate, logger),
		store:     store,
		cfg:       cfg,
		observer:  observer,
		logger:    logger,
	}
}

// Jobs обходит <base>/geojson и создает задание на каждый .json файл;
// выход - <base>/topojson с тем же относительным путем. Задания
// упорядочены по размеру входа.
func (uc *TopologyUseCase) Jobs(ctx context.Context) ([]worker.Job, error) {
	root := filepath.Join(uc.cfg.BaseDir, domain.GeoJSONDir)
	outRoot := filepath.Join(uc.cfg.BaseDir, domain.TopoJSONDir)

	var jobs []worker.Job
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		// временные файлы незавершенной записи начинаются с точки
		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		size, err := uc.store.Size(path)
		if err != nil {
			return err
		}
		jobs = append(jobs, &topologyJob{
			uc:   uc,
			id:   "topology:" + filepath.ToSlash(rel),
			src:  path,
			dst:  filepath.Join(outRoot, rel),
			size: size,
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			uc.logger.Warn("GeoJSON directory not found, nothing to convert", zap.String("root", root))
			return nil, nil
		}
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	worker.SortBySize(jobs)
	uc.logger.Info("Topology jobs planned", zap.Int("jobs", len(jobs)))
	return jobs, nil
}

type topologyJob struct {
	uc   *TopologyUseCase
	id   string
	src  string
	dst  string
	size int64
}

func (j *topologyJob) ID() string           { return j.id }
func (j *topologyJob) Kind() domain.JobKind { return domain.JobKindSimplify }
func (j *topologyJob) Size() int64          { return j.size }

func (j *topologyJob) Run(ctx context.Context) domain.JobResult {
	res := domain.JobResult{JobID: j.id, Kind: domain.JobKindSimplify}

	out, err := j.uc.converter.Convert(ctx, j.src, j.dst, j.uc.cfg.SkipExisting)
	if out != nil {
		res.Written = out.Written
		res.Skipped = out.Skipped
		if out.Constructed && j.uc.observer != nil {
			j.uc.observer.ObserveConstruction()
		}
	}
	if err != nil {
		// файл бросается целиком, остальные задания продолжаются
		res.Status = domain.JobStatusFailed
		res.Err = err
		res.Diagnostics = append(res.Diagnostics, diagnostics.FromError(j.id, j.src, err))
		return res
	}

	res.Status = domain.JobStatusDone
	if out.Written == 0 && out.Skipped > 0 {
		res.Status = domain.JobStatusSkipped
	}
	return res
}
