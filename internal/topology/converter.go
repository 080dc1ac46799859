package topology

import (
	"context"
	"fmt"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	"go.uber.org/zap"
)

// Target - выходной файл одного уровня качества
type Target struct {
	Path    string
	Quality domain.QualityLevel
}

// ConvertResult - итог конвертации одного исходного файла
type ConvertResult struct {
	Targets     []Target
	Written     int
	Skipped     int
	Constructed bool
	Arcs        int
}

// Converter строит топологию файла один раз и записывает ее на всех
// уровнях качества лестницы.
type Converter struct {
	store    repository.FeatureStore
	ladder   []domain.QualityLevel
	validate bool
	logger   *zap.Logger
}

func NewConverter(store repository.FeatureStore, ladder []domain.QualityLevel, validate bool, logger *zap.Logger) *Converter {
	return &Converter{
		store:    store,
		ladder:   ladder,
		validate: validate,
		logger:   logger,
	}
}

// Targets возвращает выходные пути для dst. Файл без _q0 в имени уже упрощен,
// для него пишется один проход на самом грубом уровне по тому же пути.
func (c *Converter) Targets(dst string) []Target {
	if len(c.ladder) == 0 {
		return nil
	}
	if !domain.HasBaseQuality(dst) {
		return []Target{{Path: dst, Quality: c.ladder[0]}}
	}
	targets := make([]Target, 0, len(c.ladder))
	for _, q := range c.ladder {
		targets = append(targets, Target{Path: domain.QualityPath(dst, q.Index), Quality: q})
	}
	return targets
}

// Convert читает src, строит топологию и пишет упрощенные варианты. Если все
// цели уже существуют и skipExisting, исходник не читается вовсе.
func (c *Converter) Convert(ctx context.Context, src, dst string, skipExisting bool) (*ConvertResult, error) {
	res := &ConvertResult{Targets: c.Targets(dst)}
	if len(res.Targets) == 0 {
		return res, fmt.Errorf("empty quality ladder for %s", src)
	}

	if skipExisting && c.allExist(res.Targets) {
		res.Skipped = len(res.Targets)
		c.logger.Debug("All quality targets exist, skipping construction", zap.String("source", src))
		return res, nil
	}

	fc, err := c.store.ReadCollection(ctx, src)
	if err != nil {
		return res, fmt.Errorf("failed to read %s: %w", src, err)
	}

	topo, err := Build(ctx, fc, Options{File: src, Validate: c.validate})
	if err != nil {
		return res, err
	}
	res.Constructed = true
	res.Arcs = len(topo.Arcs)

	for _, t := range res.Targets {
		if skipExisting && c.store.Exists(t.Path) {
			res.Skipped++
			continue
		}
		if err := c.store.WriteJSON(ctx, t.Path, topo.Simplify(t.Quality.Epsilon)); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", t.Path, err)
		}
		res.Written++
	}

	c.logger.Debug("Topology written",
		zap.String("source", src),
		zap.Int("arcs", res.Arcs),
		zap.Int("written", res.Written),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func (c *Converter) allExist(targets []Target) bool {
	for _, t := range targets {
		if !c.store.Exists(t.Path) {
			return false
		}
	}
	return true
}
