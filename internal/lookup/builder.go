package lookup

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
)

// Config описывает источники таблицы соответствия
type Config struct {
	Rules    []domain.DerivationRule
	SubUnits []domain.SubUnitSourceConfig
	Clusters []domain.ClusterSourceConfig
}

// Report - сводка сборки таблицы
type Report struct {
	Units           int
	Orphans         int
	SkippedSources  []string
	ClusterColumns  []string
	UnmatchedByName map[string]int
}

// Builder собирает таблицу соответствия единиц анализа
type Builder struct {
	units  repository.UnitSource
	tables repository.TableSource
	cfg    Config
	logger *zap.Logger
}

// NewBuilder создает новый Builder
func NewBuilder(units repository.UnitSource, tables repository.TableSource, cfg Config, logger *zap.Logger) *Builder {
	return &Builder{
		units:  units,
		tables: tables,
		cfg:    cfg,
		logger: logger,
	}
}

// Build загружает единицы, выводит позиционные уровни, выполняет внешние
// join подтаблиц и присоединяет кластеры. Отсутствующий необязательный
// источник пропускается, его колонки просто не появляются.
func (b *Builder) Build(ctx context.Context) (*domain.LookupTable, *Report, error) {
	units, err := b.units.LoadUnits(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load analysis units: %w", err)
	}

	report := &Report{UnmatchedByName: make(map[string]int)}
	ApplyRules(units, b.cfg.Rules)

	for _, sub := range b.cfg.SubUnits {
		table, err := b.tables.ReadTable(ctx, sub.Path)
		if err != nil {
			if sub.Optional && errors.Is(err, os.ErrNotExist) {
				b.logger.Info("Optional sub-unit source absent, skipping",
					zap.String("name", sub.Name),
					zap.String("path", sub.Path))
				report.SkippedSources = append(report.SkippedSources, sub.Name)
				continue
			}
			return nil, nil, fmt.Errorf("read sub-unit source %s: %w", sub.Name, err)
		}

		joined, stats, err := OuterJoin(units, table, sub)
		if err != nil {
			return nil, nil, err
		}
		units = joined
		report.Orphans += stats.Orphans
		b.logger.Info("Sub-unit source joined",
			zap.String("name", sub.Name),
			zap.Int("matched", stats.Matched),
			zap.Int("survivors", stats.Survivors),
			zap.Int("orphans", stats.Orphans))
	}

	// подъединицы-сироты получают выводимые уровни из своего родителя
	ApplyRules(units, b.cfg.Rules)

	for _, cl := range b.cfg.Clusters {
		table, err := b.tables.ReadTable(ctx, cl.Path)
		if err != nil {
			if cl.Optional && errors.Is(err, os.ErrNotExist) {
				b.logger.Info("Optional cluster source absent, skipping",
					zap.String("name", cl.Name),
					zap.String("path", cl.Path))
				report.SkippedSources = append(report.SkippedSources, cl.Name)
				continue
			}
			return nil, nil, fmt.Errorf("read cluster source %s: %w", cl.Name, err)
		}

		stats, err := JoinClusters(units, table, cl)
		if err != nil {
			return nil, nil, err
		}
		report.ClusterColumns = append(report.ClusterColumns, stats.Columns...)
		report.UnmatchedByName[cl.Name] = stats.Unmatched
		b.logger.Info("Cluster source joined",
			zap.String("name", cl.Name),
			zap.Strings("columns", stats.Columns),
			zap.Int("matched", stats.Matched),
			zap.Int("unmatched", stats.Unmatched))
	}

	report.Units = len(units)
	table := domain.NewLookupTable(units)
	b.logger.Info("Lookup table built",
		zap.Int("units", report.Units),
		zap.Int("orphans", report.Orphans),
		zap.Strings("columns", table.Columns()))
	return table, report, nil
}
