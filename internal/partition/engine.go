package partition

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/pkg/utils"
	"github.com/boundary-pipeline/internal/pkg/validator"
)

// Request - одно задание разбиения: слой x уровень [x фильтр]
type Request struct {
	JobID    string
	Layer    string
	Level    string
	Features *geojson.FeatureCollection
	Table    *domain.LookupTable
	// GroupingColumn - колонка таблицы, значения которой образуют группы
	GroupingColumn string
	// JoinColumn - колонка, с которой сравнивается идентификатор feature
	JoinColumn         string
	IdentifierProperty string
	Fallback           *domain.FallbackRule
	OutputPath         func(groupID string) string
	SkipExisting       bool
	Rewind             bool
}

// Result - итог задания разбиения
type Result struct {
	Groups      int
	Written     int
	Skipped     int
	Empty       int
	Unmatched   int
	Diagnostics []*domain.Diagnostic
}

// Engine материализует по одному файлу FeatureCollection на группу
type Engine struct {
	store  repository.FeatureStore
	logger *zap.Logger
}

func NewEngine(store repository.FeatureStore, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
	}
}

// Partition группирует таблицу по колонке уровня и пишет для каждой группы
// отфильтрованные feature в исходном порядке. Уже существующие файлы при
// SkipExisting считаются готовыми.
func (e *Engine) Partition(ctx context.Context, req Request) (*Result, error) {
	res := &Result{}

	matchColumn := req.JoinColumn
	if req.Fallback != nil {
		matchColumn = req.Fallback.Column
	}
	for _, col := range []string{req.GroupingColumn, matchColumn} {
		if !req.Table.HasColumn(col) {
			res.Diagnostics = append(res.Diagnostics, domain.NewDiagnostic(req.JobID, domain.DiagnosticConfig, "",
				fmt.Sprintf("column %q is not present in the lookup table, level %s of layer %s skipped", col, req.Level, req.Layer)))
			e.logger.Warn("Lookup column missing, skipping partition",
				zap.String("job", req.JobID),
				zap.String("column", col))
			return res, nil
		}
	}

	groups := req.Table.GroupBy(req.GroupingColumn)
	ids := make([]string, 0, len(groups))
	for id := range groups {
		if err := validator.GetValidator().Var(id, "pathsegment"); err != nil {
			res.Diagnostics = append(res.Diagnostics, domain.NewDiagnostic(req.JobID, domain.DiagnosticConfig, "",
				fmt.Sprintf("group id %q of column %s cannot be used as a file name", id, req.GroupingColumn)))
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	res.Groups = len(ids)

	// значение колонки сопоставления -> группы, в которые оно входит
	owners := make(map[string][]string)
	for _, id := range ids {
		for v := range domain.DistinctValues(groups[id], matchColumn) {
			owners[v] = append(owners[v], id)
		}
	}

	features := req.Features.Features
	if req.Rewind {
		features = rewindFeatures(features)
	}

	members := make(map[string][]*geojson.Feature, len(ids))
	for _, f := range features {
		key, ok := e.matchKey(f, req)
		var hit []string
		if ok {
			hit = owners[key]
		}
		if len(hit) == 0 {
			res.Unmatched++
			continue
		}
		for _, id := range hit {
			members[id] = append(members[id], f)
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		path := req.OutputPath(id)
		if req.SkipExisting && e.store.Exists(path) {
			res.Skipped++
			continue
		}

		fc := geojson.NewFeatureCollection()
		fc.Features = append(fc.Features, members[id]...)
		if len(fc.Features) == 0 {
			res.Empty++
		}
		if err := e.store.WriteJSON(ctx, path, fc); err != nil {
			return res, fmt.Errorf("failed to write partition %s: %w", path, err)
		}
		res.Written++
	}

	if res.Unmatched > 0 {
		d := domain.NewDiagnostic(req.JobID, domain.DiagnosticUnmatched, "",
			fmt.Sprintf("%d features of layer %s matched no group at level %s", res.Unmatched, req.Layer, req.Level))
		d.Count = res.Unmatched
		res.Diagnostics = append(res.Diagnostics, d)
	}

	e.logger.Debug("Partition finished",
		zap.String("job", req.JobID),
		zap.Int("groups", res.Groups),
		zap.Int("written", res.Written),
		zap.Int("skipped", res.Skipped),
		zap.Int("unmatched", res.Unmatched))
	return res, nil
}

// matchKey возвращает идентификатор feature после правила усечения
func (e *Engine) matchKey(f *geojson.Feature, req Request) (string, bool) {
	raw, ok := f.Properties[req.IdentifierProperty]
	if !ok {
		raw = f.ID
	}
	id, ok := utils.NormalizeID(raw)
	if !ok {
		return "", false
	}
	if req.Fallback != nil {
		return req.Fallback.Apply(id)
	}
	return id, true
}
