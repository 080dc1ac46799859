package usecase_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/config"
	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/repository/file"
)

const unitsJSON = `[{"id": 2927408, "nome": "Salvador"}, {"id": 2910800, "nome": "Feira de Santana"}, {"id": "3550308", "nome": "Sao Paulo"}]`

const pipelineYAML = `
unit_source:
  type: file
  path: units.json
  level: municipio
layers:
  - name: municipio
    scope: br
    identifier: codarea
    join_column: municipio
    levels: [uf, macrorregiao]
    filters:
      - name: capitais
        path: capitais.csv
        column: cod
        join_column: municipio
`

const capitaisCSV = "cod,nome\n2927408,Salvador\n3550308,Sao Paulo\n"

// MockCacheRepository is a mock of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) GetMapFile(ctx context.Context, relPath string) ([]byte, error) {
	args := m.Called(ctx, relPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) SetMapFile(ctx context.Context, relPath string, data []byte, ttl time.Duration) error {
	return m.Called(ctx, relPath, data, ttl).Error(0)
}

func (m *MockCacheRepository) GetLatestRun(ctx context.Context) (*domain.RunSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunSummary), args.Error(1)
}

func (m *MockCacheRepository) SetLatestRun(ctx context.Context, summary *domain.RunSummary) error {
	return m.Called(ctx, summary).Error(0)
}

func square(x float64) orb.Polygon {
	return orb.Polygon{{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0}}}
}

func municipio(code string, x float64) *geojson.Feature {
	f := geojson.NewFeature(square(x))
	f.Properties["codarea"] = code
	return f
}

// workspace готовит базовый каталог: единицы, описание, фильтр и исходный слой
// из трех соседних квадратов (Sao Paulo, Salvador, Feira de Santana).
func workspace(t *testing.T) (string, *config.PipelineDefinition, *config.PipelineConfig) {
	t.Helper()
	base := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(base, name), []byte(content), 0o644))
	}
	write("units.json", unitsJSON)
	write("pipeline.yaml", pipelineYAML)
	write("capitais.csv", capitaisCSV)

	fc := geojson.NewFeatureCollection()
	fc.Append(municipio("3550308", 0))
	fc.Append(municipio("2927408", 1))
	fc.Append(municipio("2910800", 2))
	store := file.NewFeatureStore(zap.NewNop())
	require.NoError(t, store.WriteJSON(context.Background(), domain.SourcePath(base, "br", "municipio", "q0"), fc))

	cfg := &config.PipelineConfig{
		BaseDir:           base,
		SkipExisting:      true,
		PoolSize:          2,
		JobTimeout:        time.Minute,
		QualityLevels:     4,
		QualityMaxEpsilon: 0.01,
		Validate:          true,
	}
	def, err := config.LoadPipeline(filepath.Join(base, "pipeline.yaml"))
	require.NoError(t, err)
	def.ResolvePaths(cfg)
	return base, def, cfg
}
