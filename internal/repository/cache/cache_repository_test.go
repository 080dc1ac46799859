package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/repository/cache"
)

func getTestRedis(t *testing.T) *cache.Redis {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisFromClient(client, zap.NewNop())
}

func TestCacheRepository_MapFile(t *testing.T) {
	r := getTestRedis(t)
	repo := cache.NewCacheRepository(r)
	ctx := context.Background()
	rel := "topojson/uf/municipio/29_q1.json"
	defer repo.Delete(ctx, "map:"+rel)

	miss, err := repo.GetMapFile(ctx, rel)
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, repo.SetMapFile(ctx, rel, []byte(`{"type":"Topology"}`), time.Minute))
	hit, err := repo.GetMapFile(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"Topology"}`, string(hit))

	exists, err := repo.Exists(ctx, "map:"+rel)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCacheRepository_LatestRun(t *testing.T) {
	r := getTestRedis(t)
	repo := cache.NewCacheRepository(r)
	ctx := context.Background()
	defer repo.Delete(ctx, "pipeline:run:latest")

	summary := &domain.RunSummary{
		RunID:  uuid.New(),
		Units:  5570,
		Stages: []domain.StageSummary{{Kind: domain.JobKindPartition, Total: 10, Succeeded: 9, Failed: 1}},
		Diagnostics: map[domain.DiagnosticKind]int{
			domain.DiagnosticGeometry: 1,
		},
	}
	require.NoError(t, repo.SetLatestRun(ctx, summary))

	got, err := repo.GetLatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, summary.RunID, got.RunID)
	assert.True(t, got.Failed())
	assert.Equal(t, 1, got.Diagnostics[domain.DiagnosticGeometry])
}
