package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
)

const (
	mapFilePrefix = "map:"
	latestRunKey  = "pipeline:run:latest"
)

type cacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCacheRepository(redis *Redis) repository.CacheRepository {
	return &cacheRepository{
		client: redis.Client(),
		logger: redis.logger,
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		r.logger.Error("Failed to get from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	r.logger.Debug("Cache hit", zap.String("key", key))
	return val, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("Failed to set cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete from cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (r *cacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	val, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("Failed to check cache existence", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("cache exists error: %w", err)
	}
	return val > 0, nil
}

// Ключ включает относительный путь: разные уровни качества кешируются отдельно
func (r *cacheRepository) GetMapFile(ctx context.Context, relPath string) ([]byte, error) {
	return r.Get(ctx, mapFilePrefix+relPath)
}

func (r *cacheRepository) SetMapFile(ctx context.Context, relPath string, data []byte, ttl time.Duration) error {
	return r.Set(ctx, mapFilePrefix+relPath, data, ttl)
}

func (r *cacheRepository) GetLatestRun(ctx context.Context) (*domain.RunSummary, error) {
	data, err := r.Get(ctx, latestRunKey)
	if err != nil || data == nil {
		return nil, err
	}

	var summary domain.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		r.logger.Error("Failed to unmarshal run summary from cache", zap.Error(err))
		return nil, fmt.Errorf("unmarshal run summary: %w", err)
	}
	return &summary, nil
}

func (r *cacheRepository) SetLatestRun(ctx context.Context, summary *domain.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	return r.Set(ctx, latestRunKey, data, 0)
}
