package repository

import (
	"context"
	"time"

	"github.com/boundary-pipeline/internal/domain"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	// Get получает значение из кеша по ключу; промах - (nil, nil)
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кеше с TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет значение из кеша
	Delete(ctx context.Context, key string) error

	// Exists проверяет существование ключа
	Exists(ctx context.Context, key string) (bool, error)

	// GetMapFile получает содержимое файла карты из кеша
	GetMapFile(ctx context.Context, relPath string) ([]byte, error)

	// SetMapFile сохраняет содержимое файла карты в кеше
	SetMapFile(ctx context.Context, relPath string, data []byte, ttl time.Duration) error

	// GetLatestRun возвращает сводку последнего запуска конвейера
	GetLatestRun(ctx context.Context) (*domain.RunSummary, error)

	// SetLatestRun сохраняет сводку запуска без срока жизни
	SetLatestRun(ctx context.Context, summary *domain.RunSummary) error
}
