package usecase

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	apperrors "github.com/boundary-pipeline/internal/pkg/errors"
)

// MapsUseCase отдает сгенерированные файлы geojson/topojson с кешем в Redis
type MapsUseCase struct {
	store   repository.FeatureStore
	cache   repository.CacheRepository
	baseDir string
	ttl     time.Duration
	logger  *zap.Logger
}

// NewMapsUseCase создает MapsUseCase; cache может быть nil
func NewMapsUseCase(
	store repository.FeatureStore,
	cache repository.CacheRepository,
	baseDir string,
	ttl time.Duration,
	logger *zap.Logger,
) *MapsUseCase {
	return &MapsUseCase{
		store:   store,
		cache:   cache,
		baseDir: baseDir,
		ttl:     ttl,
		logger:  logger,
	}
}

// CleanMapPath проверяет относительный путь запроса: только .json внутри
// geojson/ или topojson/, без выхода за базовый каталог.
func CleanMapPath(rel string) (string, bool) {
	if rel == "" || strings.Contains(rel, "\\") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", false
		}
	}
	clean := path.Clean("/" + rel)[1:]
	top, _, found := strings.Cut(clean, "/")
	if !found || (top != domain.GeoJSONDir && top != domain.TopoJSONDir) {
		return "", false
	}
	if path.Ext(clean) != ".json" || strings.HasPrefix(path.Base(clean), ".") {
		return "", false
	}
	return clean, true
}

// GetFile возвращает содержимое файла карты
func (uc *MapsUseCase) GetFile(ctx context.Context, rel string) ([]byte, error) {
	clean, ok := CleanMapPath(rel)
	if !ok {
		return nil, apperrors.ErrInvalidMapPath
	}

	// 1. Проверяем кеш
	if uc.cache != nil {
		cached, err := uc.cache.GetMapFile(ctx, clean)
		if err != nil {
			uc.logger.Warn("Failed to get map file from cache", zap.String("path", clean), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	// 2. Читаем с диска
	data, err := uc.store.ReadRaw(ctx, filepath.Join(uc.baseDir, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.ErrMapFileNotFound.WithDetails(map[string]interface{}{"path": clean})
		}
		return nil, err
	}

	// 3. Кешируем
	if uc.cache != nil {
		if err := uc.cache.SetMapFile(ctx, clean, data, uc.ttl); err != nil {
			uc.logger.Warn("Failed to cache map file", zap.String("path", clean), zap.Error(err))
		}
	}
	return data, nil
}
