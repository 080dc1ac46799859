package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain/repository"
)

type featureStore struct {
	logger *zap.Logger
}

// NewFeatureStore создает файловое хранилище коллекций на локальной ФС
func NewFeatureStore(logger *zap.Logger) repository.FeatureStore {
	return &featureStore{logger: logger}
}

func (s *featureStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (s *featureStore) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *featureStore) ReadRaw(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (s *featureStore) ReadCollection(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	data, err := s.ReadRaw(ctx, path)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection %s: %w", path, err)
	}

	s.logger.Debug("Feature collection loaded",
		zap.String("path", path),
		zap.Int("features", len(fc.Features)))
	return fc, nil
}

// WriteJSON пишет во временный файл рядом с целевым и переименовывает его,
// поэтому файл либо отсутствует, либо полностью записан.
func (s *featureStore) WriteJSON(ctx context.Context, path string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	w := bufio.NewWriterSize(tmp, 1<<20)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		cleanup()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	// CreateTemp создает файл с 0600, результат должен читаться веб-сервером
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}

	s.logger.Debug("File written", zap.String("path", path))
	return nil
}
