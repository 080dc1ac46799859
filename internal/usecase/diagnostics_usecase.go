package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	apperrors "github.com/boundary-pipeline/internal/pkg/errors"
)

const maxDiagnosticsLimit = 1000

// DiagnosticsUseCase читает архив диагностики и сводку последнего запуска.
// Любая зависимость может быть nil, если соответствующее хранилище выключено.
type DiagnosticsUseCase struct {
	archive repository.DiagnosticsRepository
	streams repository.StreamRepository
	cache   repository.CacheRepository
	logger  *zap.Logger
}

func NewDiagnosticsUseCase(
	archive repository.DiagnosticsRepository,
	streams repository.StreamRepository,
	cache repository.CacheRepository,
	logger *zap.Logger,
) *DiagnosticsUseCase {
	return &DiagnosticsUseCase{
		archive: archive,
		streams: streams,
		cache:   cache,
		logger:  logger,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > maxDiagnosticsLimit {
		return maxDiagnosticsLimit
	}
	return limit
}

// ListByRun возвращает архивную диагностику запуска
func (uc *DiagnosticsUseCase) ListByRun(ctx context.Context, runID string, limit int) ([]*domain.Diagnostic, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, apperrors.ErrInvalidRunID
	}
	if uc.archive == nil {
		return nil, apperrors.ErrServiceUnavailable
	}

	items, err := uc.archive.ListByRun(ctx, id, clampLimit(limit))
	if err != nil {
		uc.logger.Error("Failed to list diagnostics", zap.String("run_id", runID), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}
	return items, nil
}

// Recent возвращает последние записи из стрима, еще не обязательно архивированные
func (uc *DiagnosticsUseCase) Recent(ctx context.Context, limit int) ([]*domain.Diagnostic, error) {
	if uc.streams == nil {
		return nil, apperrors.ErrServiceUnavailable
	}

	msgs, err := uc.streams.ReadRecent(ctx, domain.StreamDiagnostics, int64(clampLimit(limit)))
	if err != nil {
		uc.logger.Error("Failed to read diagnostics stream", zap.Error(err))
		return nil, apperrors.ErrCacheError
	}

	items := make([]*domain.Diagnostic, 0, len(msgs))
	for _, msg := range msgs {
		var d domain.Diagnostic
		if err := json.Unmarshal([]byte(msg.Data), &d); err != nil {
			uc.logger.Warn("Skipping malformed diagnostic", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		items = append(items, &d)
	}
	return items, nil
}

// LatestRun возвращает сводку последнего запуска конвейера
func (uc *DiagnosticsUseCase) LatestRun(ctx context.Context) (*domain.RunSummary, error) {
	if uc.cache == nil {
		return nil, apperrors.ErrServiceUnavailable
	}
	s, err := uc.cache.GetLatestRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	if s == nil {
		return nil, apperrors.ErrRunNotFound
	}
	return s, nil
}
