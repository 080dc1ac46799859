package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/boundary-pipeline/internal/domain"
)

// DiagnosticsSink принимает диагностические записи заданий
type DiagnosticsSink interface {
	Record(ctx context.Context, d *domain.Diagnostic) error
}

// DiagnosticsRepository хранит диагностику для последующего просмотра
type DiagnosticsRepository interface {
	DiagnosticsSink

	// RecordBatch сохраняет записи одной транзакцией; повторные ID игнорируются
	RecordBatch(ctx context.Context, items []*domain.Diagnostic) error

	// ListByRun возвращает записи запуска, новые первыми
	ListByRun(ctx context.Context, runID uuid.UUID, limit int) ([]*domain.Diagnostic, error)
}
