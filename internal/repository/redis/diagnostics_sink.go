package redis

import (
	"context"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
)

// DiagnosticsSink публикует диагностику в stream:pipeline:diagnostics,
// откуда ее забирает воркер архивации API-сервиса
type DiagnosticsSink struct {
	streams repository.StreamRepository
}

func NewDiagnosticsSink(streams repository.StreamRepository) *DiagnosticsSink {
	return &DiagnosticsSink{streams: streams}
}

func (s *DiagnosticsSink) Record(ctx context.Context, d *domain.Diagnostic) error {
	return s.streams.PublishToStream(ctx, domain.StreamDiagnostics, d)
}
