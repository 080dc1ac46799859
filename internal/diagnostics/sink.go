package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
)

// Collector хранит диагностику в памяти для итогового отчета
type Collector struct {
	mu    sync.Mutex
	items []*domain.Diagnostic
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Record(ctx context.Context, d *domain.Diagnostic) error {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
	return nil
}

// All возвращает копию записанной диагностики
func (c *Collector) All() []*domain.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.Diagnostic(nil), c.items...)
}

// CountByKind считает записи по категориям; unmatched_features суммирует Count
func (c *Collector) CountByKind() map[domain.DiagnosticKind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[domain.DiagnosticKind]int)
	for _, d := range c.items {
		if d.Kind == domain.DiagnosticUnmatched && d.Count > 0 {
			counts[d.Kind] += d.Count
			continue
		}
		counts[d.Kind]++
	}
	return counts
}

// LogSummary пишет сводку по категориям и по одной строке на ошибку геометрии
func (c *Collector) LogSummary(logger *zap.Logger) {
	counts := c.CountByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	fields := make([]zap.Field, 0, len(kinds))
	for _, k := range kinds {
		fields = append(fields, zap.Int(k, counts[domain.DiagnosticKind(k)]))
	}
	logger.Info("Diagnostics summary", fields...)

	for _, d := range c.All() {
		if d.Kind == domain.DiagnosticGeometry {
			logger.Warn("Geometry error", zap.String("file", d.File), zap.String("message", d.Message))
		}
	}
}

// JSONLSink пишет одну JSON-запись на строку; файл потом читает ParseIntersections
type JSONLSink struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

// OpenJSONLSink открывает файл журнала на дозапись
func OpenJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostics log: %w", err)
	}
	return &JSONLSink{w: f, c: f}, nil
}

func (s *JSONLSink) Record(ctx context.Context, d *domain.Diagnostic) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostic: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(data)
	return err
}

func (s *JSONLSink) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// LogSink дублирует диагностику в журнал приложения
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, d *domain.Diagnostic) error {
	s.logger.Warn("Job diagnostic",
		zap.String("job", d.JobID),
		zap.String("kind", string(d.Kind)),
		zap.String("file", d.File),
		zap.Int("count", d.Count),
		zap.String("message", d.Message))
	return nil
}

// MultiSink рассылает запись во все приемники; сбой одного не мешает остальным
type MultiSink []repository.DiagnosticsSink

func (m MultiSink) Record(ctx context.Context, d *domain.Diagnostic) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunSink проставляет идентификатор запуска всем записям
type RunSink struct {
	RunID uuid.UUID
	Next  repository.DiagnosticsSink
}

func (s RunSink) Record(ctx context.Context, d *domain.Diagnostic) error {
	if d.RunID == uuid.Nil {
		d.RunID = s.RunID
	}
	return s.Next.Record(ctx, d)
}
