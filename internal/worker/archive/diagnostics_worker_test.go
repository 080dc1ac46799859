package archive_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/worker/archive"
)

// MockStreamRepository is a mock of StreamRepository
type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	args := m.Called(ctx, stream, group)
	return args.Error(0)
}

func (m *MockStreamRepository) ConsumeBatch(ctx context.Context, stream, group, consumer string, maxCount int) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer, maxCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) ConsumePending(ctx context.Context, stream, group, consumer string, maxCount int) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer, maxCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) ClaimStale(ctx context.Context, stream, group, consumer string, minIdle time.Duration, maxCount int) (int, error) {
	args := m.Called(ctx, stream, group, consumer, minIdle, maxCount)
	return args.Int(0), args.Error(1)
}

func (m *MockStreamRepository) AckMessages(ctx context.Context, stream, group string, messageIDs []string) error {
	args := m.Called(ctx, stream, group, messageIDs)
	return args.Error(0)
}

func (m *MockStreamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	args := m.Called(ctx, stream, data)
	return args.Error(0)
}

func (m *MockStreamRepository) ReadRecent(ctx context.Context, stream string, count int64) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

// MockDiagnosticsRepository is a mock of DiagnosticsRepository
type MockDiagnosticsRepository struct {
	mock.Mock
}

func (m *MockDiagnosticsRepository) Record(ctx context.Context, d *domain.Diagnostic) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDiagnosticsRepository) RecordBatch(ctx context.Context, items []*domain.Diagnostic) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockDiagnosticsRepository) ListByRun(ctx context.Context, runID uuid.UUID, limit int) ([]*domain.Diagnostic, error) {
	args := m.Called(ctx, runID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Diagnostic), args.Error(1)
}

const (
	group    = "test-group"
	consumer = "api-1"
)

func message(t *testing.T, id string, d *domain.Diagnostic) domain.StreamMessage {
	data, err := json.Marshal(d)
	require.NoError(t, err)
	return domain.StreamMessage{ID: id, Data: string(data)}
}

func TestDiagnosticsWorker_Name(t *testing.T) {
	w := archive.NewDiagnosticsWorker(&MockStreamRepository{}, &MockDiagnosticsRepository{}, group, consumer, 10, zap.NewNop())
	assert.Equal(t, "diagnostics-archive", w.Name())
	assert.Equal(t, group, w.ConsumerGroup())
	assert.Equal(t, consumer, w.ConsumerName())

	// без имени из конфига берется hostname, а не случайное значение
	a := archive.NewDiagnosticsWorker(&MockStreamRepository{}, &MockDiagnosticsRepository{}, group, "", 10, zap.NewNop())
	b := archive.NewDiagnosticsWorker(&MockStreamRepository{}, &MockDiagnosticsRepository{}, group, "", 10, zap.NewNop())
	assert.NotEmpty(t, a.ConsumerName())
	assert.Equal(t, a.ConsumerName(), b.ConsumerName())
}

func TestDiagnosticsWorker_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	streams := &MockStreamRepository{}
	repo := &MockDiagnosticsRepository{}

	d1 := domain.NewDiagnostic("job-1", domain.DiagnosticTimeout, "a.json", "deadline exceeded")
	d2 := domain.NewDiagnostic("job-2", domain.DiagnosticGeometry, "b.json", "found self-intersection")
	msgs := []domain.StreamMessage{
		message(t, "1-0", d1),
		{ID: "2-0", Data: "{not json"},
		message(t, "3-0", d2),
	}

	streams.On("ConsumePending", ctx, domain.StreamDiagnostics, group, consumer, 10).Return([]domain.StreamMessage{}, nil).Once()
	streams.On("ConsumeBatch", ctx, domain.StreamDiagnostics, group, consumer, 10).Return(msgs, nil).Once()
	streams.On("AckMessages", ctx, domain.StreamDiagnostics, group, []string{"2-0"}).Return(nil).Once()
	repo.On("RecordBatch", ctx, mock.MatchedBy(func(items []*domain.Diagnostic) bool {
		return len(items) == 2 && items[0].ID == d1.ID && items[1].ID == d2.ID
	})).Return(nil).Once()
	streams.On("AckMessages", ctx, domain.StreamDiagnostics, group, []string{"1-0", "3-0"}).Return(nil).Once()

	w := archive.NewDiagnosticsWorker(streams, repo, group, consumer, 10, zap.NewNop())
	n, err := w.ProcessBatch(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	streams.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestDiagnosticsWorker_ArchiveFailureIsRetriedFromPending(t *testing.T) {
	ctx := context.Background()
	streams := &MockStreamRepository{}
	repo := &MockDiagnosticsRepository{}

	d := domain.NewDiagnostic("job-1", domain.DiagnosticPanic, "", "panic: boom")
	msgs := []domain.StreamMessage{message(t, "1-0", d)}

	// первая пачка: pending пуст, новое сообщение, запись в БД падает
	streams.On("ConsumePending", ctx, domain.StreamDiagnostics, group, consumer, 5).Return([]domain.StreamMessage{}, nil).Once()
	streams.On("ConsumeBatch", ctx, domain.StreamDiagnostics, group, consumer, 5).Return(msgs, nil).Once()
	repo.On("RecordBatch", ctx, mock.Anything).Return(errors.New("db down")).Once()

	w := archive.NewDiagnosticsWorker(streams, repo, group, consumer, 5, zap.NewNop())
	_, err := w.ProcessBatch(ctx)
	require.Error(t, err)
	streams.AssertNotCalled(t, "AckMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// вторая пачка перечитывает то же сообщение из pending-списка
	streams.On("ConsumePending", ctx, domain.StreamDiagnostics, group, consumer, 5).Return(msgs, nil).Once()
	repo.On("RecordBatch", ctx, mock.MatchedBy(func(items []*domain.Diagnostic) bool {
		return len(items) == 1 && items[0].ID == d.ID
	})).Return(nil).Once()
	streams.On("AckMessages", ctx, domain.StreamDiagnostics, group, []string{"1-0"}).Return(nil).Once()

	n, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	streams.AssertExpectations(t)
	repo.AssertExpectations(t)
	streams.AssertNumberOfCalls(t, "ConsumeBatch", 1)
}

func TestDiagnosticsWorker_TrimmedPendingEntryIsAcked(t *testing.T) {
	ctx := context.Background()
	streams := &MockStreamRepository{}

	streams.On("ConsumePending", ctx, domain.StreamDiagnostics, group, consumer, 10).
		Return([]domain.StreamMessage{{ID: "7-0"}}, nil).Once()
	streams.On("AckMessages", ctx, domain.StreamDiagnostics, group, []string{"7-0"}).Return(nil).Once()

	w := archive.NewDiagnosticsWorker(streams, &MockDiagnosticsRepository{}, group, consumer, 10, zap.NewNop())
	n, err := w.ProcessBatch(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	streams.AssertExpectations(t)
}

func TestDiagnosticsWorker_EmptyQueue(t *testing.T) {
	ctx := context.Background()
	streams := &MockStreamRepository{}
	streams.On("ConsumePending", ctx, domain.StreamDiagnostics, group, consumer, 50).
		Return([]domain.StreamMessage{}, nil).Once()
	streams.On("ConsumeBatch", ctx, domain.StreamDiagnostics, group, consumer, 50).
		Return([]domain.StreamMessage{}, nil).Once()

	w := archive.NewDiagnosticsWorker(streams, &MockDiagnosticsRepository{}, group, consumer, 0, zap.NewNop())
	n, err := w.ProcessBatch(ctx)

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDiagnosticsWorker_StartStop(t *testing.T) {
	streams := &MockStreamRepository{}
	streams.On("CreateConsumerGroup", mock.Anything, domain.StreamDiagnostics, group).Return(nil)
	streams.On("ClaimStale", mock.Anything, domain.StreamDiagnostics, group, consumer, mock.Anything, 10).Return(0, nil)
	streams.On("ConsumePending", mock.Anything, domain.StreamDiagnostics, group, consumer, 10).
		Return([]domain.StreamMessage{}, nil)
	streams.On("ConsumeBatch", mock.Anything, domain.StreamDiagnostics, group, consumer, 10).
		Return([]domain.StreamMessage{}, nil)

	w := archive.NewDiagnosticsWorker(streams, &MockDiagnosticsRepository{}, group, consumer, 10, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, w.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.True(t, w.IsStopped())
}

func TestDiagnosticsWorker_ConsumerGroupError(t *testing.T) {
	streams := &MockStreamRepository{}
	streams.On("CreateConsumerGroup", mock.Anything, domain.StreamDiagnostics, group).Return(errors.New("NOAUTH"))

	w := archive.NewDiagnosticsWorker(streams, &MockDiagnosticsRepository{}, group, consumer, 10, zap.NewNop())
	err := w.Start(context.Background())
	assert.Error(t, err)
}
