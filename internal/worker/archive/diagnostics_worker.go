package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/worker"
)

const (
	defaultBatchSize = 50
	emptyQueueSleep  = 200 * time.Millisecond // пауза если очередь пуста
	errorSleep       = time.Second
	staleIdle        = 5 * time.Minute // сообщения упавших consumer старше этого забираются
	claimInterval    = time.Minute
)

// DiagnosticsWorker переносит диагностику из Redis Stream в PostgreSQL.
// Неподтвержденные сообщения сначала перечитываются из своего pending-списка,
// поэтому имя consumer должно быть стабильным между перезапусками.
type DiagnosticsWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	archive      repository.DiagnosticsRepository
	consumerName string
	batchSize    int

	// pending - в своем pending-списке могут быть сообщения
	pending   bool
	lastClaim time.Time
}

// NewDiagnosticsWorker создает воркер; пустой consumerName заменяется именем хоста
func NewDiagnosticsWorker(
	streamRepo repository.StreamRepository,
	archive repository.DiagnosticsRepository,
	consumerGroup string,
	consumerName string,
	batchSize int,
	logger *zap.Logger,
) *DiagnosticsWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if consumerName == "" {
		consumerName, _ = os.Hostname()
	}
	if consumerName == "" {
		consumerName = "diagnostics-archive"
	}

	return &DiagnosticsWorker{
		BaseWorker:   worker.NewBaseWorker("diagnostics-archive", consumerGroup, logger),
		streamRepo:   streamRepo,
		archive:      archive,
		consumerName: consumerName,
		batchSize:    batchSize,
		pending:      true,
	}
}

// ConsumerName возвращает имя consumer в группе
func (w *DiagnosticsWorker) ConsumerName() string {
	return w.consumerName
}

// Start запускает воркер
func (w *DiagnosticsWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting DiagnosticsWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Int("batch_size", w.batchSize))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamDiagnostics, w.ConsumerGroup()); err != nil {
		logger.Error("Failed to create consumer group", zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()
		default:
		}

		if time.Since(w.lastClaim) >= claimInterval {
			w.claimStale(ctx)
		}

		processed, err := w.ProcessBatch(ctx)
		pause := time.Duration(0)
		switch {
		case err != nil:
			logger.Error("Failed to process batch", zap.Error(err))
			pause = errorSleep
		case processed == 0:
			pause = emptyQueueSleep
		}
		if pause > 0 {
			w.sleep(ctx, pause)
		}
	}
}

// sleep прерывается остановкой воркера или отменой контекста
func (w *DiagnosticsWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-w.StopChan():
	case <-ctx.Done():
	}
}

// claimStale переназначает себе сообщения, зависшие у consumer с другим именем
func (w *DiagnosticsWorker) claimStale(ctx context.Context) {
	w.lastClaim = time.Now()
	n, err := w.streamRepo.ClaimStale(ctx, domain.StreamDiagnostics, w.ConsumerGroup(), w.consumerName, staleIdle, w.batchSize)
	if err != nil {
		w.Logger().Warn("Failed to claim stale messages", zap.Error(err))
		return
	}
	if n > 0 {
		w.pending = true
	}
}

// next отдает сначала свой pending-список, затем новые сообщения
func (w *DiagnosticsWorker) next(ctx context.Context) ([]domain.StreamMessage, error) {
	if w.pending {
		msgs, err := w.streamRepo.ConsumePending(ctx, domain.StreamDiagnostics, w.ConsumerGroup(), w.consumerName, w.batchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to read pending messages: %w", err)
		}
		if len(msgs) > 0 {
			return msgs, nil
		}
		w.pending = false
	}

	msgs, err := w.streamRepo.ConsumeBatch(ctx, domain.StreamDiagnostics, w.ConsumerGroup(), w.consumerName, w.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to consume batch: %w", err)
	}
	return msgs, nil
}

// ProcessBatch читает пачку сообщений, архивирует их одной транзакцией и
// подтверждает. Возвращает количество прочитанных сообщений.
func (w *DiagnosticsWorker) ProcessBatch(ctx context.Context) (int, error) {
	logger := w.Logger()

	messages, err := w.next(ctx)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	items := make([]*domain.Diagnostic, 0, len(messages))
	ids := make([]string, 0, len(messages))
	var broken []string

	for _, msg := range messages {
		d, err := parseMessage(msg)
		if err != nil {
			logger.Warn("Failed to parse message, skipping",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			// битое сообщение подтверждаем, чтобы не застревало
			broken = append(broken, msg.ID)
			continue
		}
		items = append(items, d)
		ids = append(ids, msg.ID)
	}

	if len(broken) > 0 {
		if err := w.streamRepo.AckMessages(ctx, domain.StreamDiagnostics, w.ConsumerGroup(), broken); err != nil {
			logger.Error("Failed to ack broken messages", zap.Error(err))
			w.pending = true
		}
	}
	if len(items) == 0 {
		return len(messages), nil
	}

	// без ACK сообщения остаются в pending-списке, следующая пачка начнется с них
	if err := w.archive.RecordBatch(ctx, items); err != nil {
		w.pending = true
		return 0, fmt.Errorf("failed to archive diagnostics: %w", err)
	}

	if err := w.streamRepo.AckMessages(ctx, domain.StreamDiagnostics, w.ConsumerGroup(), ids); err != nil {
		// повторная запись безопасна: ON CONFLICT (id) DO NOTHING
		logger.Error("Failed to ack messages", zap.Error(err))
		w.pending = true
	}

	logger.Debug("Batch archived", zap.Int("archived", len(items)), zap.Int("broken", len(broken)))
	return len(messages), nil
}

func parseMessage(msg domain.StreamMessage) (*domain.Diagnostic, error) {
	if msg.Data == "" {
		return nil, fmt.Errorf("missing 'data' field")
	}
	var d domain.Diagnostic
	if err := json.Unmarshal([]byte(msg.Data), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnostic: %w", err)
	}
	if d.Kind == "" || d.Message == "" {
		return nil, fmt.Errorf("diagnostic without kind or message")
	}
	return &d, nil
}
