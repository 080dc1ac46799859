package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Worker - долгоживущий фоновый процесс сервиса (в отличие от Job)
type Worker interface {
	// Start блокируется до остановки или отмены контекста
	Start(ctx context.Context) error

	// Stop сигнализирует воркеру завершиться
	Stop() error

	Name() string
}

// BaseWorker содержит общую логику остановки и consumer group
type BaseWorker struct {
	name          string
	consumerGroup string
	logger        *zap.Logger
	stopChan      chan struct{}
	once          sync.Once
	stopped       bool
	mu            sync.Mutex
}

func NewBaseWorker(name, consumerGroup string, logger *zap.Logger) *BaseWorker {
	return &BaseWorker{
		name:          name,
		consumerGroup: consumerGroup,
		logger:        logger.With(zap.String("worker", name)),
		stopChan:      make(chan struct{}),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

// Stop безопасно вызывать несколько раз
func (w *BaseWorker) Stop() error {
	w.once.Do(func() {
		w.logger.Info("Stopping worker")
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
		close(w.stopChan)
	})
	return nil
}

func (w *BaseWorker) IsStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func (w *BaseWorker) StopChan() <-chan struct{} {
	return w.stopChan
}

func (w *BaseWorker) ConsumerGroup() string {
	return w.consumerGroup
}

func (w *BaseWorker) Logger() *zap.Logger {
	return w.logger
}
