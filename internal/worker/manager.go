package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout - сколько ждать воркеры при остановке сервиса
const DefaultShutdownTimeout = 30 * time.Second

// WorkerManager запускает и останавливает фоновые воркеры API-сервиса
type WorkerManager struct {
	workers         []Worker
	logger          *zap.Logger
	shutdownTimeout time.Duration
	wg              sync.WaitGroup
	mu              sync.Mutex
	errs            map[string]error
}

func NewWorkerManager(logger *zap.Logger, shutdownTimeout time.Duration) *WorkerManager {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &WorkerManager{
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
		errs:            make(map[string]error),
	}
}

func (m *WorkerManager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.logger.Info("Worker registered", zap.String("name", w.Name()))
}

// Start запускает каждый воркер в своей горутине и сразу возвращается
func (m *WorkerManager) Start(ctx context.Context) error {
	m.mu.Lock()
	workers := append([]Worker(nil), m.workers...)
	m.mu.Unlock()

	if len(workers) == 0 {
		return fmt.Errorf("no workers registered")
	}

	m.logger.Info("Starting workers", zap.Int("count", len(workers)))
	for _, w := range workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()
			if err := w.Start(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("Worker failed", zap.String("name", w.Name()), zap.Error(err))
				m.mu.Lock()
				m.errs[w.Name()] = err
				m.mu.Unlock()
			}
		}(w)
	}
	return nil
}

// Errors возвращает ошибки завершившихся воркеров по имени
func (m *WorkerManager) Errors() map[string]error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]error, len(m.errs))
	for k, v := range m.errs {
		out[k] = v
	}
	return out
}

// Stop сигнализирует всем воркерам и ждет их не дольше shutdownTimeout
func (m *WorkerManager) Stop() error {
	m.mu.Lock()
	workers := append([]Worker(nil), m.workers...)
	m.mu.Unlock()

	m.logger.Info("Stopping workers", zap.Int("count", len(workers)))
	for _, w := range workers {
		if err := w.Stop(); err != nil {
			m.logger.Error("Failed to stop worker", zap.String("name", w.Name()), zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All workers stopped gracefully")
		return nil
	case <-time.After(m.shutdownTimeout):
		m.logger.Warn("Workers shutdown timed out", zap.Duration("timeout", m.shutdownTimeout))
		return fmt.Errorf("workers shutdown timed out after %v", m.shutdownTimeout)
	}
}
