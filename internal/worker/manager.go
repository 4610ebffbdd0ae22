package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker is a long-running background task with its own lifecycle.
type Worker interface {
	Start(ctx context.Context) error
	Stop()
	Name() string
}

// Manager starts and stops a set of workers as a unit. A start failure
// leaves nothing running: workers already started are stopped again
// before the error is returned.
type Manager struct {
	mu      sync.Mutex
	workers []Worker
	logger  *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds workers to the set. Registration after StartAll has no
// effect on already-running workers until the next StartAll.
func (m *Manager) Register(workers ...Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, workers...)
}

// StartAll starts the workers in registration order.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, w := range m.workers {
		if err := w.Start(ctx); err != nil {
			m.stop(m.workers[:i])
			return fmt.Errorf("start %s: %w", w.Name(), err)
		}
		m.logger.Info("Worker started", zap.String("worker", w.Name()))
	}
	return nil
}

// StopAll stops every registered worker, most recently started first.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stop(m.workers)
}

func (m *Manager) stop(workers []Worker) {
	for i := len(workers) - 1; i >= 0; i-- {
		workers[i].Stop()
		m.logger.Info("Worker stopped", zap.String("worker", workers[i].Name()))
	}
}
