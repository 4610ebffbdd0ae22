package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/application/port"
	"github.com/unitms/army-ums/internal/application/service"
	"github.com/unitms/army-ums/internal/models"
)

// MergeWorker re-applies merges for approved requests whose profile
// projection has not landed yet. Approval itself attempts the merge inline;
// this worker is the durability net behind that, draining unclaimed merges
// (and ones whose claim went stale) with exponential backoff until they apply
// or exhaust their attempts.
type MergeWorker struct {
	requestRepo port.RequestRepository
	merger      service.MergeService
	logger      *zap.Logger

	pollInterval time.Duration
	batchSize    int
	baseBackoff  time.Duration
	maxBackoff   time.Duration

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// MergeWorkerConfig tunes the retry loop
type MergeWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

// NewMergeWorker creates a new merge retry worker
func NewMergeWorker(
	requestRepo port.RequestRepository,
	merger service.MergeService,
	cfg MergeWorkerConfig,
	logger *zap.Logger,
) *MergeWorker {
	return &MergeWorker{
		requestRepo:  requestRepo,
		merger:       merger,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		baseBackoff:  cfg.BaseBackoff,
		maxBackoff:   cfg.MaxBackoff,
	}
}

// Start starts the retry loop
func (w *MergeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("merge worker is already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true

	w.logger.Info("MergeWorker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize))

	go w.pollLoop()

	return nil
}

// Stop stops the retry loop
func (w *MergeWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isRunning {
		return
	}

	w.isRunning = false
	if w.cancel != nil {
		w.cancel()
	}
}

// Name returns the worker name for identification
func (w *MergeWorker) Name() string {
	return "MergeWorker"
}

func (w *MergeWorker) pollLoop() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Drain immediately on start so restarts pick up stranded merges.
	w.drainPendingMerges()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.drainPendingMerges()
		}
	}
}

// drainPendingMerges retries every due pending merge in the current batch
func (w *MergeWorker) drainPendingMerges() {
	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	requests, err := w.requestRepo.ListPendingMerges(ctx, w.batchSize, now.Add(-service.MergeStaleAfter))
	if err != nil {
		w.logger.Error("Failed to list pending merges", zap.Error(err))
		return
	}

	for _, request := range requests {
		if !w.due(request, now) {
			continue
		}

		w.logger.Info("Retrying merge",
			zap.String("request_id", request.ID),
			zap.Int("attempts", request.MergeAttempts))

		// Process claims the row and records the outcome itself; a lost
		// claim is a no-op and an error only means another attempt later.
		_ = w.merger.Process(ctx, request)
	}
}

// due applies the backoff schedule: a request with n prior failed attempts
// waits base * 2^(n-1), capped at maxBackoff, after its last attempt.
// First-time merges (no attempt yet) are always due.
func (w *MergeWorker) due(request *models.Request, now time.Time) bool {
	if request.MergeAttemptAt == nil || request.MergeAttempts == 0 {
		return true
	}
	return !now.Before(request.MergeAttemptAt.Add(w.backoff(request.MergeAttempts)))
}

func (w *MergeWorker) backoff(attempts int) time.Duration {
	if attempts <= 0 {
		return w.baseBackoff
	}
	delay := time.Duration(float64(w.baseBackoff) * math.Pow(2, float64(attempts-1)))
	if delay > w.maxBackoff || delay <= 0 {
		return w.maxBackoff
	}
	return delay
}
