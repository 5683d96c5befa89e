package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reconciler flips due invoices to OVERDUE
type Reconciler interface {
	ReconcileOverdue(ctx context.Context, now time.Time) (int, error)
}

// Clock supplies the time a sweep runs at
type Clock interface {
	Now() time.Time
}

// OverdueSweeper periodically reconciles overdue invoices so the audit trail
// records a flip close to when it happened even if nobody reads the ledger.
// Reads still reconcile on their own; the sweeper only keeps an idle ledger fresh.
type OverdueSweeper struct {
	interval   time.Duration
	reconciler Reconciler
	clock      Clock
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeps    int
}

// NewOverdueSweeper creates a sweeper; an interval of zero or less disables it
func NewOverdueSweeper(interval time.Duration, reconciler Reconciler, clock Clock, logger *zap.Logger) *OverdueSweeper {
	return &OverdueSweeper{
		interval:   interval,
		reconciler: reconciler,
		clock:      clock,
		logger:     logger,
	}
}

// Enabled reports whether Start will launch the loop
func (s *OverdueSweeper) Enabled() bool {
	return s.interval > 0
}

// Start launches the sweep loop. It is a no-op when disabled or already running.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.interval < time.Second {
		s.mu.Unlock()
		return ErrInvalidConfig
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Overdue sweeper started", zap.Duration("interval", s.interval))
	return nil
}

// Stop stops the loop and waits for an in-flight sweep to finish
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweeps returns how many sweeps have completed
func (s *OverdueSweeper) Sweeps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweeps
}

func (s *OverdueSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation; failures are logged and retried on the next tick
func (s *OverdueSweeper) Sweep(ctx context.Context) {
	flipped, err := s.reconciler.ReconcileOverdue(ctx, s.clock.Now())

	s.mu.Lock()
	s.sweeps++
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Overdue sweep failed", zap.Error(err))
		}
		return
	}
	if flipped > 0 {
		s.logger.Info("Overdue sweep flipped invoices", zap.Int("count", flipped))
	}
}
