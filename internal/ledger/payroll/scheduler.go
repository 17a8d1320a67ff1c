// Package payroll drives periodic salary settlement. The scheduler only
// owns timing: each tick invokes the engine's settlement pass, which runs
// as one uninterrupted unit on the engine's executor.
package payroll

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner is the settlement entry point the scheduler fires.
type Runner interface {
	ProcessPayroll(ctx context.Context) error
}

// Scheduler fires the payroll pass on a fixed wall-clock interval. There is
// no jitter and no catch-up: ticks missed while the process is down are
// simply gone.
type Scheduler struct {
	interval time.Duration
	runner   Runner
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(interval time.Duration, runner Runner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		runner:   runner,
		logger:   logger.Named("payroll_scheduler"),
	}
}

// Start launches the tick loop. The first pass runs one full interval after
// Start, not immediately.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
	s.logger.Info("payroll scheduler started", zap.Duration("interval", s.interval))
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.runner.ProcessPayroll(ctx); err != nil {
				s.logger.Error("payroll cycle failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the loop and waits for it to exit. A pass already handed to
// the engine finishes; no new tick fires afterwards.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("payroll scheduler stopped")
}
