// Package scheduler runs a job on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/deusflow/trendpulse/internal/logger"
)

// errRunning is returned by Start when the scheduler is already started.
var errRunning = errors.New("scheduler already running")

// Scheduler calls a job once immediately and then on every tick until the
// context is cancelled or Stop is called.
type Scheduler struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
	log  *slog.Logger
}

func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{interval: interval, log: logger.With("scheduler")}
}

// Start launches the loop in a goroutine. Job runs never overlap; ticks missed
// while a job runs are coalesced by the ticker.
func (s *Scheduler) Start(ctx context.Context, job func(context.Context, time.Time)) error {
	if job == nil {
		return errors.New("scheduler: nil job")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return errRunning
	}
	stop, done := make(chan struct{}), make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info("scheduler started", "interval", s.interval.String())
		job(ctx, time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(ctx, t)
			case <-ctx.Done():
				s.log.Info("scheduler stopped", "reason", ctx.Err())
				return
			case <-stop:
				s.log.Info("scheduler stopped")
				return
			}
		}
	}()
	return nil
}

// Stop halts the loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Wait blocks until the loop exits.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
