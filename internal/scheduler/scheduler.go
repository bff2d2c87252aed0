// Package scheduler triggers sync runs on a cron schedule. A run never
// overlaps a previous one still in progress.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type RunFunc func(ctx context.Context) error

// Status describes the most recent run.
type Status struct {
	Running    bool      `json:"running"`
	Runs       int       `json:"runs"`
	Skipped    int       `json:"skipped"`
	LastStart  time.Time `json:"last_start,omitzero"`
	LastFinish time.Time `json:"last_finish,omitzero"`
	LastError  string    `json:"last_error,omitempty"`
	NextRun    time.Time `json:"next_run,omitzero"`
}

type Scheduler struct {
	cron *cron.Cron
	run  RunFunc
	log  *slog.Logger
	now  func() time.Time

	mu     sync.Mutex
	status Status
	wg     sync.WaitGroup
	ctx    context.Context
}

func New(spec string, run RunFunc, log *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(),
		run:  run,
		log:  log,
		now:  time.Now,
		ctx:  context.Background(),
	}

	if _, err := s.cron.AddFunc(spec, func() { s.Trigger(s.context()) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return s, nil
}

// Start begins firing the schedule. Scheduled runs use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("Scheduler started", slog.Time("next_run", s.Next()))
}

// Next returns the time of the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Trigger runs a sync now unless one is already in progress, and reports
// whether it ran.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	s.mu.Lock()
	if s.status.Running {
		s.status.Skipped++
		s.mu.Unlock()
		s.log.Warn("Sync still running, skipping trigger")
		return false
	}
	s.status.Running = true
	s.status.LastStart = s.now()
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()

	err := s.run(ctx)

	s.mu.Lock()
	s.status.Running = false
	s.status.Runs++
	s.status.LastFinish = s.now()
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("Scheduled sync failed", slog.Any("error", err))
	}

	return true
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()

	st.NextRun = s.Next()
	return st
}

// Stop halts the schedule and waits for a running sync to return, or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronCtx := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running sync: %w", ctx.Err())
	}
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
