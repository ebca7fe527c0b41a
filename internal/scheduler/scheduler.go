// Package scheduler runs the engine's periodic jobs: the evaluation
// pass, the strength-board refresh, the config reload. Jobs are
// interval-driven, cancel cooperatively, and a panicking handler run is
// contained to that run.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Job is one periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Handler  func(ctx context.Context) error

	// Immediate runs the handler once at startup instead of waiting a
	// full interval.
	Immediate bool
}

// Scheduler drives a fixed set of jobs.
type Scheduler struct {
	jobs []Job

	mu       sync.Mutex
	lastErr  map[string]error
	lastRun  map[string]time.Time
	runCount map[string]int
}

// New creates a scheduler for the given jobs.
func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		lastErr:  make(map[string]error, len(jobs)),
		lastRun:  make(map[string]time.Time, len(jobs)),
		runCount: make(map[string]int, len(jobs)),
	}
}

// Run blocks until ctx is cancelled, driving every job on its own
// ticker.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		if job.Interval <= 0 || job.Handler == nil {
			log.Printf("[sched] skipping misconfigured job %q", job.Name)
			continue
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	log.Printf("[sched] job %q every %v", job.Name, job.Interval)
	if job.Immediate {
		s.runOnce(ctx, job)
	}
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

// runOnce executes one handler run with panic containment and records
// its outcome.
func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panic: %v", r)
			}
		}()
		return job.Handler(ctx)
	}()
	if err != nil && ctx.Err() == nil {
		log.Printf("[sched] job %q failed: %v", job.Name, err)
	}

	s.mu.Lock()
	s.lastErr[job.Name] = err
	s.lastRun[job.Name] = time.Now()
	s.runCount[job.Name]++
	s.mu.Unlock()
}

// LastError returns the most recent run's error for a job (nil when the
// run succeeded or the job has not run).
func (s *Scheduler) LastError(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr[name]
}

// Runs returns how many times a job has run.
func (s *Scheduler) Runs(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCount[name]
}
