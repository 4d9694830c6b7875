package update

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// GateFunc decides whether a trigger time falls inside the job's window,
// e.g. the exchange's trading hours.
type GateFunc func(t time.Time) bool

// Scheduler runs batch jobs on cron expressions. A job that is still
// running when its next trigger fires is skipped, never overlapped, and a
// job that keeps failing is paused after MaxFailures consecutive failures
// until Resume is called.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	// MaxFailures pauses a job after this many consecutive failures.
	// Zero means never pause.
	MaxFailures int

	mu   sync.Mutex
	jobs map[string]*jobState
}

type jobState struct {
	running  bool
	paused   bool
	failures int
	lastRun  time.Time
	lastErr  error
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
		jobs: make(map[string]*jobState),
	}
}

// AddJob registers fn under a cron spec. Job names must be unique.
func (s *Scheduler) AddJob(spec, name string, fn JobFunc) error {
	return s.AddGatedJob(spec, name, nil, fn)
}

// AddGatedJob registers fn with a gate; triggers outside the gate's window
// are dropped silently.
func (s *Scheduler) AddGatedJob(spec, name string, gate GateFunc, fn JobFunc) error {
	s.mu.Lock()
	if _, exists := s.jobs[name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("job %q already registered", name)
	}
	state := &jobState{}
	s.jobs[name] = state
	s.mu.Unlock()

	_, err := s.cron.AddFunc(spec, func() {
		if gate != nil && !gate(time.Now()) {
			s.log.Debug().Str("job", name).Msg("outside job window, skipping trigger")
			return
		}
		s.runJob(name, state, fn)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}
	s.log.Info().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

func (s *Scheduler) runJob(name string, state *jobState, fn JobFunc) {
	s.mu.Lock()
	if state.running {
		s.mu.Unlock()
		s.log.Warn().Str("job", name).Msg("previous run still active, skipping trigger")
		return
	}
	if state.paused {
		s.mu.Unlock()
		s.log.Warn().Str("job", name).Msg("job paused after repeated failures, skipping trigger")
		return
	}
	state.running = true
	s.mu.Unlock()

	start := time.Now()
	err := fn(context.Background())

	s.mu.Lock()
	state.running = false
	state.lastRun = start
	state.lastErr = err
	if err != nil {
		state.failures++
		if s.MaxFailures > 0 && state.failures >= s.MaxFailures {
			state.paused = true
		}
	} else {
		state.failures = 0
	}
	paused := state.paused
	s.mu.Unlock()

	if err != nil {
		s.log.Error().
			Str("job", name).
			Err(err).
			Bool("paused", paused).
			Dur("duration", time.Since(start)).
			Msg("job failed")
		return
	}
	s.log.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("job finished")
}

// Resume clears a paused job's failure count so triggers fire again.
func (s *Scheduler) Resume(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.jobs[name]; ok {
		state.paused = false
		state.failures = 0
	}
}

// LastRun reports when a job last started and whether that run failed.
func (s *Scheduler) LastRun(name string) (time.Time, error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.jobs[name]
	if !ok {
		return time.Time{}, nil, false
	}
	return state.lastRun, state.lastErr, true
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}
