// Package scheduler runs background jobs on cron schedules and tracks their
// most recent outcome.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrUnknownJob is returned when a job name has not been registered.
var ErrUnknownJob = errors.New("unknown job")

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is a snapshot of a registered job.
type JobStatus struct {
	Name         string     `json:"name"`
	Schedule     string     `json:"schedule,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastDuration string     `json:"last_duration,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	Runs         int        `json:"runs"`
	Running      bool       `json:"running"`
}

type entry struct {
	job      Job
	schedule string
	cronID   cron.EntryID

	mu           sync.Mutex
	lastRun      time.Time
	lastDuration time.Duration
	lastErr      error
	runs         int
	active       int // in-flight executions, including rejected overlaps
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*entry
}

// New creates a new scheduler. Schedules carry a leading seconds field.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
		jobs: make(map[string]*entry),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("scheduled", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// Register makes a job available for manual triggering without scheduling it.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; !exists {
		s.jobs[job.Name()] = &entry{job: job}
	}
}

// AddJob registers a job and runs it on the given cron schedule.
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 0 9 * * MON-FRI"  - 9 AM weekdays
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[job.Name()]
	if !exists {
		e = &entry{job: job}
	} else if e.schedule != "" {
		return fmt.Errorf("job %s is already scheduled as %q", job.Name(), e.schedule)
	}

	id, err := s.cron.AddFunc(schedule, func() { s.execute(e) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}
	e.schedule = schedule
	e.cronID = id
	s.jobs[job.Name()] = e

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// Trigger starts a registered job in the background.
func (s *Scheduler) Trigger(name string) error {
	e, err := s.lookup(name)
	if err != nil {
		return err
	}

	s.log.Info().Str("job", name).Msg("Manual job trigger")
	go s.execute(e)
	return nil
}

// RunNow executes a registered job immediately (outside schedule) and
// returns its error.
func (s *Scheduler) RunNow(name string) error {
	e, err := s.lookup(name)
	if err != nil {
		return err
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.execute(e)
}

// Jobs returns the status of every registered job ordered by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(entries))
	for _, e := range entries {
		statuses = append(statuses, s.status(e))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

func (s *Scheduler) lookup(name string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return e, nil
}

func (s *Scheduler) status(e *entry) JobStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := JobStatus{
		Name:     e.job.Name(),
		Schedule: e.schedule,
		Runs:     e.runs,
		Running:  e.active > 0,
	}
	if e.schedule != "" {
		if next := s.cron.Entry(e.cronID).Next; !next.IsZero() {
			st.NextRun = &next
		}
	}
	if !e.lastRun.IsZero() {
		last := e.lastRun
		st.LastRun = &last
		st.LastDuration = e.lastDuration.Round(time.Millisecond).String()
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st
}

func (s *Scheduler) execute(e *entry) error {
	name := e.job.Name()
	start := time.Now()

	e.mu.Lock()
	e.active++
	e.mu.Unlock()

	s.log.Debug().Str("job", name).Msg("Running job")
	err := e.job.Run()

	e.mu.Lock()
	e.active--
	// An overlapping trigger is not an outcome of the job itself.
	if !errors.Is(err, ErrJobRunning) {
		e.runs++
		e.lastRun = start
		e.lastDuration = time.Since(start)
		e.lastErr = err
	}
	e.mu.Unlock()

	switch {
	case errors.Is(err, ErrJobRunning):
		s.log.Warn().Str("job", name).Msg("Job already running, trigger ignored")
	case err != nil:
		s.log.Error().
			Err(err).
			Str("job", name).
			Msg("Job failed")
	default:
		s.log.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("Job completed")
	}
	return err
}
