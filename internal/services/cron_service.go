package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler is the subset of *cron.Cron the service drives
type Scheduler interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
	Entries() []cron.Entry
}

// WeekLocker locks completed payroll weeks
type WeekLocker interface {
	LockCompletedWeeks(ctx context.Context, asOf time.Time) (int64, error)
}

// JobRun records the outcome of the last week-lock run
type JobRun struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Locked    int64         `json:"locked"`
	Error     string        `json:"error,omitempty"`
	Manual    bool          `json:"manual"`
}

// CronService manages scheduled background jobs
type CronService struct {
	cron     Scheduler
	locker   WeekLocker
	spec     string
	enabled  bool
	timeout  time.Duration
	logger   *logrus.Logger
	now      func() time.Time
	mu       sync.Mutex
	lastRun  *JobRun
	started  bool
	entryIDs []cron.EntryID
}

// NewCronService creates a new CronService. spec is a six-field cron
// expression (with seconds).
func NewCronService(scheduler Scheduler, locker WeekLocker, spec string, enabled bool, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:    scheduler,
		locker:  locker,
		spec:    spec,
		enabled: enabled,
		timeout: 5 * time.Minute,
		logger:  logger,
		now:     time.Now,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	if !s.enabled {
		s.logger.Info("Week lock schedule disabled")
		return nil
	}

	id, err := s.cron.AddFunc(s.spec, func() { s.runWeekLock(false) })
	if err != nil {
		return fmt.Errorf("failed to schedule week lock job: %w", err)
	}

	s.mu.Lock()
	s.entryIDs = append(s.entryIDs, id)
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.logger.WithField("spec", s.spec).Info("Cron service started")
	return nil
}

// Stop stops all cron jobs and waits for a running job to finish
func (s *CronService) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// RunWeekLockNow runs the week lock job immediately
func (s *CronService) RunWeekLockNow() JobRun {
	return s.runWeekLock(true)
}

func (s *CronService) runWeekLock(manual bool) JobRun {
	start := s.now()
	entry := s.logger.WithFields(logrus.Fields{"job": "week_lock", "manual": manual})
	entry.Info("Starting week lock job")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	locked, err := s.locker.LockCompletedWeeks(ctx, start)
	run := JobRun{
		StartedAt: start,
		Duration:  s.now().Sub(start),
		Locked:    locked,
		Manual:    manual,
	}
	if err != nil {
		run.Error = err.Error()
		entry.WithError(err).Error("Week lock job failed")
	} else {
		entry.WithFields(logrus.Fields{"locked": locked, "duration": run.Duration.String()}).Info("Week lock job finished")
	}

	s.mu.Lock()
	s.lastRun = &run
	s.mu.Unlock()
	return run
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"enabled":   s.enabled,
		"running":   s.started,
		"spec":      s.spec,
		"job_count": len(entries),
		"jobs":      jobs,
	}
	if s.lastRun != nil {
		status["last_run"] = *s.lastRun
	}
	return status
}
