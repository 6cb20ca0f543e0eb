// Package scheduler runs the server's periodic housekeeping.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one piece of periodic work.
type Job struct {
	Name     string
	Schedule string
	Run      func()
}

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New parses every job's schedule up front so a bad cron spec fails at
// startup rather than silently never running.
func New(loc *time.Location, logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}), cron.Recover(cronLogger{logger})),
	)
	for _, job := range jobs {
		_, err := c.AddFunc(job.Schedule, func() {
			logger.Debug("running job", "job", job.Name)
			job.Run()
		})
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", job.Name, err)
		}
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
