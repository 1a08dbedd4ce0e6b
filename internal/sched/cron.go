// Package sched runs the process's periodic jobs (countdown ticks and
// dataset refresh) on a single robfig/cron scheduler.
package sched

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	appLog "fastcal/internal/log"
)

// parser accepts both classic 5-field specs ("*/15 * * * *") and 6-field
// specs with seconds, plus descriptors such as "@every 1s" and "@daily".
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler wraps a cron.Cron. A slow job never overlaps with itself.
type Scheduler struct {
	c *cron.Cron
}

// New creates a stopped Scheduler whose specs are evaluated in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	return &Scheduler{
		c: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() { s.c.Start() }

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// Every runs job every period. The period is truncated to whole seconds
// (cron's resolution) and must be at least one second.
func (s *Scheduler) Every(period time.Duration, job func()) (func(), error) {
	if period < time.Second {
		return nil, fmt.Errorf("period %s is below one second", period)
	}
	return s.Cron("@every "+period.Truncate(time.Second).String(), job)
}

// Cron runs job on a cron spec. The returned func removes the job.
func (s *Scheduler) Cron(spec string, job func()) (func(), error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("empty schedule spec")
	}
	id, err := s.c.AddFunc(spec, job)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return func() { s.c.Remove(id) }, nil
}

// Validate reports whether spec parses.
func Validate(spec string) error {
	_, err := parser.Parse(strings.TrimSpace(spec))
	return err
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int { return len(s.c.Entries()) }

// cronLogger routes cron's own logging to the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
