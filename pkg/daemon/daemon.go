// Package daemon runs taskplan's periodic jobs on cron schedules.
package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/harrisonrobin/taskplan/pkg/errors"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Daemon schedules named jobs. Jobs never overlap: a job that fires while
// another is running waits for it.
type Daemon struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New returns a Daemon using standard five-field cron specs.
func New(logger zerolog.Logger) *Daemon {
	l := logger.With().Str("component", "daemon").Logger()
	return &Daemon{
		cron:    cron.New(cron.WithLogger(cronLogger{l})),
		logger:  l,
		entries: make(map[string]cron.EntryID),
	}
}

// Schedule registers job under name. ctx is passed to every run.
func (d *Daemon) Schedule(ctx context.Context, name, spec string, job Job) error {
	id, err := d.cron.AddFunc(spec, func() { d.Run(ctx, name, job) })
	if err != nil {
		return errors.Wrapf(errors.ErrConfigInvalid, "schedule %s at %q: %v", name, spec, err)
	}
	d.entries[name] = id
	return nil
}

// Run executes job now and logs its outcome.
func (d *Daemon) Run(ctx context.Context, name string, job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := job(ctx); err != nil {
		d.logger.Error().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	d.logger.Info().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
}

// Next returns the next run of the named job, or the zero time when it is
// unknown or the daemon is not serving.
func (d *Daemon) Next(name string) time.Time {
	id, ok := d.entries[name]
	if !ok {
		return time.Time{}
	}
	return d.cron.Entry(id).Next
}

// Serve runs the schedule until ctx is done, then waits for a running job to finish.
func (d *Daemon) Serve(ctx context.Context) error {
	d.cron.Start()
	for name := range d.entries {
		d.logger.Info().Str("job", name).Time("next", d.Next(name)).Msg("job scheduled")
	}
	<-ctx.Done()
	<-d.cron.Stop().Done()
	d.logger.Info().Msg("daemon stopped")
	return nil
}

// cronLogger routes the scheduler's own messages to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
