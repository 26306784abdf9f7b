// Package refresh runs a job on a fixed schedule until it is stopped.
// It is the timer a view owns to re-evaluate time-derived state.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "eventboard/internal/log"
)

// Ticker runs a single job on a cron schedule ("@every 60s", "*/15 * * * *").
// Start and Stop may be called repeatedly; a stopped Ticker can be started
// again.
type Ticker struct {
	name string
	spec string
	job  func()
	loc  *time.Location

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
}

// New creates a stopped Ticker. name is only used in logs.
func New(name, spec string, loc *time.Location, job func()) *Ticker {
	if loc == nil {
		loc = time.Local
	}
	return &Ticker{name: name, spec: spec, job: job, loc: loc}
}

// Start schedules the job. It fails when the cron spec cannot be parsed, in
// which case nothing is running.
func (t *Ticker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		return nil
	}

	logger := appLog.CronLogger{}
	c := cron.New(
		cron.WithLocation(t.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	id, err := c.AddFunc(t.spec, t.job)
	if err != nil {
		return fmt.Errorf("refresh %s: schedule %q: %w", t.name, t.spec, err)
	}
	c.Start()

	t.cron, t.entry = c, id
	appLog.Info("refresh ticker started", "name", t.name, "spec", t.spec, "next", c.Entry(id).Next.Format(time.RFC3339))
	return nil
}

// Stop cancels future runs. The returned context is done once a run that
// was in flight has finished.
func (t *Ticker) Stop() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	ctx := t.cron.Stop()
	t.cron = nil
	appLog.Info("refresh ticker stopped", "name", t.name)
	return ctx
}

// Running reports whether the job is scheduled.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cron != nil
}

// Next returns the next scheduled run, or the zero time when stopped.
func (t *Ticker) Next() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cron == nil {
		return time.Time{}
	}
	return t.cron.Entry(t.entry).Next
}
