package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Lock is a named ownership lock shared by every instance. Acquire returns
// ok=false when another holder owns name; the returned token releases it.
type Lock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, name, token string) error
}

// Schedule holds the cron spec of each sweep.
type Schedule struct {
	Overdue   string
	Expiry    string
	Reminders string
	LockTTL   time.Duration
}

// Runner fires sweeps on their cron schedule. Each fire runs only on the
// instance that wins the sweep's ownership lock.
type Runner struct {
	sweeps *Sweeps
	lock   Lock
	ttl    time.Duration
	cron   *cron.Cron
	base   context.Context
}

func NewRunner(sweeps *Sweeps, lock Lock, schedule Schedule) (*Runner, error) {
	if sweeps == nil {
		return nil, errors.New("sweeps are required")
	}
	if lock == nil {
		return nil, errors.New("sweep lock is required")
	}
	ttl := schedule.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	r := &Runner{
		sweeps: sweeps,
		lock:   lock,
		ttl:    ttl,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		base: context.Background(),
	}
	for name, spec := range map[string]string{
		SweepOverdue:   schedule.Overdue,
		SweepExpiry:    schedule.Expiry,
		SweepReminders: schedule.Reminders,
	} {
		if spec == "" {
			continue
		}
		if _, err := r.cron.AddFunc(spec, func() { r.fire(name) }); err != nil {
			return nil, fmt.Errorf("schedule %s sweep %q: %w", name, spec, err)
		}
	}
	return r, nil
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// running sweeps to finish.
func (r *Runner) Run(ctx context.Context) error {
	r.base = ctx
	r.cron.Start()
	r.sweeps.logger.InfoContext(ctx, "scheduler started", "jobs", len(r.cron.Entries()))
	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.sweeps.logger.Info("scheduler stopped")
	return nil
}

// Fire runs one sweep now if this instance wins its lock. It returns a nil
// report when another instance holds the lock.
func (r *Runner) Fire(ctx context.Context, name string) (*Report, error) {
	token, ok, err := r.lock.Acquire(ctx, "sweep:"+name, r.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire %s sweep lock: %w", name, err)
	}
	if !ok {
		r.sweeps.metrics.contended(name)
		r.sweeps.logger.DebugContext(ctx, "sweep skipped, lock held elsewhere", "sweep", name)
		return nil, nil
	}
	defer func() {
		if err := r.lock.Release(context.WithoutCancel(ctx), "sweep:"+name, token); err != nil {
			r.sweeps.logger.WarnContext(ctx, "sweep lock release failed", "sweep", name, "error", err)
		}
	}()
	return r.sweeps.Run(ctx, name)
}

func (r *Runner) fire(name string) {
	if _, err := r.Fire(r.base, name); err != nil {
		r.sweeps.logger.ErrorContext(r.base, "sweep failed", "sweep", name, "error", err)
	}
}
