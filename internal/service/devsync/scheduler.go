package devsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SchedulerConfig struct {
	IncrementalInterval time.Duration
	FullRefreshHour     int
	RetryDelay          time.Duration
	Location            *time.Location
}

// Cycler is the part of Service the scheduler drives.
type Cycler interface {
	RunCycle(ctx context.Context, mode Mode) (CycleReport, error)
}

// Scheduler runs an incremental loop and a daily full refresh until its
// context is cancelled.
type Scheduler struct {
	cycler Cycler
	cfg    SchedulerConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewScheduler(cycler Cycler, cfg SchedulerConfig, log *zap.Logger) *Scheduler {
	if cfg.IncrementalInterval <= 0 {
		cfg.IncrementalInterval = time.Hour
	}
	if cfg.FullRefreshHour < 0 || cfg.FullRefreshHour > 23 {
		cfg.FullRefreshHour = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{cycler: cycler, cfg: cfg, log: log.With(zap.String("component", "sync-scheduler")), now: time.Now}
}

func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("sync scheduler started",
		zap.Duration("incremental_interval", s.cfg.IncrementalInterval),
		zap.Int("full_refresh_hour", s.cfg.FullRefreshHour),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { s.incrementalLoop(ctx); return nil })
	g.Go(func() error { s.fullLoop(ctx); return nil })
	_ = g.Wait()

	s.log.Info("sync scheduler stopped")
	return nil
}

func (s *Scheduler) incrementalLoop(ctx context.Context) {
	for {
		s.runOnce(ctx, ModeIncremental)
		if !sleep(ctx, s.cfg.IncrementalInterval) {
			return
		}
	}
}

func (s *Scheduler) fullLoop(ctx context.Context) {
	wait := NextDaily(s.now(), s.cfg.FullRefreshHour, s.cfg.Location).Sub(s.now())
	for {
		if !sleep(ctx, wait) {
			return
		}
		if s.runOnce(ctx, ModeFull) {
			wait = NextDaily(s.now(), s.cfg.FullRefreshHour, s.cfg.Location).Sub(s.now())
		} else {
			s.log.Warn("full refresh incomplete, retrying", zap.Duration("retry_in", s.cfg.RetryDelay))
			wait = s.cfg.RetryDelay
		}
	}
}

// runOnce reports whether every customer synced. A panic inside the cycle is
// logged and treated as a failure so the loop keeps going.
func (s *Scheduler) runOnce(ctx context.Context, mode Mode) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sync cycle panicked", zap.String("mode", string(mode)), zap.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()

	report, err := s.cycler.RunCycle(ctx, mode)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("sync cycle failed", zap.String("mode", string(mode)), zap.Error(err))
		}
		return false
	}
	return len(report.Failed) == 0
}

// NextDaily returns the first moment at hour:00 in loc strictly after now.
func NextDaily(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
