package engine

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler drives Tick on a wall-clock-aligned cadence. Grounded on the
// budget_optimizer connector's cron.New()/AddFunc("@every ...") pattern,
// but uses a standard 5-field expression instead of "@every" so ticks land
// on wall-clock boundaries (:00/:15/:30/:45 for the default 15-minute
// cadence, spec §4.3) rather than drifting from the process's start time.
type Scheduler struct {
	cron *cron.Cron
	expr string
	tick func()
}

// NewScheduler builds a Scheduler that calls tick on every match of expr,
// a standard 5-field cron expression (e.g. "*/15 * * * *").
func NewScheduler(expr string, tick func()) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		expr: expr,
		tick: tick,
	}
}

// Start schedules the cron entry and begins running it in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.expr, func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("engine: tick panicked", "recover", r)
			}
		}()
		s.tick()
	}); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("engine: scheduler started", "cadence", s.expr)
	return nil
}

// Stop waits for any in-flight tick to finish and stops the cron driver.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
