package scheduler

import (
	"context"
	"log/slog"
	"time"

	"nodeseek_bot/internal/pipeline"
)

// Trigger is the interface for running one ingest-and-dispatch pass.
type Trigger interface {
	Update(ctx context.Context) (pipeline.UpdateReport, error)
}

// Scheduler periodically triggers the pipeline. Passes run one after
// another on a single goroutine; this sequencing is what guarantees no
// two dispatch passes ever overlap.
type Scheduler struct {
	trigger Trigger
	log     *slog.Logger
	tick    time.Duration
}

// New creates a Scheduler firing at the given interval.
func New(trigger Trigger, tick time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		trigger: trigger,
		log:     log,
		tick:    tick,
	}
}

// SetTickInterval overrides the check interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	rep, err := s.trigger.Update(ctx)
	if err != nil {
		s.log.Error("scheduled update", "error", err)
	}
	if rep.Ingest.New > 0 || rep.Push.Processed > 0 {
		s.log.Info("scheduled update finished",
			"new", rep.Ingest.New,
			"pushed", rep.Push.Pushed,
			"skipped", rep.Push.Skipped,
			"errors", rep.Push.Errors)
	}
}
