package summary

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler periodically sweeps the artifact prefixes for stale
// projections.
type Scheduler struct {
	ctx       context.Context
	projector *Projector
	prefixes  []string
	scheduler gocron.Scheduler
}

// NewScheduler creates a sweep scheduler running at the given interval.
func NewScheduler(ctx context.Context, projector *Projector, prefixes []string, interval time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	scheduler := &Scheduler{
		ctx:       ctx,
		projector: projector,
		prefixes:  prefixes,
		scheduler: s,
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(scheduler.sweep),
	)
	if err != nil {
		return nil, err
	}

	return scheduler, nil
}

// Start begins the sweep loop and blocks until the context is done.
func (s *Scheduler) Start() {
	slog.Info("starting summary sweep scheduler")
	s.scheduler.Start()
	<-s.ctx.Done()
	s.Stop()
}

// Stop halts the sweep loop.
func (s *Scheduler) Stop() {
	slog.Info("stopping summary sweep scheduler")
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("error shutting down summary scheduler", "err", err)
	}
}

func (s *Scheduler) sweep() {
	s.projector.Sweep(s.ctx, s.prefixes)
}
