package service

import (
	"context"
	"fmt"
	"time"

	"familytasks/pkg/trace"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultDailySpec = "0 0 * * *"

// Scheduler fires the daily batch from a cron expression evaluated in the family zone.
type Scheduler struct {
	cron       *cron.Cron
	batch      *BatchOrchestrator
	spec       string
	runOnStart bool
	logger     *zap.Logger
}

func NewScheduler(batch *BatchOrchestrator, spec string, loc *time.Location, logger *zap.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultDailySpec
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		batch:  batch,
		spec:   spec,
		logger: logger,
	}
}

// WithRunOnStart also runs the batch once when Start is called.
func (s *Scheduler) WithRunOnStart(v bool) *Scheduler {
	s.runOnStart = v
	return s
}

// Start registers the job and starts the cron loop. Jobs run with ctx as parent, so
// cancelling it aborts an in-progress batch.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid daily schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("Daily task scheduler started", zap.String("spec", s.spec))

	if s.runOnStart {
		go s.RunOnce(ctx)
	}
	return nil
}

// Stop waits for a running job to finish. Cancel the ctx given to Start first to abort
// it rather than wait.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Daily task scheduler stopped")
}

// NextRun reports the next activation, zero before Start.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx = WithSource(trace.Ensure(ctx), SourceCron)
	summary, err := s.batch.ProcessAllFamilies(ctx)
	if err != nil {
		s.logger.Error("Scheduled daily batch failed", zap.Error(err))
		return
	}
	if len(summary.Errors) > 0 {
		s.logger.Warn("Scheduled daily batch finished with errors", zap.Strings("errors", summary.Errors))
	}
}
