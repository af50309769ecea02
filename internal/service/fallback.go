package service

import (
	"context"
	"sync"
	"time"

	"familytasks/internal/model"
	"familytasks/pkg/trace"

	"go.uber.org/zap"
)

// DailyChecker is the entrypoint a fallback scheduler drives: the in-process
// Materializer, or a client of the cron endpoint.
type DailyChecker interface {
	CheckAndGenerate(ctx context.Context, familyID string) (Result, error)
}

// FallbackScheduler keeps one family's daily tasks generated when the server cron may
// not have run. It checks on start, at the next local midnight, every 24h after that
// and whenever Poke is called. At most one successful check runs per calendar day.
type FallbackScheduler struct {
	checker  DailyChecker
	familyID string
	clock    func() time.Time
	loc      *time.Location
	pokes    chan struct{}
	logger   *zap.Logger

	mu          sync.Mutex
	lastChecked string
}

func NewFallbackScheduler(checker DailyChecker, familyID string, loc *time.Location, logger *zap.Logger) *FallbackScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &FallbackScheduler{
		checker:  checker,
		familyID: familyID,
		clock:    time.Now,
		loc:      loc,
		pokes:    make(chan struct{}, 1),
		logger:   logger.With(zap.String("family_id", familyID)),
	}
}

func (f *FallbackScheduler) WithClock(clock func() time.Time) *FallbackScheduler {
	f.clock = clock
	return f
}

// Poke asks for a re-check, e.g. after the client regains focus. It never blocks.
func (f *FallbackScheduler) Poke() {
	select {
	case f.pokes <- struct{}{}:
	default:
	}
}

func (f *FallbackScheduler) LastChecked() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastChecked
}

// Run blocks until ctx is cancelled.
func (f *FallbackScheduler) Run(ctx context.Context) {
	f.Check(ctx)

	wait := untilNextMidnight(f.clock(), f.loc)
	f.logger.Info("Fallback scheduler armed", zap.Duration("next_check_in", wait))
	midnight := time.NewTimer(wait)
	defer midnight.Stop()

	var (
		ticker *time.Ticker
		daily  <-chan time.Time
	)
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Fallback scheduler stopped")
			return
		case <-midnight.C:
			ticker = time.NewTicker(24 * time.Hour)
			daily = ticker.C
			f.Check(ctx)
		case <-daily:
			f.Check(ctx)
		case <-f.pokes:
			f.Check(ctx)
		}
	}
}

// Check runs the checker unless today was already checked successfully. It reports
// whether the checker was called.
func (f *FallbackScheduler) Check(ctx context.Context) (bool, error) {
	today := model.DateIn(f.clock(), f.loc)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastChecked == today {
		f.logger.Debug("Daily tasks already checked today", zap.String("date", today))
		return false, nil
	}

	ctx = WithSource(trace.Ensure(ctx), SourceFallback)
	res, err := f.checker.CheckAndGenerate(ctx, f.familyID)
	if err != nil {
		f.logger.Warn("Fallback daily check failed", zap.String("date", today), zap.Error(err))
		return true, err
	}

	f.lastChecked = today
	f.logger.Info("Fallback daily check done",
		zap.String("date", res.Date),
		zap.Int("created", res.Created),
	)
	return true, nil
}

func untilNextMidnight(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return next.Sub(local)
}
