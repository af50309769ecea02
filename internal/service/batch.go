package service

import (
	"context"
	"fmt"
	"time"

	"familytasks/internal/repository"
	"familytasks/pkg/logger"
	"familytasks/pkg/metrics"
	"familytasks/pkg/trace"
	"familytasks/pkg/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Summary aggregates a run over one or more families. FamilyID is only set by
// ProcessFamily.
type Summary struct {
	TotalFamilies     int      `json:"totalFamilies"`
	ProcessedFamilies int      `json:"processedFamilies"`
	TotalTasksCreated int      `json:"totalTasksCreated"`
	Errors            []string `json:"errors"`
	Date              string   `json:"date"`
	FamilyID          string   `json:"familyId,omitempty"`
}

// BatchOrchestrator runs the materializer across every registered family. One family
// failing never stops the others.
type BatchOrchestrator struct {
	families      repository.FamilyStore
	materializer  *Materializer
	concurrency   int
	familyTimeout time.Duration
	logger        *zap.Logger
}

func NewBatchOrchestrator(
	families repository.FamilyStore,
	materializer *Materializer,
	logger *zap.Logger,
) *BatchOrchestrator {
	return &BatchOrchestrator{
		families:      families,
		materializer:  materializer,
		concurrency:   1,
		familyTimeout: 30 * time.Second,
		logger:        logger,
	}
}

// WithConcurrency bounds how many families are processed at once; 1 is sequential.
func (b *BatchOrchestrator) WithConcurrency(n int) *BatchOrchestrator {
	if n > 0 {
		b.concurrency = n
	}
	return b
}

func (b *BatchOrchestrator) WithFamilyTimeout(d time.Duration) *BatchOrchestrator {
	if d > 0 {
		b.familyTimeout = d
	}
	return b
}

type familyOutcome struct {
	created int
	err     error
}

// ProcessAllFamilies materializes today's tasks for every family. Only a failure to
// enumerate families is returned as an error; per-family failures land in Errors in
// enumeration order.
func (b *BatchOrchestrator) ProcessAllFamilies(ctx context.Context) (*Summary, error) {
	ctx = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, b.logger)
	start := time.Now()

	ids, err := b.families.ListIDs(ctx)
	if err != nil {
		metrics.IncrementBatchRun("failed")
		log.Error("Failed to enumerate families", zap.Error(err))
		return nil, fmt.Errorf("enumerate families: %w", err)
	}

	date := b.materializer.Today()
	log.Info("Starting daily batch",
		zap.Int("families", len(ids)),
		zap.String("date", date),
		zap.Int("concurrency", b.concurrency),
	)

	outcomes := make([]familyOutcome, len(ids))
	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = b.processOne(ctx, id, date)
			return nil
		})
	}
	_ = g.Wait()

	summary := &Summary{
		TotalFamilies: len(ids),
		Errors:        []string{},
		Date:          date,
	}
	for i, o := range outcomes {
		if o.err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", ids[i], o.err.Error()))
			continue
		}
		summary.ProcessedFamilies++
		summary.TotalTasksCreated += o.created
	}

	status := "completed"
	if len(summary.Errors) > 0 {
		status = "partial"
	}
	metrics.IncrementBatchRun(status)

	log.Info("Daily batch finished",
		zap.String("status", status),
		zap.Int("total_families", summary.TotalFamilies),
		zap.Int("processed_families", summary.ProcessedFamilies),
		zap.Int("tasks_created", summary.TotalTasksCreated),
		zap.Int("errors", len(summary.Errors)),
		zap.Duration("took", time.Since(start)),
	)
	return summary, nil
}

// ProcessFamily runs one family with the batch's result shape. It never returns an
// error; a failure is reported in Errors.
func (b *BatchOrchestrator) ProcessFamily(ctx context.Context, familyID string) *Summary {
	ctx = trace.Ensure(ctx)
	date := b.materializer.Today()

	summary := &Summary{
		TotalFamilies: 1,
		Errors:        []string{},
		Date:          date,
		FamilyID:      familyID,
	}
	o := b.processOne(ctx, familyID, date)
	if o.err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", familyID, o.err.Error()))
		return summary
	}
	summary.ProcessedFamilies = 1
	summary.TotalTasksCreated = o.created
	return summary
}

func (b *BatchOrchestrator) processOne(ctx context.Context, familyID, date string) familyOutcome {
	fctx, cancel := context.WithTimeout(ctx, b.familyTimeout)
	defer cancel()

	res, err := b.materializer.GenerateForDate(fctx, familyID, date)
	if err != nil {
		_, errorType := util.IsRetryableError(err)
		metrics.IncrementBatchFamilyFailure(errorType)
		logger.WithTrace(ctx, b.logger).Warn("Family failed during daily batch",
			zap.String("family_id", familyID),
			zap.String("error_type", errorType),
			zap.Error(err),
		)
		return familyOutcome{err: err}
	}
	return familyOutcome{created: res.Created}
}
