package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"familytasks/internal/model"
	"familytasks/internal/repository"
	"familytasks/pkg/logger"
	"familytasks/pkg/metrics"
	"familytasks/pkg/trace"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Locker is a cross-process advisory lock. *util.Deduper implements it; ok=false means
// somebody else holds the key. Implementations fail open.
type Locker interface {
	Acquire(ctx context.Context, scope, key string) (release func(), ok bool)
}

const (
	lockScope = "daily_tasks"

	defaultCheckTimeout = 30 * time.Second
)

// Result is the outcome of one family's materialization.
type Result struct {
	Created          int      `json:"created"`
	Date             string   `json:"date"`
	InstanceIDs      []string `json:"instanceIds,omitempty"`
	TemplatesChecked []string `json:"templatesChecked,omitempty"`
}

// Materializer turns a family's active daily templates into instances for one date.
type Materializer struct {
	templates repository.TemplateStore
	instances repository.InstanceStore
	locker    Locker
	clock     func() time.Time
	loc       *time.Location
	group     singleflight.Group
	timeout   time.Duration
	logger    *zap.Logger
}

func NewMaterializer(
	templates repository.TemplateStore,
	instances repository.InstanceStore,
	logger *zap.Logger,
) *Materializer {
	return &Materializer{
		templates: templates,
		instances: instances,
		clock:     time.Now,
		loc:       time.Local,
		timeout:   defaultCheckTimeout,
		logger:    logger,
	}
}

func (m *Materializer) WithLocker(l Locker) *Materializer {
	m.locker = l
	return m
}

func (m *Materializer) WithClock(clock func() time.Time) *Materializer {
	m.clock = clock
	return m
}

// WithTimeout bounds one shared check. It is independent of any caller's deadline.
func (m *Materializer) WithTimeout(d time.Duration) *Materializer {
	if d > 0 {
		m.timeout = d
	}
	return m
}

// WithLocation sets the zone whose calendar day counts as "today".
func (m *Materializer) WithLocation(loc *time.Location) *Materializer {
	if loc != nil {
		m.loc = loc
	}
	return m
}

// Today is the current calendar day in the configured zone.
func (m *Materializer) Today() string {
	return model.DateIn(m.clock(), m.loc)
}

// CheckAndGenerate materializes today's missing daily tasks for familyID.
func (m *Materializer) CheckAndGenerate(ctx context.Context, familyID string) (Result, error) {
	return m.GenerateForDate(ctx, familyID, m.Today())
}

// GenerateForDate materializes missing daily tasks for an explicit date. Concurrent calls
// for the same family and date in this process share one execution.
func (m *Materializer) GenerateForDate(ctx context.Context, familyID, date string) (Result, error) {
	if familyID == "" {
		return Result{}, repository.ErrFamilyScope
	}
	if err := model.ValidateDate(date); err != nil {
		return Result{}, err
	}
	ctx = trace.Ensure(ctx)

	// The shared body must not inherit one caller's cancellation: everyone who joins
	// would fail with it. Each caller waits on its own ctx instead.
	ch := m.group.DoChan(familyID+"|"+date, func() (interface{}, error) {
		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.generate(gctx, familyID, date)
	})

	select {
	case <-ctx.Done():
		return Result{Date: date}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			logger.WithTrace(ctx, m.logger).Debug("Joined in-flight daily check",
				zap.String("family_id", familyID),
				zap.String("date", date),
			)
		}
		if r.Err != nil {
			return Result{Date: date}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (m *Materializer) generate(ctx context.Context, familyID, date string) (res Result, err error) {
	start := time.Now()
	log := logger.WithTrace(ctx, m.logger).With(
		zap.String("family_id", familyID),
		zap.String("date", date),
	)
	res.Date = date

	defer func() {
		outcome := "noop"
		switch {
		case err != nil:
			outcome = "error"
		case res.Created > 0:
			outcome = "created"
		}
		metrics.RecordDailyCheck(outcome, time.Since(start))
	}()

	if m.locker != nil {
		release, ok := m.locker.Acquire(ctx, lockScope, familyID+":"+date)
		if !ok {
			log.Info("Daily check held by another worker")
			return res, ErrCheckInProgress
		}
		defer release()
	}

	templates, err := m.templates.ListDaily(ctx, familyID)
	if err != nil {
		log.Error("Failed to load daily templates", zap.Error(err))
		return res, fmt.Errorf("list daily templates: %w", err)
	}
	existing, err := m.instances.ListForDate(ctx, familyID, date)
	if err != nil {
		log.Error("Failed to load instances for date", zap.Error(err))
		return res, fmt.Errorf("list instances for %s: %w", date, err)
	}

	have := make(map[string]struct{}, len(existing))
	for _, inst := range existing {
		have[inst.TemplateID] = struct{}{}
	}

	checked := make([]string, 0, len(templates))
	var missing []*model.TaskInstance
	for i := range templates {
		tpl := &templates[i]
		checked = append(checked, tpl.ID)
		if _, ok := have[tpl.ID]; ok {
			continue
		}
		missing = append(missing, model.NewPendingInstance(tpl, date))
	}
	res.TemplatesChecked = checked

	if len(missing) == 0 {
		log.Debug("Daily tasks already up to date", zap.Int("templates", len(templates)))
		return res, nil
	}

	created, err := m.instances.CommitDaily(ctx, familyID, repository.DailyBatch{
		Date:             date,
		Instances:        missing,
		TemplatesChecked: checked,
	})
	if err != nil {
		log.Error("Failed to commit daily tasks", zap.Int("missing", len(missing)), zap.Error(err))
		return res, fmt.Errorf("commit daily tasks: %w", err)
	}

	res.Created = len(created)
	for _, inst := range created {
		res.InstanceIDs = append(res.InstanceIDs, inst.ID)
	}
	metrics.AddDailyTasksCreated(sourceFrom(ctx), res.Created)

	log.Info("Daily tasks generated",
		zap.Int("created", res.Created),
		zap.Int("missing", len(missing)),
		zap.Int("templates", len(templates)),
		zap.String("source", sourceFrom(ctx)),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

// TodayTask pairs an active template with today's instance, if any.
type TodayTask struct {
	model.TaskTemplate
	Instance *model.TaskInstance `json:"instance,omitempty"`
}

type TodayView struct {
	FamilyID string      `json:"familyId"`
	Date     string      `json:"date"`
	Created  int         `json:"created"`
	Tasks    []TodayTask `json:"tasks"`
}

// TodayView generates today's tasks first, then lists every active template with its
// instance. Weekly and other non-daily templates appear without one unless added by hand.
func (m *Materializer) TodayView(ctx context.Context, familyID string) (*TodayView, error) {
	date := m.Today()
	res, err := m.GenerateForDate(ctx, familyID, date)
	if err != nil && !errors.Is(err, ErrCheckInProgress) {
		return nil, err
	}

	templates, err := m.templates.ListActive(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	instances, err := m.instances.ListForDate(ctx, familyID, date)
	if err != nil {
		return nil, fmt.Errorf("list instances for %s: %w", date, err)
	}

	byTemplate := make(map[string]*model.TaskInstance, len(instances))
	for i := range instances {
		byTemplate[instances[i].TemplateID] = &instances[i]
	}

	view := &TodayView{
		FamilyID: familyID,
		Date:     date,
		Created:  res.Created,
		Tasks:    make([]TodayTask, 0, len(templates)),
	}
	for _, tpl := range templates {
		view.Tasks = append(view.Tasks, TodayTask{TaskTemplate: tpl, Instance: byTemplate[tpl.ID]})
	}
	return view, nil
}

// Inspection summarizes what the engine would do for a family.
type Inspection struct {
	FamilyID        string `json:"familyId"`
	ActiveTemplates int    `json:"activeTemplates"`
	DailyTemplates  int    `json:"dailyTemplates"`
	NeedsProcessing bool   `json:"needsProcessing"`
}

func (m *Materializer) Inspect(ctx context.Context, familyID string) (*Inspection, error) {
	active, err := m.templates.ListActive(ctx, familyID)
	if err != nil {
		return nil, err
	}
	daily, err := m.templates.ListDaily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	return &Inspection{
		FamilyID:        familyID,
		ActiveTemplates: len(active),
		DailyTemplates:  len(daily),
		NeedsProcessing: len(daily) > 0,
	}, nil
}
