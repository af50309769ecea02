// Package memstore keeps families, templates and instances in process memory. It backs
// store.driver=memory and the service tests, and enforces the same one instance per
// (family, template, date) rule as the Postgres schema.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	mqcontracts "familytasks/contracts/mq"
	"familytasks/internal/model"
	"familytasks/internal/repository"
	"familytasks/pkg/trace"

	"github.com/google/uuid"
)

type instanceKey struct {
	familyID   string
	templateID string
	date       string
}

type failKey struct {
	op       string
	familyID string
}

type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	families    map[string]*model.Family
	familyOrder []string
	templates   map[string]*model.TaskTemplate
	instances   map[string]*model.TaskInstance
	byKey       map[instanceKey]string
	order       map[string]int64
	checks      []model.DailyCheck
	events      []mqcontracts.DailyTasksGeneratedPayload

	failures map[failKey]error
}

func New() *Store {
	return &Store{
		now:       time.Now,
		families:  make(map[string]*model.Family),
		templates: make(map[string]*model.TaskTemplate),
		instances: make(map[string]*model.TaskInstance),
		byKey:     make(map[instanceKey]string),
		order:     make(map[string]int64),
		failures:  make(map[failKey]error),
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FailOn makes op return err for familyID, or for every family when familyID is "".
// Ops are the same names PersistenceError.Op carries, e.g. "task_templates.list_daily"
// or "daily.insert_check". A nil err clears the rule.
func (s *Store) FailOn(op, familyID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := failKey{op: op, familyID: familyID}
	if err == nil {
		delete(s.failures, k)
		return
	}
	s.failures[k] = err
}

func (s *Store) Families() *Families   { return &Families{s: s} }
func (s *Store) Templates() *Templates { return &Templates{s: s} }
func (s *Store) Instances() *Instances { return &Instances{s: s} }

// Checks returns the recorded audit entries in commit order.
func (s *Store) Checks() []model.DailyCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DailyCheck, len(s.checks))
	copy(out, s.checks)
	return out
}

// Events returns the daily_tasks.generated payloads that would have been published.
func (s *Store) Events() []mqcontracts.DailyTasksGeneratedPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mqcontracts.DailyTasksGeneratedPayload, len(s.events))
	copy(out, s.events)
	return out
}

// fail must be called with s.mu held.
func (s *Store) fail(op, familyID string) error {
	if err, ok := s.failures[failKey{op: op, familyID: familyID}]; ok {
		return &repository.PersistenceError{Op: op, Err: err}
	}
	if err, ok := s.failures[failKey{op: op}]; ok {
		return &repository.PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (s *Store) nextSeq(id string) {
	s.seq++
	s.order[id] = s.seq
}

// newestFirst sorts by insertion sequence, descending.
func (s *Store) newestFirst(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return s.order[ids[i]] > s.order[ids[j]] })
}

type Families struct{ s *Store }

var _ repository.FamilyStore = (*Families)(nil)

func (f *Families) Upsert(_ context.Context, fam *model.Family) error {
	if fam.ID == "" {
		return repository.ErrFamilyScope
	}
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("families.upsert", fam.ID); err != nil {
		return err
	}

	if existing, ok := s.families[fam.ID]; ok {
		if fam.Name != "" {
			existing.Name = fam.Name
		}
		*fam = *existing
		return nil
	}
	row := *fam
	row.CreatedAt = s.now()
	s.families[fam.ID] = &row
	s.familyOrder = append(s.familyOrder, fam.ID)
	*fam = row
	return nil
}

func (f *Families) Get(_ context.Context, id string) (*model.Family, error) {
	if id == "" {
		return nil, repository.ErrFamilyScope
	}
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("families.get", id); err != nil {
		return nil, err
	}
	row, ok := s.families[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *row
	return &out, nil
}

func (f *Families) List(_ context.Context) ([]model.Family, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("families.list", ""); err != nil {
		return nil, err
	}
	out := make([]model.Family, 0, len(s.familyOrder))
	for _, id := range s.familyOrder {
		out = append(out, *s.families[id])
	}
	return out, nil
}

func (f *Families) ListIDs(ctx context.Context) ([]string, error) {
	families, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(families))
	for _, fam := range families {
		ids = append(ids, fam.ID)
	}
	return ids, nil
}

type Templates struct{ s *Store }

var _ repository.TemplateStore = (*Templates)(nil)

func (t *Templates) Create(_ context.Context, familyID string, tpl *model.TaskTemplate) error {
	if familyID == "" {
		return repository.ErrFamilyScope
	}
	tpl.FamilyID = familyID
	if err := tpl.Validate(); err != nil {
		return err
	}

	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_templates.create", familyID); err != nil {
		return err
	}

	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := s.now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	row := *tpl
	s.templates[tpl.ID] = &row
	s.nextSeq(tpl.ID)
	return nil
}

func (t *Templates) Get(_ context.Context, familyID, id string) (*model.TaskTemplate, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_templates.get", familyID); err != nil {
		return nil, err
	}
	row, err := s.template(familyID, id)
	if err != nil {
		return nil, err
	}
	out := *row
	return &out, nil
}

// template must be called with s.mu held.
func (s *Store) template(familyID, id string) (*model.TaskTemplate, error) {
	row, ok := s.templates[id]
	if !ok || row.FamilyID != familyID {
		return nil, repository.ErrNotFound
	}
	return row, nil
}

func (t *Templates) ListActive(_ context.Context, familyID string) ([]model.TaskTemplate, error) {
	return t.list("task_templates.list_active", familyID, func(tpl *model.TaskTemplate) bool {
		return tpl.IsActive
	})
}

func (t *Templates) ListDaily(_ context.Context, familyID string) ([]model.TaskTemplate, error) {
	return t.list("task_templates.list_daily", familyID, (*model.TaskTemplate).IsMaterialized)
}

func (t *Templates) ListAll(_ context.Context, familyID string) ([]model.TaskTemplate, error) {
	return t.list("task_templates.list_all", familyID, func(*model.TaskTemplate) bool { return true })
}

func (t *Templates) list(op, familyID string, keep func(*model.TaskTemplate) bool) ([]model.TaskTemplate, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(op, familyID); err != nil {
		return nil, err
	}

	var ids []string
	for id, row := range s.templates {
		if row.FamilyID == familyID && keep(row) {
			ids = append(ids, id)
		}
	}
	s.newestFirst(ids)

	out := make([]model.TaskTemplate, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.templates[id])
	}
	return out, nil
}

func (t *Templates) Update(_ context.Context, familyID, id string, u model.TemplateUpdate) (*model.TaskTemplate, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_templates.update", familyID); err != nil {
		return nil, err
	}
	row, err := s.template(familyID, id)
	if err != nil {
		return nil, err
	}

	updated := *row
	if err := u.Apply(&updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()
	*row = updated
	return &updated, nil
}

func (t *Templates) ToggleActive(_ context.Context, familyID, id string) (*model.TaskTemplate, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_templates.toggle", familyID); err != nil {
		return nil, err
	}
	row, err := s.template(familyID, id)
	if err != nil {
		return nil, err
	}
	row.IsActive = !row.IsActive
	row.UpdatedAt = s.now()
	out := *row
	return &out, nil
}

func (t *Templates) Deactivate(_ context.Context, familyID, id string) error {
	if familyID == "" {
		return repository.ErrFamilyScope
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_templates.deactivate", familyID); err != nil {
		return err
	}
	row, err := s.template(familyID, id)
	if err != nil {
		return err
	}
	row.IsActive = false
	row.UpdatedAt = s.now()
	return nil
}

type Instances struct{ s *Store }

var _ repository.InstanceStore = (*Instances)(nil)

// instance must be called with s.mu held.
func (s *Store) instance(familyID, id string) (*model.TaskInstance, error) {
	row, ok := s.instances[id]
	if !ok || row.FamilyID != familyID {
		return nil, repository.ErrNotFound
	}
	return row, nil
}

func (i *Instances) Get(_ context.Context, familyID, id string) (*model.TaskInstance, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_instances.get", familyID); err != nil {
		return nil, err
	}
	row, err := s.instance(familyID, id)
	if err != nil {
		return nil, err
	}
	out := *row
	return &out, nil
}

func (i *Instances) ListForDate(_ context.Context, familyID, date string) ([]model.TaskInstance, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_instances.list_for_date", familyID); err != nil {
		return nil, err
	}

	var ids []string
	for id, row := range s.instances {
		if row.FamilyID == familyID && row.AssignedDate == date {
			ids = append(ids, id)
		}
	}
	s.newestFirst(ids)

	out := make([]model.TaskInstance, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.instances[id])
	}
	return out, nil
}

func (i *Instances) CreateFromTemplate(_ context.Context, familyID string, tpl *model.TaskTemplate, date string) (*model.TaskInstance, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	if err := model.ValidateDate(date); err != nil {
		return nil, err
	}
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_instances.create", familyID); err != nil {
		return nil, err
	}

	inst := model.NewPendingInstance(tpl, date)
	inst.FamilyID = familyID
	if _, taken := s.byKey[instanceKey{familyID, tpl.ID, date}]; taken {
		return nil, repository.ErrDuplicateInstance
	}
	s.insert(inst)
	out := *inst
	return &out, nil
}

// insert must be called with s.mu held and the key known to be free.
func (s *Store) insert(inst *model.TaskInstance) {
	inst.ID = uuid.NewString()
	now := s.now()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	row := *inst
	s.instances[inst.ID] = &row
	s.byKey[instanceKey{inst.FamilyID, inst.TemplateID, inst.AssignedDate}] = inst.ID
	s.nextSeq(inst.ID)
}

func (i *Instances) Complete(_ context.Context, familyID, id string, req model.CompleteRequest) (*model.TaskInstance, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_instances.complete", familyID); err != nil {
		return nil, err
	}
	row, err := s.instance(familyID, id)
	if err != nil {
		return nil, err
	}

	points := 0
	if req.PointsEarned != nil {
		points = *req.PointsEarned
	} else if tpl, err := s.template(familyID, row.TemplateID); err == nil {
		points = tpl.Points
	}
	now := s.now()
	by, name := req.CompletedBy, req.CompletedByName
	row.Status = model.StatusCompleted
	row.CompletedBy = &by
	row.CompletedByName = &name
	row.CompletedAt = &now
	row.PointsEarned = &points
	row.UpdatedAt = now

	out := *row
	return &out, nil
}

func (i *Instances) Uncomplete(_ context.Context, familyID, id string) (*model.TaskInstance, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("task_instances.uncomplete", familyID); err != nil {
		return nil, err
	}
	row, err := s.instance(familyID, id)
	if err != nil {
		return nil, err
	}

	row.Status = model.StatusPending
	row.CompletedBy = nil
	row.CompletedByName = nil
	row.CompletedAt = nil
	row.PointsEarned = nil
	row.UpdatedAt = s.now()

	out := *row
	return &out, nil
}

// CommitDaily stages everything first and applies it only when no step failed.
func (i *Instances) CommitDaily(ctx context.Context, familyID string, batch repository.DailyBatch) ([]model.TaskInstance, error) {
	if familyID == "" {
		return nil, repository.ErrFamilyScope
	}
	if len(batch.Instances) == 0 {
		return nil, nil
	}
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var staged []*model.TaskInstance
	seen := make(map[instanceKey]bool)
	for _, in := range batch.Instances {
		k := instanceKey{familyID, in.TemplateID, batch.Date}
		if _, taken := s.byKey[k]; taken || seen[k] {
			continue
		}
		seen[k] = true
		inst := *in
		inst.FamilyID = familyID
		inst.AssignedDate = batch.Date
		inst.Status = model.StatusPending
		staged = append(staged, &inst)

		if err := s.fail("daily.insert_instance", familyID); err != nil {
			return nil, err
		}
	}
	if len(staged) == 0 {
		return nil, nil
	}
	if err := s.fail("daily.insert_check", familyID); err != nil {
		return nil, err
	}
	if err := s.fail("daily.insert_event", familyID); err != nil {
		return nil, err
	}

	created := make([]model.TaskInstance, 0, len(staged))
	ids := make([]string, 0, len(staged))
	for _, inst := range staged {
		s.insert(inst)
		created = append(created, *inst)
		ids = append(ids, inst.ID)
	}

	checked := make([]string, len(batch.TemplatesChecked))
	copy(checked, batch.TemplatesChecked)
	s.checks = append(s.checks, model.DailyCheck{
		ID:               uuid.NewString(),
		FamilyID:         familyID,
		Date:             batch.Date,
		TemplatesChecked: checked,
		InstancesCreated: len(created),
		CheckedAt:        s.now(),
	})
	s.events = append(s.events, mqcontracts.DailyTasksGeneratedPayload{
		FamilyID:    familyID,
		Date:        batch.Date,
		Created:     len(created),
		InstanceIDs: ids,
		TraceID:     trace.FromContext(ctx),
	})
	return created, nil
}
