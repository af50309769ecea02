package repository

import (
	"context"

	"familytasks/internal/model"
)

// FamilyStore enumerates the tenants the batch orchestrator walks.
type FamilyStore interface {
	Upsert(ctx context.Context, f *model.Family) error
	Get(ctx context.Context, id string) (*model.Family, error)
	List(ctx context.Context) ([]model.Family, error)
	// ListIDs returns family ids in registration order.
	ListIDs(ctx context.Context) ([]string, error)
}

// TemplateStore holds recurring chore definitions. Every method is scoped by familyID
// and fails with ErrFamilyScope when it is empty.
type TemplateStore interface {
	Create(ctx context.Context, familyID string, t *model.TaskTemplate) error
	Get(ctx context.Context, familyID, id string) (*model.TaskTemplate, error)
	// ListActive, ListAll: newest first.
	ListActive(ctx context.Context, familyID string) ([]model.TaskTemplate, error)
	ListDaily(ctx context.Context, familyID string) ([]model.TaskTemplate, error)
	ListAll(ctx context.Context, familyID string) ([]model.TaskTemplate, error)
	Update(ctx context.Context, familyID, id string, u model.TemplateUpdate) (*model.TaskTemplate, error)
	ToggleActive(ctx context.Context, familyID, id string) (*model.TaskTemplate, error)
	Deactivate(ctx context.Context, familyID, id string) error
}

// InstanceStore holds per-day task records.
type InstanceStore interface {
	Get(ctx context.Context, familyID, id string) (*model.TaskInstance, error)
	// ListForDate returns the family's instances for date, newest first.
	ListForDate(ctx context.Context, familyID, date string) ([]model.TaskInstance, error)
	// CreateFromTemplate writes a pending instance without looking for an existing one;
	// a taken (family, template, date) key yields ErrDuplicateInstance.
	CreateFromTemplate(ctx context.Context, familyID string, tpl *model.TaskTemplate, date string) (*model.TaskInstance, error)
	Complete(ctx context.Context, familyID, id string, req model.CompleteRequest) (*model.TaskInstance, error)
	Uncomplete(ctx context.Context, familyID, id string) (*model.TaskInstance, error)
	// CommitDaily writes batch atomically and returns the instances actually inserted.
	// Rows whose key already exists are skipped. When nothing is inserted the whole
	// unit is discarded: no audit record, no event.
	CommitDaily(ctx context.Context, familyID string, batch DailyBatch) ([]model.TaskInstance, error)
}

// DailyBatch is one family's materialization for one date.
type DailyBatch struct {
	Date             string
	Instances        []*model.TaskInstance
	TemplatesChecked []string
}
