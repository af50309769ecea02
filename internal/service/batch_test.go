package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"familytasks/internal/model"
	"familytasks/internal/repository"

	"go.uber.org/zap"
)

func TestProcessAllFamiliesIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.Families().Upsert(ctx, &model.Family{ID: "F2"}); err != nil {
		t.Fatalf("register F2: %v", err)
	}
	f.store.FailOn("task_templates.list_daily", "F2", errors.New("store unavailable"))

	b := NewBatchOrchestrator(f.store.Families(), f.m, zap.NewNop())
	summary, err := b.ProcessAllFamilies(ctx)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	if summary.TotalFamilies != 2 || summary.ProcessedFamilies != 1 || summary.TotalTasksCreated != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(summary.Errors) != 1 || !strings.HasPrefix(summary.Errors[0], "F2: ") ||
		!strings.Contains(summary.Errors[0], "store unavailable") {
		t.Fatalf("errors = %q", summary.Errors)
	}
	if summary.Date != "2024-01-15" {
		t.Fatalf("date = %s", summary.Date)
	}
	if got := f.instancesByTemplate(t, "F1", "2024-01-15"); len(got) != 2 {
		t.Fatalf("F1 instances = %d, want 2", len(got))
	}
}

func TestProcessAllFamiliesConcurrentKeepsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var failing []string
	for i := 2; i <= 9; i++ {
		id := fmt.Sprintf("F%d", i)
		if err := f.store.Families().Upsert(ctx, &model.Family{ID: id}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
		tpl := &model.TaskTemplate{Name: "Dishes", Recurrence: model.RecurrenceDaily, IsActive: true}
		if err := f.store.Templates().Create(ctx, id, tpl); err != nil {
			t.Fatalf("template %s: %v", id, err)
		}
		if i%3 == 0 {
			f.store.FailOn("task_instances.list_for_date", id, errors.New("timeout"))
			failing = append(failing, id)
		}
	}

	b := NewBatchOrchestrator(f.store.Families(), f.m, zap.NewNop()).WithConcurrency(4)
	summary, err := b.ProcessAllFamilies(ctx)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	if summary.TotalFamilies != 9 || summary.ProcessedFamilies != 9-len(failing) {
		t.Fatalf("summary = %+v", summary)
	}
	// F1 has two daily templates, the healthy others one each.
	if want := 2 + (8 - len(failing)); summary.TotalTasksCreated != want {
		t.Fatalf("created = %d, want %d", summary.TotalTasksCreated, want)
	}
	if len(summary.Errors) != len(failing) {
		t.Fatalf("errors = %q", summary.Errors)
	}
	for i, id := range failing {
		if !strings.HasPrefix(summary.Errors[i], id+": ") {
			t.Fatalf("errors[%d] = %q, want prefix %s", i, summary.Errors[i], id)
		}
	}
}

func TestProcessAllFamiliesEnumerationFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("families.list", "", errors.New("db down"))

	b := NewBatchOrchestrator(f.store.Families(), f.m, zap.NewNop())
	if _, err := b.ProcessAllFamilies(context.Background()); err == nil {
		t.Fatal("expected enumeration failure to be returned")
	}
}

func TestProcessAllFamiliesEmpty(t *testing.T) {
	f := newFixture(t)
	b := NewBatchOrchestrator(emptyFamilies{}, f.m, zap.NewNop())
	summary, err := b.ProcessAllFamilies(context.Background())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if summary.TotalFamilies != 0 || summary.Errors == nil {
		t.Fatalf("summary = %+v; errors must be an empty list, not nil", summary)
	}
}

type emptyFamilies struct{}

func (emptyFamilies) Upsert(context.Context, *model.Family) error { return nil }
func (emptyFamilies) Get(context.Context, string) (*model.Family, error) {
	return nil, errors.New("not found")
}
func (emptyFamilies) List(context.Context) ([]model.Family, error) { return nil, nil }
func (emptyFamilies) ListIDs(context.Context) ([]string, error)    { return nil, nil }

func TestProcessFamily(t *testing.T) {
	f := newFixture(t)
	b := NewBatchOrchestrator(f.store.Families(), f.m, zap.NewNop())

	ok := b.ProcessFamily(context.Background(), "F1")
	if ok.TotalFamilies != 1 || ok.ProcessedFamilies != 1 || ok.TotalTasksCreated != 2 || ok.FamilyID != "F1" {
		t.Fatalf("summary = %+v", ok)
	}

	bad := b.ProcessFamily(context.Background(), "")
	if bad.ProcessedFamilies != 0 || len(bad.Errors) != 1 || !strings.Contains(bad.Errors[0], "family scope") {
		t.Fatalf("summary = %+v", bad)
	}
}

// blockingTemplates stalls ListDaily until the caller's context ends.
type blockingTemplates struct {
	repository.TemplateStore
}

func (b blockingTemplates) ListDaily(ctx context.Context, _ string) ([]model.TaskTemplate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFamilyTimeoutApplies(t *testing.T) {
	f := newFixture(t)
	m := NewMaterializer(blockingTemplates{f.store.Templates()}, f.store.Instances(), zap.NewNop()).
		WithClock(fixedNow).
		WithLocation(time.UTC).
		WithTimeout(100 * time.Millisecond)
	b := NewBatchOrchestrator(f.store.Families(), m, zap.NewNop()).WithFamilyTimeout(20 * time.Millisecond)

	summary, err := b.ProcessAllFamilies(context.Background())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if summary.ProcessedFamilies != 0 || len(summary.Errors) != 1 ||
		!strings.Contains(summary.Errors[0], context.DeadlineExceeded.Error()) {
		t.Fatalf("summary = %+v", summary)
	}
}
