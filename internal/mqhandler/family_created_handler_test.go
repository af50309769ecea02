package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"familytasks/internal/model"
	"familytasks/internal/repository/memstore"
	"familytasks/internal/service"

	"go.uber.org/zap"
)

type memoryGuard struct{ seen map[string]bool }

func (g *memoryGuard) AcquireOnce(_ context.Context, handler, key string) bool {
	k := handler + ":" + key
	if g.seen[k] {
		return false
	}
	g.seen[k] = true
	return true
}

func (g *memoryGuard) Forget(_ context.Context, handler, key string) {
	delete(g.seen, handler+":"+key)
}

func newHandler(store *memstore.Store) *FamilyCreatedHandler {
	log := zap.NewNop()
	families := service.NewFamilyService(store.Families(), service.NewTemplateService(store.Templates(), log), log)
	return NewFamilyCreatedHandler(families, log)
}

func TestFamilyCreatedRegistersAndSeeds(t *testing.T) {
	store := memstore.New()
	h := newHandler(store)
	ctx := context.Background()

	raw := json.RawMessage(`{"family_id":"F9","name":"Park","created_by":"u1","seed_defaults":true}`)
	if err := h.Handle(ctx, raw); err != nil {
		t.Fatalf("handle: %v", err)
	}

	fam, err := store.Families().Get(ctx, "F9")
	if err != nil || fam.Name != "Park" {
		t.Fatalf("family = %+v, %v", fam, err)
	}
	templates, err := store.Templates().ListAll(ctx, "F9")
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) != len(model.DefaultTemplates) {
		t.Fatalf("templates = %d, want %d", len(templates), len(model.DefaultTemplates))
	}

	// Redelivery is harmless even without a deduper.
	if err := h.Handle(ctx, raw); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	templates, _ = store.Templates().ListAll(ctx, "F9")
	if len(templates) != len(model.DefaultTemplates) {
		t.Fatalf("templates after redelivery = %d", len(templates))
	}
}

func TestFamilyCreatedWithoutSeeding(t *testing.T) {
	store := memstore.New()
	h := newHandler(store)
	ctx := context.Background()

	if err := h.Handle(ctx, json.RawMessage(`{"family_id":"F9"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	templates, _ := store.Templates().ListAll(ctx, "F9")
	if len(templates) != 0 {
		t.Fatalf("templates = %d, want 0", len(templates))
	}
	ids, _ := store.Families().ListIDs(ctx)
	if len(ids) != 1 || ids[0] != "F9" {
		t.Fatalf("families = %v", ids)
	}
}

func TestFamilyCreatedRejectsBadPayload(t *testing.T) {
	h := newHandler(memstore.New())
	cases := []string{`not json`, `{"name":"no id"}`}
	for _, raw := range cases {
		if err := h.Handle(context.Background(), json.RawMessage(raw)); err == nil {
			t.Fatalf("Handle(%s) = nil, want error", raw)
		}
	}
}

func TestFamilyCreatedDeduplicates(t *testing.T) {
	store := memstore.New()
	guard := &memoryGuard{seen: map[string]bool{}}
	h := newHandler(store).WithDeduper(guard)
	ctx := context.Background()

	raw := json.RawMessage(`{"family_id":"F9","name":"Park"}`)
	if err := h.Handle(ctx, raw); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// Fail every upsert; a deduplicated event must not reach the store.
	store.FailOn("families.upsert", "", errors.New("should not be called"))
	if err := h.Handle(ctx, raw); err != nil {
		t.Fatalf("duplicate handle: %v", err)
	}
}

func TestFamilyCreatedPropagatesStoreError(t *testing.T) {
	store := memstore.New()
	store.FailOn("families.upsert", "F9", errors.New("db down"))
	if err := newHandler(store).Handle(context.Background(), json.RawMessage(`{"family_id":"F9"}`)); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestFamilyCreatedRetriesAfterTransientFailure(t *testing.T) {
	store := memstore.New()
	guard := &memoryGuard{seen: map[string]bool{}}
	h := newHandler(store).WithDeduper(guard)
	ctx := context.Background()

	raw := json.RawMessage(`{"family_id":"F7","name":"Lee","seed_defaults":true}`)
	store.FailOn("families.upsert", "F7", context.DeadlineExceeded)
	if err := h.Handle(ctx, raw); err == nil {
		t.Fatalf("first delivery should fail")
	}

	store.FailOn("families.upsert", "F7", nil)
	if err := h.Handle(ctx, raw); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	fam, err := store.Families().Get(ctx, "F7")
	if err != nil || fam.Name != "Lee" {
		t.Fatalf("family after redelivery = %+v, %v", fam, err)
	}
	templates, _ := store.Templates().ListAll(ctx, "F7")
	if len(templates) != len(model.DefaultTemplates) {
		t.Fatalf("templates = %d, want %d", len(templates), len(model.DefaultTemplates))
	}

	// A third delivery after success is dropped again.
	store.FailOn("families.upsert", "", errors.New("should not be called"))
	if err := h.Handle(ctx, raw); err != nil {
		t.Fatalf("duplicate after success: %v", err)
	}
}
