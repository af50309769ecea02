package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	mqcontracts "familytasks/contracts/mq"
	"familytasks/internal/model"
	"familytasks/pkg/logger"

	"go.uber.org/zap"
)

// FamilyRegistrar is the part of service.FamilyService the handler needs.
type FamilyRegistrar interface {
	Register(ctx context.Context, f *model.Family, seedDefaults bool, createdBy string) (int, error)
}

// OnceGuard drops redelivered events; util.Deduper satisfies it. Forget releases the
// mark after a failed attempt so the broker's redelivery is not swallowed.
type OnceGuard interface {
	AcquireOnce(ctx context.Context, handler, key string) bool
	Forget(ctx context.Context, handler, key string)
}

type FamilyCreatedHandler struct {
	families FamilyRegistrar
	dedup    OnceGuard
	logger   *zap.Logger
}

func NewFamilyCreatedHandler(families FamilyRegistrar, logger *zap.Logger) *FamilyCreatedHandler {
	return &FamilyCreatedHandler{
		families: families,
		logger:   logger,
	}
}

// WithDeduper skips events already handled within the deduper's TTL. Registration is
// idempotent anyway; this only saves the seeding round trips.
func (h *FamilyCreatedHandler) WithDeduper(d OnceGuard) *FamilyCreatedHandler {
	h.dedup = d
	return h
}

func (h *FamilyCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.FamilyCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal FamilyCreatedPayload", zap.Error(err))
		return err
	}

	log.Info("Handling family.created event",
		zap.String("family_id", p.FamilyID),
		zap.String("name", p.Name),
		zap.Bool("seed_defaults", p.SeedDefaults),
		zap.String("event_trace_id", p.TraceID),
	)

	if p.FamilyID == "" {
		log.Error("Invalid family_id in family.created event")
		return fmt.Errorf("invalid family_id: %q", p.FamilyID)
	}

	if h.dedup != nil && !h.dedup.AcquireOnce(ctx, mqcontracts.RoutingKeyFamilyCreated, p.FamilyID) {
		return nil
	}

	family := &model.Family{ID: p.FamilyID, Name: p.Name}
	seeded, err := h.families.Register(ctx, family, p.SeedDefaults, p.CreatedBy)
	if err != nil {
		log.Error("Failed to register family",
			zap.String("family_id", p.FamilyID),
			zap.Error(err),
		)
		if h.dedup != nil {
			h.dedup.Forget(context.WithoutCancel(ctx), mqcontracts.RoutingKeyFamilyCreated, p.FamilyID)
		}
		return err
	}

	log.Info("Family registered",
		zap.String("family_id", p.FamilyID),
		zap.Int("templates_created", seeded),
	)
	return nil
}
