package service

import (
	"context"
	"fmt"

	"familytasks/internal/model"
	"familytasks/internal/repository"
	"familytasks/pkg/logger"

	"go.uber.org/zap"
)

type TemplateService struct {
	templates repository.TemplateStore
	logger    *zap.Logger
}

func NewTemplateService(templates repository.TemplateStore, logger *zap.Logger) *TemplateService {
	return &TemplateService{
		templates: templates,
		logger:    logger,
	}
}

// SeedDefaults creates the starter chores for a family and returns how many were
// added. Defaults whose name already exists in the family are skipped, so seeding
// twice is harmless.
func (s *TemplateService) SeedDefaults(ctx context.Context, familyID, createdBy string) (int, error) {
	existing, err := s.templates.ListAll(ctx, familyID)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t.Name] = true
	}

	created := 0
	for _, d := range model.DefaultTemplates {
		if have[d.Name] {
			continue
		}
		if err := s.templates.Create(ctx, familyID, d.Template(familyID, createdBy)); err != nil {
			return created, fmt.Errorf("seed %q: %w", d.Name, err)
		}
		created++
	}

	logger.WithTrace(ctx, s.logger).Info("Default templates seeded",
		zap.String("family_id", familyID),
		zap.Int("created", created),
		zap.Int("skipped", len(model.DefaultTemplates)-created),
	)
	return created, nil
}

type FamilyService struct {
	families  repository.FamilyStore
	templates *TemplateService
	logger    *zap.Logger
}

func NewFamilyService(families repository.FamilyStore, templates *TemplateService, logger *zap.Logger) *FamilyService {
	return &FamilyService{
		families:  families,
		templates: templates,
		logger:    logger,
	}
}

// Register adds the family to the batch enumeration and optionally seeds defaults.
// Registering an existing family is not an error.
func (s *FamilyService) Register(ctx context.Context, f *model.Family, seedDefaults bool, createdBy string) (int, error) {
	if err := s.families.Upsert(ctx, f); err != nil {
		return 0, err
	}
	if !seedDefaults {
		return 0, nil
	}
	return s.templates.SeedDefaults(ctx, f.ID, createdBy)
}

func (s *FamilyService) List(ctx context.Context) ([]model.Family, error) {
	return s.families.List(ctx)
}
