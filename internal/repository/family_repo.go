package repository

import (
	"context"
	"errors"

	"familytasks/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type FamilyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewFamilyRepository(db *pgxpool.Pool, logger *zap.Logger) *FamilyRepository {
	return &FamilyRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert registers the family; an existing row only gets its name refreshed.
func (r *FamilyRepository) Upsert(ctx context.Context, f *model.Family) error {
	if err := requireFamily(f.ID); err != nil {
		return err
	}

	query := `
        INSERT INTO families (id, name)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE
            SET name = CASE WHEN EXCLUDED.name = '' THEN families.name ELSE EXCLUDED.name END
        RETURNING name, created_at
    `
	if err := r.db.QueryRow(ctx, query, f.ID, f.Name).Scan(&f.Name, &f.CreatedAt); err != nil {
		r.logger.Error("Failed to upsert family", zap.String("family_id", f.ID), zap.Error(err))
		return persistErr("families.upsert", err)
	}

	r.logger.Info("Family registered", zap.String("family_id", f.ID))
	return nil
}

func (r *FamilyRepository) Get(ctx context.Context, id string) (*model.Family, error) {
	if err := requireFamily(id); err != nil {
		return nil, err
	}

	var f model.Family
	err := r.db.QueryRow(ctx, `SELECT id, name, created_at FROM families WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("families.get", err)
	}
	return &f, nil
}

func (r *FamilyRepository) List(ctx context.Context) ([]model.Family, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, name, created_at
        FROM families
        ORDER BY created_at ASC, id ASC
    `)
	if err != nil {
		r.logger.Error("Failed to list families", zap.Error(err))
		return nil, persistErr("families.list", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		var f model.Family
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return nil, persistErr("families.list", err)
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("families.list", err)
	}
	return families, nil
}

func (r *FamilyRepository) ListIDs(ctx context.Context) ([]string, error) {
	families, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(families))
	for _, f := range families {
		ids = append(ids, f.ID)
	}

	r.logger.Debug("Listed family ids", zap.Int("count", len(ids)))
	return ids, nil
}
