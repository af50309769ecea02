package repository

import (
	"context"
	"errors"

	"familytasks/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TemplateRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTemplateRepository(db *pgxpool.Pool, logger *zap.Logger) *TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

const templateColumns = `id, family_id, name, icon, points, category, difficulty, estimated_time,
       recurrence, is_active, created_by, created_at, updated_at`

func scanTemplate(row pgx.Row) (*model.TaskTemplate, error) {
	var t model.TaskTemplate
	err := row.Scan(
		&t.ID,
		&t.FamilyID,
		&t.Name,
		&t.Icon,
		&t.Points,
		&t.Category,
		&t.Difficulty,
		&t.EstimatedTime,
		&t.Recurrence,
		&t.IsActive,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) Create(ctx context.Context, familyID string, t *model.TaskTemplate) error {
	if err := requireFamily(familyID); err != nil {
		return err
	}
	t.FamilyID = familyID
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	r.logger.Debug("Inserting task template",
		zap.String("family_id", familyID),
		zap.String("name", t.Name),
		zap.String("recurrence", string(t.Recurrence)),
	)

	query := `
        INSERT INTO task_templates (id, family_id, name, icon, points, category, difficulty,
                                    estimated_time, recurrence, is_active, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		t.ID,
		t.FamilyID,
		t.Name,
		t.Icon,
		t.Points,
		t.Category,
		t.Difficulty,
		t.EstimatedTime,
		t.Recurrence,
		t.IsActive,
		t.CreatedBy,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert task template", zap.String("family_id", familyID), zap.Error(err))
		return persistErr("task_templates.create", err)
	}

	r.logger.Info("Task template created",
		zap.String("family_id", familyID),
		zap.String("template_id", t.ID),
	)
	return nil
}

func (r *TemplateRepository) Get(ctx context.Context, familyID, id string) (*model.TaskTemplate, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}
	query := `SELECT ` + templateColumns + ` FROM task_templates WHERE family_id = $1 AND id = $2`
	t, err := scanTemplate(r.db.QueryRow(ctx, query, familyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("task_templates.get", err)
	}
	return t, nil
}

func (r *TemplateRepository) ListActive(ctx context.Context, familyID string) ([]model.TaskTemplate, error) {
	return r.list(ctx, "task_templates.list_active", familyID, `AND is_active = TRUE`)
}

func (r *TemplateRepository) ListDaily(ctx context.Context, familyID string) ([]model.TaskTemplate, error) {
	return r.list(ctx, "task_templates.list_daily", familyID, `AND is_active = TRUE AND recurrence = 'daily'`)
}

func (r *TemplateRepository) ListAll(ctx context.Context, familyID string) ([]model.TaskTemplate, error) {
	return r.list(ctx, "task_templates.list_all", familyID, "")
}

func (r *TemplateRepository) list(ctx context.Context, op, familyID, filter string) ([]model.TaskTemplate, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}

	query := `
        SELECT ` + templateColumns + `
        FROM task_templates
        WHERE family_id = $1 ` + filter + `
        ORDER BY created_at DESC, id DESC
    `
	rows, err := r.db.Query(ctx, query, familyID)
	if err != nil {
		r.logger.Error("Failed to list task templates", zap.String("op", op), zap.Error(err))
		return nil, persistErr(op, err)
	}
	defer rows.Close()

	var templates []model.TaskTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			r.logger.Error("Failed to scan task template", zap.Error(err))
			return nil, persistErr(op, err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(op, err)
	}

	r.logger.Debug("Listed task templates",
		zap.String("op", op),
		zap.String("family_id", familyID),
		zap.Int("count", len(templates)),
	)
	return templates, nil
}

// Update applies u inside a transaction so validation sees the stored row.
func (r *TemplateRepository) Update(ctx context.Context, familyID, id string, u model.TemplateUpdate) (*model.TaskTemplate, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, persistErr("task_templates.update", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + templateColumns + ` FROM task_templates WHERE family_id = $1 AND id = $2 FOR UPDATE`
	t, err := scanTemplate(tx.QueryRow(ctx, query, familyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("task_templates.update", err)
	}
	if err := u.Apply(t); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
        UPDATE task_templates
        SET name = $3, icon = $4, points = $5, category = $6, difficulty = $7,
            estimated_time = $8, recurrence = $9, is_active = $10, updated_at = NOW()
        WHERE family_id = $1 AND id = $2
        RETURNING updated_at
    `,
		familyID, id,
		t.Name, t.Icon, t.Points, t.Category, t.Difficulty,
		t.EstimatedTime, t.Recurrence, t.IsActive,
	).Scan(&t.UpdatedAt)
	if err != nil {
		return nil, persistErr("task_templates.update", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("task_templates.update", err)
	}

	r.logger.Info("Task template updated",
		zap.String("family_id", familyID),
		zap.String("template_id", id),
	)
	return t, nil
}

func (r *TemplateRepository) ToggleActive(ctx context.Context, familyID, id string) (*model.TaskTemplate, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}

	query := `
        UPDATE task_templates
        SET is_active = NOT is_active, updated_at = NOW()
        WHERE family_id = $1 AND id = $2
        RETURNING ` + templateColumns
	t, err := scanTemplate(r.db.QueryRow(ctx, query, familyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to toggle task template", zap.String("template_id", id), zap.Error(err))
		return nil, persistErr("task_templates.toggle", err)
	}

	r.logger.Info("Task template toggled",
		zap.String("family_id", familyID),
		zap.String("template_id", id),
		zap.Bool("is_active", t.IsActive),
	)
	return t, nil
}

func (r *TemplateRepository) Deactivate(ctx context.Context, familyID, id string) error {
	if err := requireFamily(familyID); err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
        UPDATE task_templates
        SET is_active = FALSE, updated_at = NOW()
        WHERE family_id = $1 AND id = $2
    `, familyID, id)
	if err != nil {
		return persistErr("task_templates.deactivate", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	r.logger.Info("Task template deactivated",
		zap.String("family_id", familyID),
		zap.String("template_id", id),
	)
	return nil
}
