package repository

import (
	"context"
	"errors"

	mqcontracts "familytasks/contracts/mq"
	"familytasks/internal/model"
	"familytasks/pkg/outbox"
	"familytasks/pkg/trace"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

type InstanceRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewInstanceRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *InstanceRepository {
	return &InstanceRepository{
		db:         db,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

const instanceColumns = `id, family_id, template_id, assigned_date, status, completed_by,
       completed_by_name, completed_at, points_earned, created_at, updated_at`

func scanInstance(row pgx.Row) (*model.TaskInstance, error) {
	var i model.TaskInstance
	err := row.Scan(
		&i.ID,
		&i.FamilyID,
		&i.TemplateID,
		&i.AssignedDate,
		&i.Status,
		&i.CompletedBy,
		&i.CompletedByName,
		&i.CompletedAt,
		&i.PointsEarned,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *InstanceRepository) Get(ctx context.Context, familyID, id string) (*model.TaskInstance, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}
	query := `SELECT ` + instanceColumns + ` FROM task_instances WHERE family_id = $1 AND id = $2`
	i, err := scanInstance(r.db.QueryRow(ctx, query, familyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("task_instances.get", err)
	}
	return i, nil
}

func (r *InstanceRepository) ListForDate(ctx context.Context, familyID, date string) ([]model.TaskInstance, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}

	query := `
        SELECT ` + instanceColumns + `
        FROM task_instances
        WHERE family_id = $1 AND assigned_date = $2
        ORDER BY created_at DESC, id DESC
    `
	rows, err := r.db.Query(ctx, query, familyID, date)
	if err != nil {
		r.logger.Error("Failed to list task instances", zap.String("family_id", familyID), zap.Error(err))
		return nil, persistErr("task_instances.list_for_date", err)
	}
	defer rows.Close()

	var instances []model.TaskInstance
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, persistErr("task_instances.list_for_date", err)
		}
		instances = append(instances, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("task_instances.list_for_date", err)
	}
	return instances, nil
}

func (r *InstanceRepository) CreateFromTemplate(ctx context.Context, familyID string, tpl *model.TaskTemplate, date string) (*model.TaskInstance, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}
	if err := model.ValidateDate(date); err != nil {
		return nil, err
	}

	inst := model.NewPendingInstance(tpl, date)
	inst.ID = uuid.NewString()
	inst.FamilyID = familyID

	err := r.db.QueryRow(ctx, `
        INSERT INTO task_instances (id, family_id, template_id, assigned_date, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at
    `, inst.ID, inst.FamilyID, inst.TemplateID, inst.AssignedDate, inst.Status).
		Scan(&inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateInstance
		}
		r.logger.Error("Failed to insert task instance",
			zap.String("family_id", familyID),
			zap.String("template_id", tpl.ID),
			zap.Error(err),
		)
		return nil, persistErr("task_instances.create", err)
	}
	return inst, nil
}

// Complete sets every completion field in one statement. A nil PointsEarned takes the
// template's points.
func (r *InstanceRepository) Complete(ctx context.Context, familyID, id string, req model.CompleteRequest) (*model.TaskInstance, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := `
        UPDATE task_instances i
        SET status = 'completed',
            completed_by = $3,
            completed_by_name = $4,
            completed_at = NOW(),
            points_earned = COALESCE($5::int,
                (SELECT t.points FROM task_templates t WHERE t.family_id = i.family_id AND t.id = i.template_id),
                0),
            updated_at = NOW()
        WHERE i.family_id = $1 AND i.id = $2
        RETURNING ` + instanceColumns
	inst, err := scanInstance(r.db.QueryRow(ctx, query, familyID, id, req.CompletedBy, req.CompletedByName, req.PointsEarned))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to complete task instance", zap.String("instance_id", id), zap.Error(err))
		return nil, persistErr("task_instances.complete", err)
	}

	r.logger.Info("Task instance completed",
		zap.String("family_id", familyID),
		zap.String("instance_id", id),
		zap.String("completed_by", req.CompletedBy),
	)
	return inst, nil
}

func (r *InstanceRepository) Uncomplete(ctx context.Context, familyID, id string) (*model.TaskInstance, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}

	query := `
        UPDATE task_instances
        SET status = 'pending', completed_by = NULL, completed_by_name = NULL,
            completed_at = NULL, points_earned = NULL, updated_at = NOW()
        WHERE family_id = $1 AND id = $2
        RETURNING ` + instanceColumns
	inst, err := scanInstance(r.db.QueryRow(ctx, query, familyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("task_instances.uncomplete", err)
	}

	r.logger.Info("Task instance reopened",
		zap.String("family_id", familyID),
		zap.String("instance_id", id),
	)
	return inst, nil
}

// CommitDaily inserts the staged instances, the audit row and the outbox event in one
// transaction. ON CONFLICT DO NOTHING lets a concurrent writer win a key silently; if it
// won all of them the transaction is rolled back.
func (r *InstanceRepository) CommitDaily(ctx context.Context, familyID string, batch DailyBatch) ([]model.TaskInstance, error) {
	if err := requireFamily(familyID); err != nil {
		return nil, err
	}
	if len(batch.Instances) == 0 {
		return nil, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, persistErr("daily.begin", err)
	}
	defer tx.Rollback(ctx)

	created := make([]model.TaskInstance, 0, len(batch.Instances))
	for _, staged := range batch.Instances {
		inst := *staged
		inst.ID = uuid.NewString()
		inst.FamilyID = familyID
		inst.AssignedDate = batch.Date
		inst.Status = model.StatusPending

		err := tx.QueryRow(ctx, `
            INSERT INTO task_instances (id, family_id, template_id, assigned_date, status)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (family_id, template_id, assigned_date) DO NOTHING
            RETURNING created_at, updated_at
        `, inst.ID, inst.FamilyID, inst.TemplateID, inst.AssignedDate, inst.Status).
			Scan(&inst.CreatedAt, &inst.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Instance already present, skipped",
				zap.String("family_id", familyID),
				zap.String("template_id", inst.TemplateID),
				zap.String("date", batch.Date),
			)
			continue
		}
		if err != nil {
			return nil, persistErr("daily.insert_instance", err)
		}
		created = append(created, inst)
	}

	if len(created) == 0 {
		return nil, nil
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO daily_checks (id, family_id, date, templates_checked, instances_created)
        VALUES ($1, $2, $3, $4, $5)
    `, uuid.NewString(), familyID, batch.Date, batch.TemplatesChecked, len(created))
	if err != nil {
		return nil, persistErr("daily.insert_check", err)
	}

	ids := make([]string, 0, len(created))
	for _, inst := range created {
		ids = append(ids, inst.ID)
	}
	payload := mqcontracts.DailyTasksGeneratedPayload{
		FamilyID:    familyID,
		Date:        batch.Date,
		Created:     len(created),
		InstanceIDs: ids,
		TraceID:     trace.FromContext(ctx),
	}
	if _, err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "family", familyID,
		mqcontracts.RoutingKeyDailyTasksGenerated, payload); err != nil {
		return nil, persistErr("daily.insert_event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("daily.commit", err)
	}

	r.logger.Info("Daily tasks committed",
		zap.String("family_id", familyID),
		zap.String("date", batch.Date),
		zap.Int("created", len(created)),
		zap.Int("templates_checked", len(batch.TemplatesChecked)),
	)
	return created, nil
}
