package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/infra/store"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/georgysavva/scany/v2/sqlscan"
)

// TriggerRepo implements trigger.Repository on top of a SQLite *sql.DB.
type TriggerRepo struct{ db *sql.DB }

func NewTriggerRepo(db *sql.DB) *TriggerRepo { return &TriggerRepo{db: db} }

func (r *TriggerRepo) Create(ctx context.Context, t *trigger.Trigger) error {
	row, err := store.NewTriggerRow(t)
	if err != nil {
		return err
	}
	q, args, err := store.InsertTrigger(squirrel.Question, row).ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build insert trigger: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		if isUniqueViolation(err) {
			return trigger.ErrDuplicateSlug
		}
		return fmt.Errorf("sqlite: create trigger: %w", err)
	}
	return nil
}

func (r *TriggerRepo) getOne(ctx context.Context, sb squirrel.SelectBuilder) (*trigger.Trigger, error) {
	q, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build select trigger: %w", err)
	}
	var row store.TriggerRow
	if err := sqlscan.Get(ctx, r.db, &row, q, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, trigger.ErrTriggerNotFound
		}
		return nil, fmt.Errorf("sqlite: get trigger: %w", err)
	}
	return row.ToTrigger()
}

func (r *TriggerRepo) Get(ctx context.Context, id core.ID) (*trigger.Trigger, error) {
	return r.getOne(ctx, store.SelectTriggers(squirrel.Question).Where(squirrel.Eq{"id": id.String()}))
}

func (r *TriggerRepo) GetBySlug(ctx context.Context, workspaceID, slug string) (*trigger.Trigger, error) {
	return r.getOne(ctx, store.SelectTriggers(squirrel.Question).Where(squirrel.Eq{
		"workspace_id": workspaceID,
		"slug":         slug,
	}))
}

func (r *TriggerRepo) List(ctx context.Context, filter *trigger.Filter) ([]*trigger.Trigger, error) {
	q, args, err := store.ApplyFilter(store.SelectTriggers(squirrel.Question), filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list triggers: %w", err)
	}
	var rows []*store.TriggerRow
	if err := sqlscan.Select(ctx, r.db, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("sqlite: list triggers: %w", err)
	}
	return store.ToTriggers(rows)
}

func (r *TriggerRepo) ListActive(
	ctx context.Context,
	eventType trigger.EventType,
	workspaceID string,
) ([]*trigger.Trigger, error) {
	return r.List(ctx, store.ActiveFilter(eventType, workspaceID))
}

func (r *TriggerRepo) Update(ctx context.Context, t *trigger.Trigger) error {
	row, err := store.NewTriggerRow(t)
	if err != nil {
		return err
	}
	q, args, err := store.UpdateTrigger(squirrel.Question, row).ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build update trigger: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("sqlite: update trigger: %w", err)
	}
	return requireAffected(res, "update trigger")
}

func (r *TriggerRepo) SetActive(ctx context.Context, id core.ID, active bool) (*trigger.Trigger, error) {
	const q = `UPDATE triggers SET active = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, active, time.Now().UTC(), id.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: toggle trigger: %w", err)
	}
	if err := requireAffected(res, "toggle trigger"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *TriggerRepo) Delete(ctx context.Context, id core.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM triggers WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: delete trigger: %w", err)
	}
	return requireAffected(res, "delete trigger")
}

func (r *TriggerRepo) RecordFire(ctx context.Context, id core.ID, firedAt time.Time) error {
	const q = `UPDATE triggers SET fire_count = fire_count + 1, last_fired_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, firedAt.UTC(), id.String())
	if err != nil {
		return fmt.Errorf("sqlite: record fire: %w", err)
	}
	return requireAffected(res, "record fire")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected (%s): %w", op, err)
	}
	if n == 0 {
		return trigger.ErrTriggerNotFound
	}
	return nil
}
