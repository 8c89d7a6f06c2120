package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/infra/store"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// TriggerRepo implements trigger.Repository.
type TriggerRepo struct {
	db DB
}

func NewTriggerRepo(db DB) *TriggerRepo {
	return &TriggerRepo{db: db}
}

func (r *TriggerRepo) Create(ctx context.Context, t *trigger.Trigger) error {
	row, err := store.NewTriggerRow(t)
	if err != nil {
		return err
	}
	sql, args, err := store.InsertTrigger(squirrel.Dollar, row).ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return trigger.ErrDuplicateSlug
		}
		return fmt.Errorf("inserting trigger: %w", err)
	}
	return nil
}

func (r *TriggerRepo) getOne(ctx context.Context, sb squirrel.SelectBuilder) (*trigger.Trigger, error) {
	sql, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	var row store.TriggerRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, trigger.ErrTriggerNotFound
		}
		return nil, fmt.Errorf("scanning trigger: %w", err)
	}
	return row.ToTrigger()
}

func (r *TriggerRepo) Get(ctx context.Context, id core.ID) (*trigger.Trigger, error) {
	return r.getOne(ctx, store.SelectTriggers(squirrel.Dollar).Where(squirrel.Eq{"id": id.String()}))
}

func (r *TriggerRepo) GetBySlug(ctx context.Context, workspaceID, slug string) (*trigger.Trigger, error) {
	return r.getOne(ctx, store.SelectTriggers(squirrel.Dollar).Where(squirrel.Eq{
		"workspace_id": workspaceID,
		"slug":         slug,
	}))
}

func (r *TriggerRepo) List(ctx context.Context, filter *trigger.Filter) ([]*trigger.Trigger, error) {
	sql, args, err := store.ApplyFilter(store.SelectTriggers(squirrel.Dollar), filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	var rows []*store.TriggerRow
	if err := pgxscan.Select(ctx, r.db, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("scanning triggers: %w", err)
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
	sql, args, err := store.UpdateTrigger(squirrel.Dollar, row).ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("updating trigger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trigger.ErrTriggerNotFound
	}
	return nil
}

func (r *TriggerRepo) SetActive(ctx context.Context, id core.ID, active bool) (*trigger.Trigger, error) {
	const query = `UPDATE triggers SET active = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, active, time.Now().UTC(), id.String())
	if err != nil {
		return nil, fmt.Errorf("toggling trigger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, trigger.ErrTriggerNotFound
	}
	return r.Get(ctx, id)
}

func (r *TriggerRepo) Delete(ctx context.Context, id core.ID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM triggers WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("deleting trigger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trigger.ErrTriggerNotFound
	}
	return nil
}

// RecordFire bumps the fire statistics in one statement.
func (r *TriggerRepo) RecordFire(ctx context.Context, id core.ID, firedAt time.Time) error {
	const query = `UPDATE triggers SET fire_count = fire_count + 1, last_fired_at = $1 WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, firedAt, id.String())
	if err != nil {
		return fmt.Errorf("recording fire: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trigger.ErrTriggerNotFound
	}
	return nil
}
