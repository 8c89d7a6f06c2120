package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/infra/store"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// ExecutionRepo implements trigger.ExecutionRepository.
type ExecutionRepo struct {
	db DB
}

func NewExecutionRepo(db DB) *ExecutionRepo {
	return &ExecutionRepo{db: db}
}

func (r *ExecutionRepo) Append(ctx context.Context, e *trigger.Execution) error {
	row, err := store.NewExecutionRow(e)
	if err != nil {
		return err
	}
	sql, args, err := store.InsertExecution(squirrel.Dollar, row).ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

func (r *ExecutionRepo) ListByTrigger(ctx context.Context, triggerID core.ID, limit int) ([]*trigger.Execution, error) {
	sql, args, err := store.SelectExecutions(squirrel.Dollar, triggerID.String(), limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	var rows []*store.ExecutionRow
	if err := pgxscan.Select(ctx, r.db, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("scanning executions: %w", err)
	}
	return store.ToExecutions(rows)
}

func (r *ExecutionRepo) ResolveRun(ctx context.Context, externalRunID string) (*trigger.RunLink, error) {
	sql, args, err := store.SelectRunLink(squirrel.Dollar, externalRunID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	var link trigger.RunLink
	if err := pgxscan.Get(ctx, r.db, &link, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, trigger.ErrRunNotFound
		}
		return nil, fmt.Errorf("resolving run: %w", err)
	}
	return &link, nil
}
