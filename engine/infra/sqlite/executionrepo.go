package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/infra/store"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/georgysavva/scany/v2/sqlscan"
)

// ExecutionRepo implements trigger.ExecutionRepository.
type ExecutionRepo struct{ db *sql.DB }

func NewExecutionRepo(db *sql.DB) *ExecutionRepo { return &ExecutionRepo{db: db} }

func (r *ExecutionRepo) Append(ctx context.Context, e *trigger.Execution) error {
	row, err := store.NewExecutionRow(e)
	if err != nil {
		return err
	}
	row.CreatedAt = row.CreatedAt.UTC()
	q, args, err := store.InsertExecution(squirrel.Question, row).ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build insert execution: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("sqlite: append execution: %w", err)
	}
	return nil
}

func (r *ExecutionRepo) ListByTrigger(ctx context.Context, triggerID core.ID, limit int) ([]*trigger.Execution, error) {
	q, args, err := store.SelectExecutions(squirrel.Question, triggerID.String(), limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list executions: %w", err)
	}
	var rows []*store.ExecutionRow
	if err := sqlscan.Select(ctx, r.db, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("sqlite: list executions: %w", err)
	}
	return store.ToExecutions(rows)
}

func (r *ExecutionRepo) ResolveRun(ctx context.Context, externalRunID string) (*trigger.RunLink, error) {
	q, args, err := store.SelectRunLink(squirrel.Question, externalRunID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build resolve run: %w", err)
	}
	var link trigger.RunLink
	if err := sqlscan.Get(ctx, r.db, &link, q, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, trigger.ErrRunNotFound
		}
		return nil, fmt.Errorf("sqlite: resolve run: %w", err)
	}
	return &link, nil
}
