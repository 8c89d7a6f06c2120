package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/triggers/engine/infra/store"
	"github.com/compozy/triggers/engine/job"
)

// AuditRepo implements job.AuditStore.
type AuditRepo struct {
	db DB
}

func NewAuditRepo(db DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) AppendElementAudit(ctx context.Context, a *job.ElementAudit) error {
	sql, args, err := store.InsertAudit(squirrel.Dollar, store.AuditValues(a)).ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("inserting element audit: %w", err)
	}
	return nil
}
