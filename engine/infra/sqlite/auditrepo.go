package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/triggers/engine/infra/store"
	"github.com/compozy/triggers/engine/job"
)

// AuditRepo implements job.AuditStore.
type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) AppendElementAudit(ctx context.Context, a *job.ElementAudit) error {
	q, args, err := store.InsertAudit(squirrel.Question, store.AuditValues(a)).ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build insert audit: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("sqlite: append element audit: %w", err)
	}
	return nil
}

