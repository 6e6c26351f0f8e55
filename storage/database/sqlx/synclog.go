package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ecampus-dev/aula/core"
	syncdom "github.com/ecampus-dev/aula/core/sync"
)

type attemptRow struct {
	ID        string      `db:"id"`
	AccountID null.String `db:"account_id"`
	Resource  null.String `db:"resource"`
	Outcome   null.String `db:"outcome"`
	Message   null.String `db:"message"`
	ItemCount null.Int    `db:"item_count"`
	CreatedAt null.Time   `db:"created_at"`
}

type auditRepository struct {
	exec core.DBExecutor
}

var _ syncdom.AuditRepository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(exec core.DBExecutor) *auditRepository {
	return &auditRepository{exec: exec}
}

func (repo auditRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo auditRepository) CreateAttempt(ctx context.Context, att syncdom.Attempt, exec ...core.DBExecutor) (syncdom.Attempt, error) {
	att.ID = uuid.New().String()
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO "sync_log" (id, account_id, resource, outcome, message, item_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		att.ID,
		null.NewString(att.AccountID, att.AccountID != ""),
		null.NewString(att.Resource, att.Resource != ""),
		null.NewString(att.Outcome, att.Outcome != ""),
		null.NewString(att.Message, att.Message != ""),
		att.ItemCount, att.CreatedAt.UTC(),
	)
	if err != nil {
		return syncdom.Attempt{}, errors.Wrap(err, "inserting sync attempt")
	}
	return att, nil
}

func (repo auditRepository) QueryAttempts(ctx context.Context, filter *syncdom.AttemptFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]syncdom.Attempt, error) {
	query := `SELECT id, account_id, resource, outcome, message, item_count, created_at FROM "sync_log"`
	var clauses []string
	var args []interface{}

	if filter != nil {
		if filter.AccountID != "" {
			args = append(args, filter.AccountID)
			clauses = append(clauses, fmt.Sprintf("account_id = $%d", len(args)))
		}
		if filter.Resource != "" {
			args = append(args, filter.Resource)
			clauses = append(clauses, fmt.Sprintf("resource = $%d", len(args)))
		}
		if filter.Outcome != "" {
			args = append(args, filter.Outcome)
			clauses = append(clauses, fmt.Sprintf("outcome = $%d", len(args)))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	rows, err := repo.getExec(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying sync attempts")
	}
	defer func() { _ = rows.Close() }()

	var rws []attemptRow
	if err = sqlx.StructScan(rows, &rws); err != nil {
		return nil, errors.Wrap(err, "querying sync attempts")
	}
	atts := make([]syncdom.Attempt, 0, len(rws))
	for _, row := range rws {
		atts = append(atts, syncdom.Attempt{
			ID:        row.ID,
			AccountID: row.AccountID.String,
			Resource:  row.Resource.String,
			Outcome:   row.Outcome.String,
			Message:   row.Message.String,
			ItemCount: row.ItemCount.Int,
			CreatedAt: row.CreatedAt.Time,
		})
	}
	return atts, nil
}
