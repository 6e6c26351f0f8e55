package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ecampus-dev/aula/core"
	syncdom "github.com/ecampus-dev/aula/core/sync"
)

type auditRepository struct {
	db *DB
}

var _ syncdom.AuditRepository = (*auditRepository)(nil)

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateAttempt(_ context.Context, att syncdom.Attempt, _ ...core.DBExecutor) (syncdom.Attempt, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	att.ID = uuid.New().String()
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}
	repo.db.attempts = append(repo.db.attempts, att)
	return att, nil
}

func (repo *auditRepository) QueryAttempts(_ context.Context, filter *syncdom.AttemptFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]syncdom.Attempt, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	atts := make([]syncdom.Attempt, 0, len(repo.db.attempts))
	for _, att := range repo.db.attempts {
		if filter != nil {
			if filter.AccountID != "" && att.AccountID != filter.AccountID {
				continue
			}
			if filter.Resource != "" && att.Resource != filter.Resource {
				continue
			}
			if filter.Outcome != "" && att.Outcome != filter.Outcome {
				continue
			}
		}
		atts = append(atts, att)
	}
	for _, ord := range ordering {
		if ord.Field == "created_at" && !ord.Ascending {
			sort.SliceStable(atts, func(i, j int) bool { return atts[i].CreatedAt.After(atts[j].CreatedAt) })
		}
	}
	return atts, nil
}
