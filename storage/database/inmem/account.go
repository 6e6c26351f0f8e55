package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckEmailUniqueness(_ context.Context, email string, excluded []account.Account, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, acct := range repo.db.accounts {
		if acct.Email != email {
			continue
		}
		if !isExcluded(acct.ID, excluded) {
			return account.ErrAccountExists
		}
	}
	return nil
}

func isExcluded(id string, excluded []account.Account) bool {
	for _, e := range excluded {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (repo *accountRepository) CreateAccount(_ context.Context, acct account.Account, _ ...core.DBExecutor) (account.Account, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	acct.ID = uuid.New().String()
	repo.db.accounts[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter, _ ...core.DBExecutor) (account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if acct, ok := repo.db.accounts[filter.ID]; ok {
			return *acct, nil
		}
		return account.Account{}, account.ErrNotFound
	}
	for _, acct := range repo.db.accounts {
		if filter.Email != "" && acct.Email == filter.Email {
			return *acct, nil
		}
		if filter.ExternalID != "" && acct.ExternalID == filter.ExternalID {
			return *acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) QueryAccounts(_ context.Context, filter *account.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	accts := make([]account.Account, 0, len(repo.db.accounts))
	for _, acct := range repo.db.accounts {
		if filter != nil && !filter.IsEmpty() && !matchAccount(acct, filter) {
			continue
		}
		accts = append(accts, *acct)
	}
	return accts, nil
}

func matchAccount(acct *account.Account, filter *account.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(acct.Name), s) && !strings.Contains(strings.ToLower(acct.Email), s) {
			return false
		}
	}
	if filter.Role != "" && acct.Role != filter.Role {
		return false
	}
	if filter.IsActive != nil && acct.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && acct.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && acct.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acct account.Account, _ ...core.DBExecutor) (account.Account, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.accounts[acct.ID]; !ok {
		return account.Account{}, account.ErrNotFound
	}
	repo.db.accounts[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) UpdateOrCreateAccount(ctx context.Context, acct account.Account, exec ...core.DBExecutor) (account.Account, error) {
	if acct.ID == "" {
		return repo.CreateAccount(ctx, acct, exec...)
	}
	return repo.UpdateAccount(ctx, acct, exec...)
}
