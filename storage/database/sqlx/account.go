package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
)

const accountColumns = `id, name, email, external_id, avatar_url, role, is_active, password_hash,
	access_token, refresh_token, token_expiry, created_at, updated_at, last_login`

type accountRow struct {
	ID           string      `db:"id"`
	Name         null.String `db:"name"`
	Email        null.String `db:"email"`
	ExternalID   null.String `db:"external_id"`
	AvatarURL    null.String `db:"avatar_url"`
	Role         null.String `db:"role"`
	IsActive     null.Bool   `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	AccessToken  null.String `db:"access_token"`
	RefreshToken null.String `db:"refresh_token"`
	TokenExpiry  null.Time   `db:"token_expiry"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type accountRepository struct {
	exec core.DBExecutor
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(exec core.DBExecutor) *accountRepository {
	return &accountRepository{exec: exec}
}

func (repo accountRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo accountRepository) pack(acct account.Account) accountRow {
	return accountRow{
		ID:           acct.ID,
		Name:         null.NewString(acct.Name, acct.Name != ""),
		Email:        null.NewString(acct.Email, acct.Email != ""),
		ExternalID:   null.NewString(acct.ExternalID, acct.ExternalID != ""),
		AvatarURL:    null.NewString(acct.AvatarURL, acct.AvatarURL != ""),
		Role:         null.NewString(acct.Role, acct.Role != ""),
		IsActive:     null.BoolFromPtr(acct.IsActive),
		PasswordHash: null.BytesFrom(acct.PasswordHash),
		AccessToken:  null.NewString(acct.AccessToken, acct.AccessToken != ""),
		RefreshToken: null.NewString(acct.RefreshToken, acct.RefreshToken != ""),
		TokenExpiry:  null.NewTime(acct.TokenExpiry.UTC(), !acct.TokenExpiry.IsZero()),
		CreatedAt:    null.NewTime(acct.CreatedAt.UTC(), !acct.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(acct.UpdatedAt.UTC(), !acct.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(acct.LastLogin.UTC(), !acct.LastLogin.IsZero()),
	}
}

func (repo accountRepository) unpack(row accountRow) account.Account {
	return account.Account{
		ID:           row.ID,
		Name:         row.Name.String,
		Email:        row.Email.String,
		ExternalID:   row.ExternalID.String,
		AvatarURL:    row.AvatarURL.String,
		Role:         row.Role.String,
		IsActive:     row.IsActive.Ptr(),
		PasswordHash: row.PasswordHash.Bytes,
		AccessToken:  row.AccessToken.String,
		RefreshToken: row.RefreshToken.String,
		TokenExpiry:  row.TokenExpiry.Time,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		LastLogin:    row.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to account.ErrNotFound
func (repo accountRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return account.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo accountRepository) selectAccounts(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) ([]account.Account, error) {
	rows, err := exe.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rws []accountRow
	if err = sqlx.StructScan(rows, &rws); err != nil {
		return nil, err
	}
	accts := make([]account.Account, 0, len(rws))
	for _, row := range rws {
		accts = append(accts, repo.unpack(row))
	}
	return accts, nil
}

func (repo accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded []account.Account, exec ...core.DBExecutor) error {
	query := `SELECT COUNT(*) FROM "account" WHERE email = $1`
	args := []interface{}{email}
	if len(excluded) > 0 {
		marks := make([]string, 0, len(excluded))
		for _, acct := range excluded {
			args = append(args, acct.ID)
			marks = append(marks, fmt.Sprintf("$%d", len(args)))
		}
		query += fmt.Sprintf(" AND id NOT IN (%s)", strings.Join(marks, ", "))
	}

	var cnt int
	if err := repo.getExec(exec).QueryRowContext(ctx, query, args...).Scan(&cnt); err != nil {
		return errors.Wrap(err, "checking account uniqueness")
	}
	if cnt > 0 {
		return account.ErrAccountExists
	}
	return nil
}

func (repo accountRepository) CreateAccount(ctx context.Context, acct account.Account, exec ...core.DBExecutor) (account.Account, error) {
	acct.ID = uuid.New().String()
	row := repo.pack(acct)

	query := `INSERT INTO "account" (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		row.ID, row.Name, row.Email, row.ExternalID, row.AvatarURL, row.Role, row.IsActive, row.PasswordHash,
		row.AccessToken, row.RefreshToken, row.TokenExpiry, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acct, nil
}

func (repo accountRepository) GetAccount(ctx context.Context, filter account.GetFilter, exec ...core.DBExecutor) (account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM "account" WHERE `
	var arg interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return account.Account{}, account.ErrNotFound
		}
		query += "id = $1"
		arg = filter.ID
	case filter.Email != "":
		query += "email = $1"
		arg = filter.Email
	case filter.ExternalID != "":
		query += "external_id = $1"
		arg = filter.ExternalID
	default:
		return account.Account{}, account.ErrNotFound
	}

	accts, err := repo.selectAccounts(ctx, repo.getExec(exec), query+" LIMIT 1", arg)
	if err != nil {
		return account.Account{}, repo.trapNoRowsErr(err, "finding account")
	}
	if len(accts) == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return accts[0], nil
}

func (repo accountRepository) QueryAccounts(ctx context.Context, filter *account.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM "account"`
	var clauses []string
	var args []interface{}

	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
		}
		if filter.Role != "" {
			args = append(args, filter.Role)
			clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			clauses = append(clauses, fmt.Sprintf("is_active = $%d", len(args)))
		}
		if !filter.CreatedFrom.IsZero() {
			args = append(args, filter.CreatedFrom.UTC())
			clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
		}
		if !filter.CreatedTo.IsZero() {
			args = append(args, filter.CreatedTo.UTC())
			clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
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

	accts, err := repo.selectAccounts(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	return accts, nil
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acct account.Account, exec ...core.DBExecutor) (account.Account, error) {
	row := repo.pack(acct)
	query := `UPDATE "account" SET
		name = $2, email = $3, external_id = $4, avatar_url = $5, role = $6, is_active = $7,
		password_hash = $8, access_token = $9, refresh_token = $10, token_expiry = $11,
		created_at = $12, updated_at = $13, last_login = $14
		WHERE id = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, query,
		row.ID, row.Name, row.Email, row.ExternalID, row.AvatarURL, row.Role, row.IsActive,
		row.PasswordHash, row.AccessToken, row.RefreshToken, row.TokenExpiry,
		row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acct, nil
}

func (repo accountRepository) UpdateOrCreateAccount(ctx context.Context, acct account.Account, exec ...core.DBExecutor) (account.Account, error) {
	if acct.ID == "" {
		return repo.CreateAccount(ctx, acct, exec...)
	}
	return repo.UpdateAccount(ctx, acct, exec...)
}
