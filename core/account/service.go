package account

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ecampus-dev/aula/core"
)

var (
	// errors
	ErrNotFound      = errors.New("account not found")
	ErrAccountExists = errors.New("an account with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded []Account, exec ...core.DBExecutor) error
		CreateAccount(ctx context.Context, acct Account, exec ...core.DBExecutor) (Account, error)
		GetAccount(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Account, error)
		// QueryAccounts applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Name or Email.
		QueryAccounts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Account, error)
		UpdateAccount(ctx context.Context, acct Account, exec ...core.DBExecutor) (Account, error)
		UpdateOrCreateAccount(ctx context.Context, acct Account, exec ...core.DBExecutor) (Account, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) checkUniqueness(email string, excl ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excl); err != nil {
		if err == ErrAccountExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	now := time.Now().UTC()
	acct := Account{
		Name:      na.Name,
		Email:     na.Email,
		Role:      na.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	acct.SetActive(true)
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, err
	}
	return svc.repo.CreateAccount(ctx, acct)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByExternalID(ctx context.Context, extID string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ExternalID: extID})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error) {
	return svc.repo.QueryAccounts(ctx, filter, ordering)
}

func (svc *Service) SetLastLogin(ctx context.Context, acct Account) (Account, error) {
	acct.LastLogin = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acct)
}

// LogIn resolves a Google profile to a local Account, creating it on first
// login, and persists the fresh token bundle. Role is only assigned on
// creation; an account first seen on a roster keeps its roster role.
func (svc *Service) LogIn(ctx context.Context, profile GoogleProfile, access, refresh string, expiry time.Time) (Account, error) {
	now := time.Now().UTC()
	acct, err := svc.GetByExternalID(ctx, profile.ID)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return Account{}, errors.Wrap(err, "finding account by external id")
		}
		acct = Account{
			Name:       profile.Name,
			Email:      core.CleanString(profile.Email, true /* lower */),
			ExternalID: profile.ID,
			AvatarURL:  profile.Picture,
			Role:       RoleStudent,
			CreatedAt:  now,
		}
		acct.SetActive(true)
	}

	acct.AccessToken = access
	if refresh != "" { // Google omits it on repeat consent
		acct.RefreshToken = refresh
	}
	acct.TokenExpiry = expiry.UTC()
	acct.LastLogin = now
	acct.UpdatedAt = now
	return svc.repo.UpdateOrCreateAccount(ctx, acct)
}

// ResetPassword sets a new password for the account with the given email.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	acct, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = acct.SetPassword(pwd); err != nil {
		return err
	}
	acct.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateAccount(ctx, acct)
	return err
}
