package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecampus-dev/aula/core"
)

// Roles. Role is assigned once: on first login or on first roster
// appearance. A later sync never overwrites it (first-seen-role-wins).
const (
	RoleStudent     = "student"
	RoleTeacher     = "teacher"
	RoleCoordinator = "coordinator"
)

var AllRoles = []string{RoleStudent, RoleTeacher, RoleCoordinator}

// Account unifies local auth and Google identity. Students and teachers
// are mirrored from Classroom rosters; coordinators are created via the
// admin CLI and may log in with a password.
type Account struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ExternalID string `json:"external_id"` // Google user id
	AvatarURL  string `json:"avatar_url"`
	Role       string `json:"role"`
	IsActive   *bool  `json:"is_active"`

	PasswordHash []byte `json:"-"`

	// OAuth token bundle; mutated on every login and on refresh.
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	LastLogin time.Time `json:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) SetActive(active bool) {
	a.IsActive = &active
}

func (a *Account) Active() bool {
	return a.IsActive != nil && *a.IsActive
}

func (a *Account) IsStudent() bool     { return a.Role == RoleStudent }
func (a *Account) IsTeacher() bool     { return a.Role == RoleTeacher }
func (a *Account) IsCoordinator() bool { return a.Role == RoleCoordinator }

// HasCredentials reports whether any OAuth token bundle is stored.
func (a *Account) HasCredentials() bool {
	return a.AccessToken != "" || a.RefreshToken != ""
}

// NewAccount contains information needed to create a new Account locally
// (admin CLI / coordinator registration). Roster and OAuth-created accounts
// bypass it.
type NewAccount struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"omitempty,knownrole"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Validate(validate *validator.Validate, svc *Service) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	if na.Role == "" {
		na.Role = RoleCoordinator
	}

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.checkUniqueness(na.Email)
}

// GoogleProfile is the subset of the userinfo payload the OAuth callback
// resolves identities with.
type GoogleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type GetFilter struct {
	ID         string
	Email      string
	ExternalID string
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
