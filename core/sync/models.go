package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/ecampus-dev/aula/core"
)

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeError   = "error"
)

// Audited resource types.
const (
	ResourceCourses     = "courses"
	ResourceRoster      = "roster"
	ResourceCourseWork  = "coursework"
	ResourceSubmissions = "submissions"
	ResourceFull        = "full"
)

// Attempt is one append-only audit record of a sync phase outcome.
// Never mutated or deleted.
type Attempt struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Resource  string    `json:"resource"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type AttemptFilter struct {
	AccountID string `query:"account_id"`
	Resource  string `query:"resource"`
	Outcome   string `query:"outcome"`
}

// AuditRepository is the append-only write sink for sync attempts.
type AuditRepository interface {
	CreateAttempt(ctx context.Context, att Attempt, exec ...core.DBExecutor) (Attempt, error)
	QueryAttempts(ctx context.Context, filter *AttemptFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Attempt, error)
}

// Raw upstream records, timestamps already normalized to UTC.

type CourseRecord struct {
	ID             string
	Name           string
	Description    string
	Section        string
	Room           string
	OwnerID        string
	CreationTime   time.Time
	UpdateTime     time.Time
	EnrollmentCode string
	CourseState    string
	AlternateLink  string
}

// RosterRecord is one student or teacher listing entry, tagged with its
// enrollment role.
type RosterRecord struct {
	UserID   string
	Email    string
	FullName string
	PhotoURL string
	Role     string // course.EnrollmentRoleStudent | course.EnrollmentRoleTeacher
}

// Date is a year/month/day triple as sent by the upstream.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// TimeOfDay carries optional hour/minute parts; the upstream omits zero
// fields, and absent parts default to end-of-day during reconciliation.
type TimeOfDay struct {
	Hours   *int `json:"hours"`
	Minutes *int `json:"minutes"`
}

type CourseWorkRecord struct {
	ID            string
	Title         string
	Description   string
	State         string
	AlternateLink string
	CreationTime  time.Time
	UpdateTime    time.Time
	DueDate       *Date
	DueTime       *TimeOfDay
	MaxPoints     *float64
	WorkType      string
}

type SubmissionRecord struct {
	ID            string
	UserID        string
	CreationTime  time.Time
	UpdateTime    time.Time
	State         string
	Late          bool
	DraftGrade    *float64
	AssignedGrade *float64
	AlternateLink string
}

type (
	CourseFunc     func(CourseRecord) error
	RosterFunc     func(RosterRecord) error
	CourseWorkFunc func(CourseWorkRecord) error
	SubmissionFunc func(SubmissionRecord) error

	// Client is a read-only accessor over the vendor API. Each call walks
	// every page and invokes fn per record; callers never see page tokens.
	// Calls are restartable and perform no retries; retry policy belongs
	// to the orchestrator.
	Client interface {
		Courses(ctx context.Context, fn CourseFunc) error
		Roster(ctx context.Context, courseExtID string, fn RosterFunc) error
		CourseWork(ctx context.Context, courseExtID string, fn CourseWorkFunc) error
		Submissions(ctx context.Context, courseExtID, courseWorkExtID string, fn SubmissionFunc) error
	}
)

// UpstreamError is a non-success vendor API response.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// MalformedRecordError flags an upstream record missing an expected field.
type MalformedRecordError struct {
	Resource string
	Field    string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: missing %s", e.Resource, e.Field)
}
