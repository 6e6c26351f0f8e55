package course

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/ecampus-dev/aula/core"
)

// Enrollment roles as mirrored from Classroom rosters.
const (
	EnrollmentRoleStudent = "STUDENT"
	EnrollmentRoleTeacher = "TEACHER"
)

// Submission states as mirrored from Classroom.
const (
	SubmissionStateNew       = "NEW"
	SubmissionStateCreated   = "CREATED"
	SubmissionStateTurnedIn  = "TURNED_IN"
	SubmissionStateReturned  = "RETURNED"
	SubmissionStateReclaimed = "RECLAIMED_BY_STUDENT"
)

// Course mirrors one Classroom course. Cohort and IsActive are local-only;
// sync never deletes a course, it is deactivated instead.
type Course struct {
	ID              string    `json:"id"`
	ExternalID      string    `json:"external_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Section         string    `json:"section"`
	Room            string    `json:"room"`
	OwnerExternalID string    `json:"owner_external_id"`
	CreationTime    time.Time `json:"creation_time"` // external
	UpdateTime      time.Time `json:"update_time"`   // external
	EnrollmentCode  string    `json:"enrollment_code"`
	CourseState     string    `json:"course_state"` // free-text mirror of the source state
	AlternateLink   string    `json:"alternate_link"`

	Cohort   string `json:"cohort"`
	IsActive *bool  `json:"is_active"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (c *Course) SetActive(active bool) { c.IsActive = &active }

// Enrollment ties an Account to a Course with a roster role.
// Unique per (course, account); existence-only, never updated in place.
type Enrollment struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	AccountID string    `json:"account_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// CourseWork mirrors one Classroom course work item.
type CourseWork struct {
	ID            string       `json:"id"`
	ExternalID    string       `json:"external_id"`
	CourseID      string       `json:"course_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	State         string       `json:"state"`
	AlternateLink string       `json:"alternate_link"`
	CreationTime  time.Time    `json:"creation_time"` // external
	UpdateTime    time.Time    `json:"update_time"`   // external
	DueDate       null.Time    `json:"due_date"`
	MaxPoints     null.Float64 `json:"max_points"`
	WorkType      string       `json:"work_type"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Submission mirrors one student submission. Unique per
// (coursework, account) pair and on ExternalID.
type Submission struct {
	ID            string       `json:"id"`
	ExternalID    string       `json:"external_id"`
	CourseWorkID  string       `json:"coursework_id"`
	AccountID     string       `json:"account_id"`
	State         string       `json:"state"`
	Late          bool         `json:"late"`
	DraftGrade    null.Float64 `json:"draft_grade"`
	AssignedGrade null.Float64 `json:"assigned_grade"`
	CreationTime  time.Time    `json:"creation_time"` // external
	UpdateTime    time.Time    `json:"update_time"`   // external
	AlternateLink string       `json:"alternate_link"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Turned reports whether the submission was handed in.
func (s *Submission) Turned() bool { return s.State == SubmissionStateTurnedIn }

// Pending reports whether the submission is still outstanding.
func (s *Submission) Pending() bool {
	return s.State == SubmissionStateNew || s.State == SubmissionStateCreated
}

type GetFilter struct {
	ID         string
	ExternalID string
}

type QueryFilter struct {
	Cohort   string `query:"cohort"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Cohort = core.CleanString(qf.Cohort)
}

type EnrollmentFilter struct {
	CourseID  string
	AccountID string
	Role      string
	Cohort    string
}

type CourseWorkFilter struct {
	CourseID string
}

type SubmissionFilter struct {
	CourseWorkID string
	CourseID     string
	AccountID    string
}

// StatsFilter narrows dashboard aggregates.
type StatsFilter struct {
	Cohort    string `query:"cohort"`
	TeacherID string `query:"teacher_id"` // local account id, matched via TEACHER enrollments
}

// Stats is the dashboard aggregate payload.
type Stats struct {
	TotalCourses       int     `json:"total_courses"`
	TotalStudents      int     `json:"total_students"`
	TotalAssignments   int     `json:"total_assignments"`
	TotalSubmissions   int     `json:"total_submissions"`
	SubmissionsOnTime  int     `json:"submissions_on_time"`
	SubmissionsLate    int     `json:"submissions_late"`
	SubmissionsPending int     `json:"submissions_pending"`
	CompletionRate     float64 `json:"completion_rate"`
}

type ProgressFilter struct {
	CourseID string `query:"course_id"`
	Cohort   string `query:"cohort"`
}

// StudentProgress is one (student, course) progress row.
type StudentProgress struct {
	AccountID            string       `json:"student_id"`
	AccountName          string       `json:"student_name"`
	AccountEmail         string       `json:"student_email"`
	CourseID             string       `json:"course_id"`
	CourseName           string       `json:"course_name"`
	TotalAssignments     int          `json:"total_assignments"`
	CompletedAssignments int          `json:"completed_assignments"`
	LateAssignments      int          `json:"late_assignments"`
	CompletionPercentage float64      `json:"completion_percentage"`
	AverageGrade         null.Float64 `json:"average_grade"`
}
