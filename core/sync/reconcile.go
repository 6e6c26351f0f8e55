package sync

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ecampus-dev/aula/core/account"
	"github.com/ecampus-dev/aula/core/course"
)

// End-of-day defaults applied when a due date arrives without a complete
// time-of-day.
const (
	defaultDueHour   = 23
	defaultDueMinute = 59
)

// Reconciler maps raw upstream records onto local entities. Course,
// coursework and submission records are upserted keyed on their external
// id with last-write-wins semantics; roster records additionally resolve
// identities against the account store.
type Reconciler struct {
	accountRepo account.Repository
	courseRepo  course.Repository
}

func NewReconciler(accountRepo account.Repository, courseRepo course.Repository) *Reconciler {
	return &Reconciler{accountRepo: accountRepo, courseRepo: courseRepo}
}

// Course upserts one course record. Local-only fields (cohort, is_active)
// are preserved by the repository on update.
func (r *Reconciler) Course(ctx context.Context, rec CourseRecord) (course.Course, error) {
	now := time.Now().UTC()
	crs := course.Course{
		ExternalID:      rec.ID,
		Name:            rec.Name,
		Description:     rec.Description,
		Section:         rec.Section,
		Room:            rec.Room,
		OwnerExternalID: rec.OwnerID,
		CreationTime:    rec.CreationTime,
		UpdateTime:      rec.UpdateTime,
		EnrollmentCode:  rec.EnrollmentCode,
		CourseState:     rec.CourseState,
		AlternateLink:   rec.AlternateLink,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	crs.SetActive(true)
	return r.courseRepo.UpsertCourse(ctx, crs)
}

// RosterEntry resolves the roster member to an Account (creating a
// placeholder keyed on the external id when absent) and get-or-creates the
// enrollment. The account role is assigned only on creation: an account
// already marked "student" is not rewritten to "teacher" by a later sync,
// and vice versa (first-seen-role-wins).
func (r *Reconciler) RosterEntry(ctx context.Context, crs course.Course, rec RosterRecord) error {
	acct, err := r.accountRepo.GetAccount(ctx, account.GetFilter{ExternalID: rec.UserID})
	if err != nil {
		if errors.Cause(err) != account.ErrNotFound {
			return errors.Wrap(err, "finding roster account")
		}
		now := time.Now().UTC()
		acct = account.Account{
			Name:       rec.FullName,
			Email:      rec.Email,
			ExternalID: rec.UserID,
			AvatarURL:  rec.PhotoURL,
			Role:       accountRole(rec.Role),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		acct.SetActive(true)
		if acct, err = r.accountRepo.CreateAccount(ctx, acct); err != nil {
			return errors.Wrap(err, "creating roster account")
		}
	}

	enr := course.Enrollment{
		CourseID:  crs.ID,
		AccountID: acct.ID,
		Role:      rec.Role,
		CreatedAt: time.Now().UTC(),
	}
	if _, _, err = r.courseRepo.GetOrCreateEnrollment(ctx, enr); err != nil {
		return errors.Wrap(err, "creating enrollment")
	}
	return nil
}

// CourseWork upserts one course work record, composing the optional due
// date/time pair into a single timestamp. A date without a complete
// time-of-day defaults the missing parts to 23:59.
func (r *Reconciler) CourseWork(ctx context.Context, crs course.Course, rec CourseWorkRecord) (course.CourseWork, error) {
	now := time.Now().UTC()
	cw := course.CourseWork{
		ExternalID:    rec.ID,
		CourseID:      crs.ID,
		Title:         rec.Title,
		Description:   rec.Description,
		State:         rec.State,
		AlternateLink: rec.AlternateLink,
		CreationTime:  rec.CreationTime,
		UpdateTime:    rec.UpdateTime,
		DueDate:       composeDueDate(rec.DueDate, rec.DueTime),
		MaxPoints:     null.Float64FromPtr(rec.MaxPoints),
		WorkType:      rec.WorkType,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return r.courseRepo.UpsertCourseWork(ctx, cw)
}

// Submission upserts one submission record. Identity resolution is
// lookup-only: a submission for an unknown account is dropped and reported
// as (false, nil), neither a success nor a failure.
func (r *Reconciler) Submission(ctx context.Context, cw course.CourseWork, rec SubmissionRecord) (bool, error) {
	acct, err := r.accountRepo.GetAccount(ctx, account.GetFilter{ExternalID: rec.UserID})
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding submission account")
	}

	now := time.Now().UTC()
	sub := course.Submission{
		ExternalID:    rec.ID,
		CourseWorkID:  cw.ID,
		AccountID:     acct.ID,
		State:         rec.State,
		Late:          rec.Late,
		DraftGrade:    null.Float64FromPtr(rec.DraftGrade),
		AssignedGrade: null.Float64FromPtr(rec.AssignedGrade),
		CreationTime:  rec.CreationTime,
		UpdateTime:    rec.UpdateTime,
		AlternateLink: rec.AlternateLink,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err = r.courseRepo.UpsertSubmission(ctx, sub); err != nil {
		return false, errors.Wrap(err, "upserting submission")
	}
	return true, nil
}

func composeDueDate(d *Date, t *TimeOfDay) null.Time {
	if d == nil {
		return null.Time{}
	}
	hour, minute := defaultDueHour, defaultDueMinute
	if t != nil {
		if t.Hours != nil {
			hour = *t.Hours
		}
		if t.Minutes != nil {
			minute = *t.Minutes
		}
	}
	return null.TimeFrom(time.Date(d.Year, time.Month(d.Month), d.Day, hour, minute, 0, 0, time.UTC))
}

func accountRole(enrollmentRole string) string {
	if enrollmentRole == course.EnrollmentRoleTeacher {
		return account.RoleTeacher
	}
	return account.RoleStudent
}
