package testutil

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
	"github.com/ecampus-dev/aula/core/course"
)

// Logger is a plain stdout logger for tests.
type Logger struct{}

var _ core.Logger = (*Logger)(nil)

func (l Logger) Debug(msg string, args ...interface{}) { l.print("DEBUG", msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.print("FATAL", msg, args) }

func (l Logger) print(lvl, msg string, args []interface{}) {
	log.Printf("%s : %s", lvl, msg)
	for _, arg := range args {
		log.Printf("%+v", arg)
	}
}

func CreateAccount(
	t *testing.T,
	repo account.Repository,
	name, email, extID, role, pwd string,
	isActive bool,
	createdAt ...time.Time,
) account.Account {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	acct := account.Account{
		Name:       name,
		Email:      email,
		ExternalID: extID,
		Role:       role,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	acct.SetActive(isActive)
	if pwd != "" {
		if err := acct.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acct, err := repo.CreateAccount(context.Background(), acct)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acct
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	name, extID, cohort string,
	isActive bool,
) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs := course.Course{
		ExternalID: extID,
		Name:       name,
		Cohort:     cohort,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	crs.SetActive(true)
	crs, err := repo.UpsertCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	if !isActive {
		crs.SetActive(false)
		if crs, err = repo.UpdateCourse(context.Background(), crs); err != nil {
			t.Fatalf("CreateCourse() failed: %v", err)
		}
	}
	return crs
}

func CreateEnrollment(
	t *testing.T,
	repo course.Repository,
	crs course.Course,
	acct account.Account,
	role string,
) course.Enrollment {
	t.Helper()

	enr := course.Enrollment{
		CourseID:  crs.ID,
		AccountID: acct.ID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	enr, _, err := repo.GetOrCreateEnrollment(context.Background(), enr)
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

func CreateCourseWork(
	t *testing.T,
	repo course.Repository,
	crs course.Course,
	title, extID string,
) course.CourseWork {
	t.Helper()

	now := time.Now().UTC()
	cw := course.CourseWork{
		ExternalID: extID,
		CourseID:   crs.ID,
		Title:      title,
		State:      "PUBLISHED",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	cw, err := repo.UpsertCourseWork(context.Background(), cw)
	if err != nil {
		t.Fatalf("CreateCourseWork() failed: %v", err)
	}
	return cw
}

func CreateSubmission(
	t *testing.T,
	repo course.Repository,
	cw course.CourseWork,
	acct account.Account,
	extID, state string,
	late bool,
) course.Submission {
	t.Helper()

	now := time.Now().UTC()
	sub := course.Submission{
		ExternalID:   extID,
		CourseWorkID: cw.ID,
		AccountID:    acct.ID,
		State:        state,
		Late:         late,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	sub, err := repo.UpsertSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}
