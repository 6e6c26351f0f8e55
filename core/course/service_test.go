package course_test

import (
	"context"
	"testing"

	"github.com/ecampus-dev/aula/core/account"
	"github.com/ecampus-dev/aula/core/course"
	inmemdb "github.com/ecampus-dev/aula/storage/database/inmem"
	testutil "github.com/ecampus-dev/aula/tests"
)

func setup(t *testing.T) (*course.Service, account.Repository, course.Repository) {
	t.Helper()
	db := inmemdb.NewDB()
	return course.NewService(inmemdb.NewCourseRepository(db)),
		inmemdb.NewAccountRepository(db),
		inmemdb.NewCourseRepository(db)
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, acctRepo, courseRepo := setup(t)

	algebra := testutil.CreateCourse(t, courseRepo, "Algebra", "c-1", "2026A", true)
	physics := testutil.CreateCourse(t, courseRepo, "Physics", "c-2", "2026B", true)
	testutil.CreateCourse(t, courseRepo, "Retired", "c-3", "2026A", false)

	teacher := testutil.CreateAccount(t, acctRepo, "T", "t@test.cd", "u-t", account.RoleTeacher, "", true)
	s1 := testutil.CreateAccount(t, acctRepo, "S1", "s1@test.cd", "u-1", account.RoleStudent, "", true)
	s2 := testutil.CreateAccount(t, acctRepo, "S2", "s2@test.cd", "u-2", account.RoleStudent, "", true)

	testutil.CreateEnrollment(t, courseRepo, algebra, teacher, course.EnrollmentRoleTeacher)
	testutil.CreateEnrollment(t, courseRepo, algebra, s1, course.EnrollmentRoleStudent)
	testutil.CreateEnrollment(t, courseRepo, algebra, s2, course.EnrollmentRoleStudent)
	testutil.CreateEnrollment(t, courseRepo, physics, s1, course.EnrollmentRoleStudent)

	hw1 := testutil.CreateCourseWork(t, courseRepo, algebra, "HW 1", "cw-1")
	hw2 := testutil.CreateCourseWork(t, courseRepo, algebra, "HW 2", "cw-2")
	lab := testutil.CreateCourseWork(t, courseRepo, physics, "Lab", "cw-3")

	testutil.CreateSubmission(t, courseRepo, hw1, s1, "s-1", course.SubmissionStateTurnedIn, false)
	testutil.CreateSubmission(t, courseRepo, hw1, s2, "s-2", course.SubmissionStateTurnedIn, true)
	testutil.CreateSubmission(t, courseRepo, hw2, s1, "s-3", course.SubmissionStateTurnedIn, false)
	testutil.CreateSubmission(t, courseRepo, hw2, s2, "s-4", course.SubmissionStateNew, false)
	testutil.CreateSubmission(t, courseRepo, lab, s1, "s-5", course.SubmissionStateCreated, false)

	stats, err := svc.Stats(ctx, course.StatsFilter{})
	if err != nil {
		t.Fatalf("Stats(): %v", err)
	}
	want := course.Stats{
		TotalCourses:       2, // inactive course excluded
		TotalStudents:      2,
		TotalAssignments:   3,
		TotalSubmissions:   5,
		SubmissionsOnTime:  2,
		SubmissionsLate:    1,
		SubmissionsPending: 2,
		CompletionRate:     60, // (2 + 1) / 5
	}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}

	// cohort scoping
	stats, err = svc.Stats(ctx, course.StatsFilter{Cohort: "2026A"})
	if err != nil {
		t.Fatalf("Stats(): %v", err)
	}
	if stats.TotalCourses != 1 || stats.TotalAssignments != 2 || stats.TotalSubmissions != 4 {
		t.Errorf("cohort stats = %+v", stats)
	}
	if stats.CompletionRate != 75 { // 3 of 4
		t.Errorf("CompletionRate = %v, want 75", stats.CompletionRate)
	}

	// teacher scoping matches TEACHER enrollments only
	stats, err = svc.Stats(ctx, course.StatsFilter{TeacherID: teacher.ID})
	if err != nil {
		t.Fatalf("Stats(): %v", err)
	}
	if stats.TotalCourses != 1 || stats.TotalStudents != 2 {
		t.Errorf("teacher stats = %+v", stats)
	}
	stats, _ = svc.Stats(ctx, course.StatsFilter{TeacherID: s1.ID})
	if stats.TotalCourses != 0 {
		t.Errorf("student as teacher filter: TotalCourses = %d, want 0", stats.TotalCourses)
	}
}

func TestService_Stats_completionRateRounding(t *testing.T) {
	ctx := context.Background()
	svc, acctRepo, courseRepo := setup(t)

	crs := testutil.CreateCourse(t, courseRepo, "Algebra", "c-1", "", true)
	s1 := testutil.CreateAccount(t, acctRepo, "S1", "s1@test.cd", "u-1", account.RoleStudent, "", true)
	s2 := testutil.CreateAccount(t, acctRepo, "S2", "s2@test.cd", "u-2", account.RoleStudent, "", true)
	s3 := testutil.CreateAccount(t, acctRepo, "S3", "s3@test.cd", "u-3", account.RoleStudent, "", true)
	hw := testutil.CreateCourseWork(t, courseRepo, crs, "HW", "cw-1")

	testutil.CreateSubmission(t, courseRepo, hw, s1, "s-1", course.SubmissionStateTurnedIn, false)
	testutil.CreateSubmission(t, courseRepo, hw, s2, "s-2", course.SubmissionStateNew, false)
	testutil.CreateSubmission(t, courseRepo, hw, s3, "s-3", course.SubmissionStateNew, false)

	stats, err := svc.Stats(ctx, course.StatsFilter{})
	if err != nil {
		t.Fatalf("Stats(): %v", err)
	}
	if stats.CompletionRate != 33.33 {
		t.Errorf("CompletionRate = %v, want 33.33", stats.CompletionRate)
	}

	// no submissions at all: rate stays 0
	empty, _, emptyRepo := setup(t)
	testutil.CreateCourse(t, emptyRepo, "Empty", "c-9", "", true)
	stats, err = empty.Stats(ctx, course.StatsFilter{})
	if err != nil {
		t.Fatalf("Stats(): %v", err)
	}
	if stats.CompletionRate != 0 {
		t.Errorf("CompletionRate = %v, want 0", stats.CompletionRate)
	}
}

func TestService_Progress(t *testing.T) {
	ctx := context.Background()
	svc, acctRepo, courseRepo := setup(t)

	crs := testutil.CreateCourse(t, courseRepo, "Algebra", "c-1", "2026A", true)
	s1 := testutil.CreateAccount(t, acctRepo, "S1", "s1@test.cd", "u-1", account.RoleStudent, "", true)
	testutil.CreateEnrollment(t, courseRepo, crs, s1, course.EnrollmentRoleStudent)

	hw1 := testutil.CreateCourseWork(t, courseRepo, crs, "HW 1", "cw-1")
	testutil.CreateCourseWork(t, courseRepo, crs, "HW 2", "cw-2")

	sub := testutil.CreateSubmission(t, courseRepo, hw1, s1, "s-1", course.SubmissionStateTurnedIn, true)
	sub.AssignedGrade.SetValid(85.5)
	if _, err := courseRepo.UpsertSubmission(ctx, sub); err != nil {
		t.Fatalf("UpsertSubmission(): %v", err)
	}

	rows, err := svc.Progress(ctx, course.ProgressFilter{CourseID: crs.ID})
	if err != nil {
		t.Fatalf("Progress(): %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.AccountID != s1.ID || row.CourseID != crs.ID {
		t.Errorf("row ids = %+v", row)
	}
	if row.TotalAssignments != 2 || row.CompletedAssignments != 1 || row.LateAssignments != 1 {
		t.Errorf("row counts = %+v", row)
	}
	if row.CompletionPercentage != 50 {
		t.Errorf("CompletionPercentage = %v, want 50", row.CompletionPercentage)
	}
	if !row.AverageGrade.Valid || row.AverageGrade.Float64 != 85.5 {
		t.Errorf("AverageGrade = %v, want 85.5", row.AverageGrade)
	}

	// cohort filter
	rows, err = svc.Progress(ctx, course.ProgressFilter{Cohort: "other"})
	if err != nil {
		t.Fatalf("Progress(): %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}

func TestService_QueryActive(t *testing.T) {
	ctx := context.Background()
	svc, _, courseRepo := setup(t)

	testutil.CreateCourse(t, courseRepo, "Algebra", "c-1", "2026A", true)
	testutil.CreateCourse(t, courseRepo, "Retired", "c-2", "2026A", false)

	courses, err := svc.QueryActive(ctx, nil, nil)
	if err != nil {
		t.Fatalf("QueryActive(): %v", err)
	}
	if len(courses) != 1 || courses[0].Name != "Algebra" {
		t.Errorf("QueryActive() = %+v", courses)
	}
}
