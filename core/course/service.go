package course

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ecampus-dev/aula/core"
)

var (
	// errors
	ErrNotFound = errors.New("course not found")
)

type (
	Repository interface {
		// UpsertCourse matches on ExternalID; when found every mapped field
		// is overwritten with the incoming value (last-write-wins), local-only
		// fields are preserved; otherwise the course is inserted.
		UpsertCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)

		// GetOrCreateEnrollment reports whether the enrollment was created;
		// an existing row is returned untouched.
		GetOrCreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, bool, error)
		QueryEnrollments(ctx context.Context, filter *EnrollmentFilter, exec ...core.DBExecutor) ([]Enrollment, error)

		UpsertCourseWork(ctx context.Context, cw CourseWork, exec ...core.DBExecutor) (CourseWork, error)
		QueryCourseWork(ctx context.Context, filter *CourseWorkFilter, exec ...core.DBExecutor) ([]CourseWork, error)

		UpsertSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		QuerySubmissions(ctx context.Context, filter *SubmissionFilter, exec ...core.DBExecutor) ([]Submission, error)

		// GetDashboardStats fills every Stats field except CompletionRate.
		GetDashboardStats(ctx context.Context, filter StatsFilter, exec ...core.DBExecutor) (Stats, error)
		// QueryStudentProgress fills per-row counts and grade average;
		// CompletionPercentage is derived by the service.
		QueryStudentProgress(ctx context.Context, filter ProgressFilter, exec ...core.DBExecutor) ([]StudentProgress, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ID: id})
}

// QueryActive lists active courses, optionally narrowed by cohort.
func (svc *Service) QueryActive(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	active := true
	filter.IsActive = &active
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

// Stats computes the dashboard aggregates.
// Completion rate = (on-time + late) / total * 100, 0 when there are no
// submissions.
func (svc *Service) Stats(ctx context.Context, filter StatsFilter) (Stats, error) {
	stats, err := svc.repo.GetDashboardStats(ctx, filter)
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying dashboard stats")
	}
	if stats.TotalSubmissions > 0 {
		rate := float64(stats.SubmissionsOnTime+stats.SubmissionsLate) / float64(stats.TotalSubmissions) * 100
		stats.CompletionRate = round2(rate)
	}
	return stats, nil
}

// Progress lists per (student, course) progress rows.
func (svc *Service) Progress(ctx context.Context, filter ProgressFilter) ([]StudentProgress, error) {
	rows, err := svc.repo.QueryStudentProgress(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying student progress")
	}
	for i := range rows {
		if rows[i].TotalAssignments > 0 {
			pct := float64(rows[i].CompletedAssignments) / float64(rows[i].TotalAssignments) * 100
			rows[i].CompletionPercentage = round2(pct)
		}
		if rows[i].AverageGrade.Valid {
			rows[i].AverageGrade = null.Float64From(round2(rows[i].AverageGrade.Float64))
		}
	}
	return rows, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
