package inmemdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) UpsertCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, existing := range repo.db.courses {
		if existing.ExternalID == crs.ExternalID {
			// last-write-wins on mapped fields; local-only fields stay
			crs.ID = id
			crs.Cohort = existing.Cohort
			crs.IsActive = existing.IsActive
			crs.CreatedAt = existing.CreatedAt
			repo.db.courses[id] = &crs
			return crs, nil
		}
	}
	crs.ID = uuid.New().String()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, filter course.GetFilter, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if crs, ok := repo.db.courses[filter.ID]; ok {
			return *crs, nil
		}
		return course.Course{}, course.ErrNotFound
	}
	for _, crs := range repo.db.courses {
		if filter.ExternalID != "" && crs.ExternalID == filter.ExternalID {
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if filter != nil {
			if filter.Cohort != "" && crs.Cohort != filter.Cohort {
				continue
			}
			if filter.IsActive != nil && (crs.IsActive == nil || *crs.IsActive != *filter.IsActive) {
				continue
			}
		}
		courses = append(courses, *crs)
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetOrCreateEnrollment(_ context.Context, enr course.Enrollment, _ ...core.DBExecutor) (course.Enrollment, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.enrollments {
		if existing.CourseID == enr.CourseID && existing.AccountID == enr.AccountID {
			return *existing, false, nil
		}
	}
	enr.ID = uuid.New().String()
	repo.db.enrollments[enr.ID] = &enr
	return enr, true, nil
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, filter *course.EnrollmentFilter, _ ...core.DBExecutor) ([]course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.queryEnrollments(filter), nil
}

func (repo *courseRepository) queryEnrollments(filter *course.EnrollmentFilter) []course.Enrollment {
	enrs := make([]course.Enrollment, 0, len(repo.db.enrollments))
	for _, enr := range repo.db.enrollments {
		if filter != nil {
			if filter.CourseID != "" && enr.CourseID != filter.CourseID {
				continue
			}
			if filter.AccountID != "" && enr.AccountID != filter.AccountID {
				continue
			}
			if filter.Role != "" && enr.Role != filter.Role {
				continue
			}
			if filter.Cohort != "" {
				crs, ok := repo.db.courses[enr.CourseID]
				if !ok || crs.Cohort != filter.Cohort {
					continue
				}
			}
		}
		enrs = append(enrs, *enr)
	}
	return enrs
}

func (repo *courseRepository) UpsertCourseWork(_ context.Context, cw course.CourseWork, _ ...core.DBExecutor) (course.CourseWork, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, existing := range repo.db.coursework {
		if existing.ExternalID == cw.ExternalID {
			cw.ID = id
			cw.CreatedAt = existing.CreatedAt
			repo.db.coursework[id] = &cw
			return cw, nil
		}
	}
	cw.ID = uuid.New().String()
	repo.db.coursework[cw.ID] = &cw
	return cw, nil
}

func (repo *courseRepository) QueryCourseWork(_ context.Context, filter *course.CourseWorkFilter, _ ...core.DBExecutor) ([]course.CourseWork, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cws := make([]course.CourseWork, 0, len(repo.db.coursework))
	for _, cw := range repo.db.coursework {
		if filter != nil && filter.CourseID != "" && cw.CourseID != filter.CourseID {
			continue
		}
		cws = append(cws, *cw)
	}
	return cws, nil
}

func (repo *courseRepository) UpsertSubmission(_ context.Context, sub course.Submission, _ ...core.DBExecutor) (course.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, existing := range repo.db.submissions {
		if existing.ExternalID == sub.ExternalID {
			sub.ID = id
			sub.CreatedAt = existing.CreatedAt
			repo.db.submissions[id] = &sub
			return sub, nil
		}
	}
	sub.ID = uuid.New().String()
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *courseRepository) QuerySubmissions(_ context.Context, filter *course.SubmissionFilter, _ ...core.DBExecutor) ([]course.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.querySubmissions(filter), nil
}

func (repo *courseRepository) querySubmissions(filter *course.SubmissionFilter) []course.Submission {
	subs := make([]course.Submission, 0, len(repo.db.submissions))
	for _, sub := range repo.db.submissions {
		if filter != nil {
			if filter.CourseWorkID != "" && sub.CourseWorkID != filter.CourseWorkID {
				continue
			}
			if filter.AccountID != "" && sub.AccountID != filter.AccountID {
				continue
			}
			if filter.CourseID != "" {
				cw, ok := repo.db.coursework[sub.CourseWorkID]
				if !ok || cw.CourseID != filter.CourseID {
					continue
				}
			}
		}
		subs = append(subs, *sub)
	}
	return subs
}

func (repo *courseRepository) GetDashboardStats(_ context.Context, filter course.StatsFilter, _ ...core.DBExecutor) (course.Stats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var stats course.Stats
	inScope := make(map[string]bool)
	for id, crs := range repo.db.courses {
		if crs.IsActive == nil || !*crs.IsActive {
			continue
		}
		if filter.Cohort != "" && crs.Cohort != filter.Cohort {
			continue
		}
		if filter.TeacherID != "" && !repo.teaches(filter.TeacherID, id) {
			continue
		}
		inScope[id] = true
		stats.TotalCourses++
	}

	students := make(map[string]bool)
	for _, enr := range repo.db.enrollments {
		if inScope[enr.CourseID] && enr.Role == course.EnrollmentRoleStudent {
			students[enr.AccountID] = true
		}
	}
	stats.TotalStudents = len(students)

	cwInScope := make(map[string]bool)
	for id, cw := range repo.db.coursework {
		if inScope[cw.CourseID] {
			cwInScope[id] = true
			stats.TotalAssignments++
		}
	}

	for _, sub := range repo.db.submissions {
		if !cwInScope[sub.CourseWorkID] {
			continue
		}
		stats.TotalSubmissions++
		switch {
		case sub.Turned() && !sub.Late:
			stats.SubmissionsOnTime++
		case sub.Turned() && sub.Late:
			stats.SubmissionsLate++
		case sub.Pending():
			stats.SubmissionsPending++
		}
	}
	return stats, nil
}

func (repo *courseRepository) teaches(accountID, courseID string) bool {
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID && enr.AccountID == accountID && enr.Role == course.EnrollmentRoleTeacher {
			return true
		}
	}
	return false
}

func (repo *courseRepository) QueryStudentProgress(_ context.Context, filter course.ProgressFilter, _ ...core.DBExecutor) ([]course.StudentProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrs := repo.queryEnrollments(&course.EnrollmentFilter{
		CourseID: filter.CourseID,
		Role:     course.EnrollmentRoleStudent,
		Cohort:   filter.Cohort,
	})

	rows := make([]course.StudentProgress, 0, len(enrs))
	for _, enr := range enrs {
		crs, ok := repo.db.courses[enr.CourseID]
		if !ok {
			continue
		}
		acct, ok := repo.db.accounts[enr.AccountID]
		if !ok {
			continue
		}

		row := course.StudentProgress{
			AccountID:    acct.ID,
			AccountName:  acct.Name,
			AccountEmail: acct.Email,
			CourseID:     crs.ID,
			CourseName:   crs.Name,
		}
		for _, cw := range repo.db.coursework {
			if cw.CourseID == crs.ID {
				row.TotalAssignments++
			}
		}

		var gradeSum float64
		var gradeCount int
		for _, sub := range repo.querySubmissions(&course.SubmissionFilter{CourseID: crs.ID, AccountID: acct.ID}) {
			if sub.Turned() {
				row.CompletedAssignments++
				if sub.Late {
					row.LateAssignments++
				}
			}
			if sub.AssignedGrade.Valid {
				gradeSum += sub.AssignedGrade.Float64
				gradeCount++
			}
		}
		if gradeCount > 0 {
			row.AverageGrade = null.Float64From(gradeSum / float64(gradeCount))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
