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
	"github.com/ecampus-dev/aula/core/course"
)

const courseColumns = `id, external_id, name, description, section, room, owner_external_id,
	creation_time, update_time, enrollment_code, course_state, alternate_link, cohort, is_active,
	created_at, updated_at`

type courseRow struct {
	ID              string      `db:"id"`
	ExternalID      string      `db:"external_id"`
	Name            null.String `db:"name"`
	Description     null.String `db:"description"`
	Section         null.String `db:"section"`
	Room            null.String `db:"room"`
	OwnerExternalID null.String `db:"owner_external_id"`
	CreationTime    null.Time   `db:"creation_time"`
	UpdateTime      null.Time   `db:"update_time"`
	EnrollmentCode  null.String `db:"enrollment_code"`
	CourseState     null.String `db:"course_state"`
	AlternateLink   null.String `db:"alternate_link"`
	Cohort          null.String `db:"cohort"`
	IsActive        null.Bool   `db:"is_active"`
	CreatedAt       null.Time   `db:"created_at"`
	UpdatedAt       null.Time   `db:"updated_at"`
}

type enrollmentRow struct {
	ID        string      `db:"id"`
	CourseID  string      `db:"course_id"`
	AccountID string      `db:"account_id"`
	Role      null.String `db:"role"`
	CreatedAt null.Time   `db:"created_at"`
}

type courseWorkRow struct {
	ID            string       `db:"id"`
	ExternalID    string       `db:"external_id"`
	CourseID      string       `db:"course_id"`
	Title         null.String  `db:"title"`
	Description   null.String  `db:"description"`
	State         null.String  `db:"state"`
	AlternateLink null.String  `db:"alternate_link"`
	CreationTime  null.Time    `db:"creation_time"`
	UpdateTime    null.Time    `db:"update_time"`
	DueDate       null.Time    `db:"due_date"`
	MaxPoints     null.Float64 `db:"max_points"`
	WorkType      null.String  `db:"work_type"`
	CreatedAt     null.Time    `db:"created_at"`
	UpdatedAt     null.Time    `db:"updated_at"`
}

type submissionRow struct {
	ID            string       `db:"id"`
	ExternalID    string       `db:"external_id"`
	CourseWorkID  string       `db:"coursework_id"`
	AccountID     string       `db:"account_id"`
	State         null.String  `db:"state"`
	Late          null.Bool    `db:"late"`
	DraftGrade    null.Float64 `db:"draft_grade"`
	AssignedGrade null.Float64 `db:"assigned_grade"`
	CreationTime  null.Time    `db:"creation_time"`
	UpdateTime    null.Time    `db:"update_time"`
	AlternateLink null.String  `db:"alternate_link"`
	CreatedAt     null.Time    `db:"created_at"`
	UpdatedAt     null.Time    `db:"updated_at"`
}

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo courseRepository) packCourse(crs course.Course) courseRow {
	return courseRow{
		ID:              crs.ID,
		ExternalID:      crs.ExternalID,
		Name:            null.NewString(crs.Name, crs.Name != ""),
		Description:     null.NewString(crs.Description, crs.Description != ""),
		Section:         null.NewString(crs.Section, crs.Section != ""),
		Room:            null.NewString(crs.Room, crs.Room != ""),
		OwnerExternalID: null.NewString(crs.OwnerExternalID, crs.OwnerExternalID != ""),
		CreationTime:    null.NewTime(crs.CreationTime.UTC(), !crs.CreationTime.IsZero()),
		UpdateTime:      null.NewTime(crs.UpdateTime.UTC(), !crs.UpdateTime.IsZero()),
		EnrollmentCode:  null.NewString(crs.EnrollmentCode, crs.EnrollmentCode != ""),
		CourseState:     null.NewString(crs.CourseState, crs.CourseState != ""),
		AlternateLink:   null.NewString(crs.AlternateLink, crs.AlternateLink != ""),
		Cohort:          null.NewString(crs.Cohort, crs.Cohort != ""),
		IsActive:        null.BoolFromPtr(crs.IsActive),
		CreatedAt:       null.NewTime(crs.CreatedAt.UTC(), !crs.CreatedAt.IsZero()),
		UpdatedAt:       null.NewTime(crs.UpdatedAt.UTC(), !crs.UpdatedAt.IsZero()),
	}
}

func (repo courseRepository) unpackCourse(row courseRow) course.Course {
	return course.Course{
		ID:              row.ID,
		ExternalID:      row.ExternalID,
		Name:            row.Name.String,
		Description:     row.Description.String,
		Section:         row.Section.String,
		Room:            row.Room.String,
		OwnerExternalID: row.OwnerExternalID.String,
		CreationTime:    row.CreationTime.Time,
		UpdateTime:      row.UpdateTime.Time,
		EnrollmentCode:  row.EnrollmentCode.String,
		CourseState:     row.CourseState.String,
		AlternateLink:   row.AlternateLink.String,
		Cohort:          row.Cohort.String,
		IsActive:        row.IsActive.Ptr(),
		CreatedAt:       row.CreatedAt.Time,
		UpdatedAt:       row.UpdatedAt.Time,
	}
}

func (repo courseRepository) selectCourses(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) ([]course.Course, error) {
	rows, err := exe.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rws []courseRow
	if err = sqlx.StructScan(rows, &rws); err != nil {
		return nil, err
	}
	courses := make([]course.Course, 0, len(rws))
	for _, row := range rws {
		courses = append(courses, repo.unpackCourse(row))
	}
	return courses, nil
}

func (repo courseRepository) UpsertCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	row := repo.packCourse(crs)

	// cohort, is_active and created_at are local-only; an existing row keeps them.
	query := `INSERT INTO "course" (` + courseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description, section = EXCLUDED.section,
			room = EXCLUDED.room, owner_external_id = EXCLUDED.owner_external_id,
			creation_time = EXCLUDED.creation_time, update_time = EXCLUDED.update_time,
			enrollment_code = EXCLUDED.enrollment_code, course_state = EXCLUDED.course_state,
			alternate_link = EXCLUDED.alternate_link, updated_at = EXCLUDED.updated_at
		RETURNING ` + courseColumns
	courses, err := repo.selectCourses(ctx, repo.getExec(exec), query,
		row.ID, row.ExternalID, row.Name, row.Description, row.Section, row.Room, row.OwnerExternalID,
		row.CreationTime, row.UpdateTime, row.EnrollmentCode, row.CourseState, row.AlternateLink,
		row.Cohort, row.IsActive, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "upserting course")
	}
	if len(courses) == 0 {
		return course.Course{}, errors.New("upserting course: no row returned")
	}
	return courses[0], nil
}

func (repo courseRepository) GetCourse(ctx context.Context, filter course.GetFilter, exec ...core.DBExecutor) (course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM "course" WHERE `
	var arg interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return course.Course{}, course.ErrNotFound
		}
		query += "id = $1"
		arg = filter.ID
	case filter.ExternalID != "":
		query += "external_id = $1"
		arg = filter.ExternalID
	default:
		return course.Course{}, course.ErrNotFound
	}

	courses, err := repo.selectCourses(ctx, repo.getExec(exec), query+" LIMIT 1", arg)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	if len(courses) == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return courses[0], nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM "course"`
	var clauses []string
	var args []interface{}

	if filter != nil {
		if filter.Cohort != "" {
			args = append(args, filter.Cohort)
			clauses = append(clauses, fmt.Sprintf("cohort = $%d", len(args)))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			clauses = append(clauses, fmt.Sprintf("is_active = $%d", len(args)))
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

	courses, err := repo.selectCourses(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	row := repo.packCourse(crs)
	query := `UPDATE "course" SET
		name = $2, description = $3, section = $4, room = $5, owner_external_id = $6,
		creation_time = $7, update_time = $8, enrollment_code = $9, course_state = $10,
		alternate_link = $11, cohort = $12, is_active = $13, updated_at = $14
		WHERE id = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, query,
		row.ID, row.Name, row.Description, row.Section, row.Room, row.OwnerExternalID,
		row.CreationTime, row.UpdateTime, row.EnrollmentCode, row.CourseState,
		row.AlternateLink, row.Cohort, row.IsActive, row.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) GetOrCreateEnrollment(ctx context.Context, enr course.Enrollment, exec ...core.DBExecutor) (course.Enrollment, bool, error) {
	exe := repo.getExec(exec)
	enr.ID = uuid.New().String()

	query := `INSERT INTO "enrollment" (id, course_id, account_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (course_id, account_id) DO NOTHING`
	res, err := exe.ExecContext(ctx, query,
		enr.ID, enr.CourseID, enr.AccountID,
		null.NewString(enr.Role, enr.Role != ""),
		null.NewTime(enr.CreatedAt.UTC(), !enr.CreatedAt.IsZero()),
	)
	if err != nil {
		return course.Enrollment{}, false, errors.Wrap(err, "inserting enrollment")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt > 0 {
		return enr, true, nil
	}

	// existing row wins, returned untouched
	enrs, err := repo.selectEnrollments(ctx, exe,
		`SELECT id, course_id, account_id, role, created_at FROM "enrollment"
			WHERE course_id = $1 AND account_id = $2`,
		enr.CourseID, enr.AccountID)
	if err != nil || len(enrs) == 0 {
		return course.Enrollment{}, false, errors.Wrap(err, "finding enrollment")
	}
	return enrs[0], false, nil
}

func (repo courseRepository) selectEnrollments(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) ([]course.Enrollment, error) {
	rows, err := exe.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rws []enrollmentRow
	if err = sqlx.StructScan(rows, &rws); err != nil {
		return nil, err
	}
	enrs := make([]course.Enrollment, 0, len(rws))
	for _, row := range rws {
		enrs = append(enrs, course.Enrollment{
			ID:        row.ID,
			CourseID:  row.CourseID,
			AccountID: row.AccountID,
			Role:      row.Role.String,
			CreatedAt: row.CreatedAt.Time,
		})
	}
	return enrs, nil
}

func (repo courseRepository) QueryEnrollments(ctx context.Context, filter *course.EnrollmentFilter, exec ...core.DBExecutor) ([]course.Enrollment, error) {
	query := `SELECT e.id, e.course_id, e.account_id, e.role, e.created_at FROM "enrollment" e`
	var clauses []string
	var args []interface{}

	if filter != nil {
		if filter.Cohort != "" {
			query += ` JOIN "course" c ON c.id = e.course_id`
			args = append(args, filter.Cohort)
			clauses = append(clauses, fmt.Sprintf("c.cohort = $%d", len(args)))
		}
		if filter.CourseID != "" {
			args = append(args, filter.CourseID)
			clauses = append(clauses, fmt.Sprintf("e.course_id = $%d", len(args)))
		}
		if filter.AccountID != "" {
			args = append(args, filter.AccountID)
			clauses = append(clauses, fmt.Sprintf("e.account_id = $%d", len(args)))
		}
		if filter.Role != "" {
			args = append(args, filter.Role)
			clauses = append(clauses, fmt.Sprintf("e.role = $%d", len(args)))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	enrs, err := repo.selectEnrollments(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return enrs, nil
}

func (repo courseRepository) UpsertCourseWork(ctx context.Context, cw course.CourseWork, exec ...core.DBExecutor) (course.CourseWork, error) {
	if cw.ID == "" {
		cw.ID = uuid.New().String()
	}
	row := courseWorkRow{
		ID:            cw.ID,
		ExternalID:    cw.ExternalID,
		CourseID:      cw.CourseID,
		Title:         null.NewString(cw.Title, cw.Title != ""),
		Description:   null.NewString(cw.Description, cw.Description != ""),
		State:         null.NewString(cw.State, cw.State != ""),
		AlternateLink: null.NewString(cw.AlternateLink, cw.AlternateLink != ""),
		CreationTime:  null.NewTime(cw.CreationTime.UTC(), !cw.CreationTime.IsZero()),
		UpdateTime:    null.NewTime(cw.UpdateTime.UTC(), !cw.UpdateTime.IsZero()),
		DueDate:       cw.DueDate,
		MaxPoints:     cw.MaxPoints,
		WorkType:      null.NewString(cw.WorkType, cw.WorkType != ""),
		CreatedAt:     null.NewTime(cw.CreatedAt.UTC(), !cw.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(cw.UpdatedAt.UTC(), !cw.UpdatedAt.IsZero()),
	}

	query := `INSERT INTO "course_work" (id, external_id, course_id, title, description, state,
			alternate_link, creation_time, update_time, due_date, max_points, work_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (external_id) DO UPDATE SET
			course_id = EXCLUDED.course_id, title = EXCLUDED.title, description = EXCLUDED.description,
			state = EXCLUDED.state, alternate_link = EXCLUDED.alternate_link,
			creation_time = EXCLUDED.creation_time, update_time = EXCLUDED.update_time,
			due_date = EXCLUDED.due_date, max_points = EXCLUDED.max_points,
			work_type = EXCLUDED.work_type, updated_at = EXCLUDED.updated_at
		RETURNING id`
	var id string
	err := repo.getExec(exec).QueryRowContext(ctx, query,
		row.ID, row.ExternalID, row.CourseID, row.Title, row.Description, row.State,
		row.AlternateLink, row.CreationTime, row.UpdateTime, row.DueDate, row.MaxPoints,
		row.WorkType, row.CreatedAt, row.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return course.CourseWork{}, errors.Wrap(err, "upserting course work")
	}
	cw.ID = id
	return cw, nil
}

func (repo courseRepository) QueryCourseWork(ctx context.Context, filter *course.CourseWorkFilter, exec ...core.DBExecutor) ([]course.CourseWork, error) {
	query := `SELECT id, external_id, course_id, title, description, state, alternate_link,
			creation_time, update_time, due_date, max_points, work_type, created_at, updated_at
		FROM "course_work"`
	var args []interface{}
	if filter != nil && filter.CourseID != "" {
		query += " WHERE course_id = $1"
		args = append(args, filter.CourseID)
	}

	rows, err := repo.getExec(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying course work")
	}
	defer func() { _ = rows.Close() }()

	var rws []courseWorkRow
	if err = sqlx.StructScan(rows, &rws); err != nil {
		return nil, errors.Wrap(err, "querying course work")
	}
	cws := make([]course.CourseWork, 0, len(rws))
	for _, row := range rws {
		cws = append(cws, course.CourseWork{
			ID:            row.ID,
			ExternalID:    row.ExternalID,
			CourseID:      row.CourseID,
			Title:         row.Title.String,
			Description:   row.Description.String,
			State:         row.State.String,
			AlternateLink: row.AlternateLink.String,
			CreationTime:  row.CreationTime.Time,
			UpdateTime:    row.UpdateTime.Time,
			DueDate:       row.DueDate,
			MaxPoints:     row.MaxPoints,
			WorkType:      row.WorkType.String,
			CreatedAt:     row.CreatedAt.Time,
			UpdatedAt:     row.UpdatedAt.Time,
		})
	}
	return cws, nil
}

func (repo courseRepository) UpsertSubmission(ctx context.Context, sub course.Submission, exec ...core.DBExecutor) (course.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}

	query := `INSERT INTO "submission" (id, external_id, coursework_id, account_id, state, late,
			draft_grade, assigned_grade, creation_time, update_time, alternate_link, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (external_id) DO UPDATE SET
			coursework_id = EXCLUDED.coursework_id, account_id = EXCLUDED.account_id,
			state = EXCLUDED.state, late = EXCLUDED.late, draft_grade = EXCLUDED.draft_grade,
			assigned_grade = EXCLUDED.assigned_grade, creation_time = EXCLUDED.creation_time,
			update_time = EXCLUDED.update_time, alternate_link = EXCLUDED.alternate_link,
			updated_at = EXCLUDED.updated_at
		RETURNING id`
	var id string
	err := repo.getExec(exec).QueryRowContext(ctx, query,
		sub.ID, sub.ExternalID, sub.CourseWorkID, sub.AccountID,
		null.NewString(sub.State, sub.State != ""), sub.Late,
		sub.DraftGrade, sub.AssignedGrade,
		null.NewTime(sub.CreationTime.UTC(), !sub.CreationTime.IsZero()),
		null.NewTime(sub.UpdateTime.UTC(), !sub.UpdateTime.IsZero()),
		null.NewString(sub.AlternateLink, sub.AlternateLink != ""),
		null.NewTime(sub.CreatedAt.UTC(), !sub.CreatedAt.IsZero()),
		null.NewTime(sub.UpdatedAt.UTC(), !sub.UpdatedAt.IsZero()),
	).Scan(&id)
	if err != nil {
		return course.Submission{}, errors.Wrap(err, "upserting submission")
	}
	sub.ID = id
	return sub, nil
}

func (repo courseRepository) QuerySubmissions(ctx context.Context, filter *course.SubmissionFilter, exec ...core.DBExecutor) ([]course.Submission, error) {
	query := `SELECT s.id, s.external_id, s.coursework_id, s.account_id, s.state, s.late,
			s.draft_grade, s.assigned_grade, s.creation_time, s.update_time, s.alternate_link,
			s.created_at, s.updated_at
		FROM "submission" s`
	var clauses []string
	var args []interface{}

	if filter != nil {
		if filter.CourseID != "" {
			query += ` JOIN "course_work" cw ON cw.id = s.coursework_id`
			args = append(args, filter.CourseID)
			clauses = append(clauses, fmt.Sprintf("cw.course_id = $%d", len(args)))
		}
		if filter.CourseWorkID != "" {
			args = append(args, filter.CourseWorkID)
			clauses = append(clauses, fmt.Sprintf("s.coursework_id = $%d", len(args)))
		}
		if filter.AccountID != "" {
			args = append(args, filter.AccountID)
			clauses = append(clauses, fmt.Sprintf("s.account_id = $%d", len(args)))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := repo.getExec(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	defer func() { _ = rows.Close() }()

	var rws []submissionRow
	if err = sqlx.StructScan(rows, &rws); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]course.Submission, 0, len(rws))
	for _, row := range rws {
		subs = append(subs, course.Submission{
			ID:            row.ID,
			ExternalID:    row.ExternalID,
			CourseWorkID:  row.CourseWorkID,
			AccountID:     row.AccountID,
			State:         row.State.String,
			Late:          row.Late.Bool,
			DraftGrade:    row.DraftGrade,
			AssignedGrade: row.AssignedGrade,
			CreationTime:  row.CreationTime.Time,
			UpdateTime:    row.UpdateTime.Time,
			AlternateLink: row.AlternateLink.String,
			CreatedAt:     row.CreatedAt.Time,
			UpdatedAt:     row.UpdatedAt.Time,
		})
	}
	return subs, nil
}

func (repo courseRepository) GetDashboardStats(ctx context.Context, filter course.StatsFilter, exec ...core.DBExecutor) (course.Stats, error) {
	scoped := `SELECT c.id FROM "course" c WHERE c.is_active = TRUE`
	var args []interface{}
	if filter.Cohort != "" {
		args = append(args, filter.Cohort)
		scoped += fmt.Sprintf(" AND c.cohort = $%d", len(args))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		scoped += fmt.Sprintf(
			` AND EXISTS (SELECT 1 FROM "enrollment" e WHERE e.course_id = c.id AND e.account_id = $%d AND e.role = '%s')`,
			len(args), course.EnrollmentRoleTeacher)
	}

	query := fmt.Sprintf(`WITH scoped AS (%s)
		SELECT
			(SELECT COUNT(*) FROM scoped) AS total_courses,
			(SELECT COUNT(DISTINCT e.account_id) FROM "enrollment" e
				WHERE e.course_id IN (SELECT id FROM scoped) AND e.role = '%s') AS total_students,
			(SELECT COUNT(*) FROM "course_work" cw
				WHERE cw.course_id IN (SELECT id FROM scoped)) AS total_assignments,
			COUNT(s.id) AS total_submissions,
			COUNT(s.id) FILTER (WHERE s.state = '%s' AND NOT s.late) AS submissions_on_time,
			COUNT(s.id) FILTER (WHERE s.state = '%s' AND s.late) AS submissions_late,
			COUNT(s.id) FILTER (WHERE s.state IN ('%s', '%s')) AS submissions_pending
		FROM "submission" s
		JOIN "course_work" cw ON cw.id = s.coursework_id
		WHERE cw.course_id IN (SELECT id FROM scoped)`,
		scoped,
		course.EnrollmentRoleStudent,
		course.SubmissionStateTurnedIn, course.SubmissionStateTurnedIn,
		course.SubmissionStateNew, course.SubmissionStateCreated,
	)

	var stats course.Stats
	err := repo.getExec(exec).QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalCourses, &stats.TotalStudents, &stats.TotalAssignments, &stats.TotalSubmissions,
		&stats.SubmissionsOnTime, &stats.SubmissionsLate, &stats.SubmissionsPending,
	)
	if err != nil {
		return course.Stats{}, errors.Wrap(err, "querying dashboard stats")
	}
	return stats, nil
}

type progressRow struct {
	AccountID            string       `db:"student_id"`
	AccountName          null.String  `db:"student_name"`
	AccountEmail         null.String  `db:"student_email"`
	CourseID             string       `db:"course_id"`
	CourseName           null.String  `db:"course_name"`
	TotalAssignments     int          `db:"total_assignments"`
	CompletedAssignments int          `db:"completed_assignments"`
	LateAssignments      int          `db:"late_assignments"`
	AverageGrade         null.Float64 `db:"average_grade"`
}

func (repo courseRepository) QueryStudentProgress(ctx context.Context, filter course.ProgressFilter, exec ...core.DBExecutor) ([]course.StudentProgress, error) {
	var clauses []string
	var args []interface{}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		clauses = append(clauses, fmt.Sprintf("c.id = $%d", len(args)))
	}
	if filter.Cohort != "" {
		args = append(args, filter.Cohort)
		clauses = append(clauses, fmt.Sprintf("c.cohort = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " AND " + strings.Join(clauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT
			a.id AS student_id, a.name AS student_name, a.email AS student_email,
			c.id AS course_id, c.name AS course_name,
			(SELECT COUNT(*) FROM "course_work" x WHERE x.course_id = c.id) AS total_assignments,
			COUNT(s.id) FILTER (WHERE s.state = '%s') AS completed_assignments,
			COUNT(s.id) FILTER (WHERE s.state = '%s' AND s.late) AS late_assignments,
			AVG(s.assigned_grade) AS average_grade
		FROM "enrollment" e
		JOIN "account" a ON a.id = e.account_id
		JOIN "course" c ON c.id = e.course_id
		LEFT JOIN "course_work" cw ON cw.course_id = c.id
		LEFT JOIN "submission" s ON s.coursework_id = cw.id AND s.account_id = a.id
		WHERE e.role = '%s'%s
		GROUP BY a.id, a.name, a.email, c.id, c.name
		ORDER BY a.name, c.name`,
		course.SubmissionStateTurnedIn, course.SubmissionStateTurnedIn,
		course.EnrollmentRoleStudent, where,
	)

	rows, err := repo.getExec(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying student progress")
	}
	defer func() { _ = rows.Close() }()

	var rws []progressRow
	if err = sqlx.StructScan(rows, &rws); err != nil {
		return nil, errors.Wrap(err, "querying student progress")
	}
	progress := make([]course.StudentProgress, 0, len(rws))
	for _, row := range rws {
		progress = append(progress, course.StudentProgress{
			AccountID:            row.AccountID,
			AccountName:          row.AccountName.String,
			AccountEmail:         row.AccountEmail.String,
			CourseID:             row.CourseID,
			CourseName:           row.CourseName.String,
			TotalAssignments:     row.TotalAssignments,
			CompletedAssignments: row.CompletedAssignments,
			LateAssignments:      row.LateAssignments,
			AverageGrade:         row.AverageGrade,
		})
	}
	return progress, nil
}
