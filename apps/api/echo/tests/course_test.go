package tests

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/ecampus-dev/aula/core/account"
	"github.com/ecampus-dev/aula/core/course"
	testutil "github.com/ecampus-dev/aula/tests"
)

func Test_courseApi_query(t *testing.T) {
	db.Reset()

	student := testutil.CreateAccount(t, acctRepo, "Stu", "stu@test.cd", "u-1", account.RoleStudent, "", true)
	token := getToken(t, student)

	algebra := testutil.CreateCourse(t, courseRepo, "Algebra", "c-1", "2026A", true)
	physics := testutil.CreateCourse(t, courseRepo, "Physics", "c-2", "2026B", true)
	testutil.CreateCourse(t, courseRepo, "Retired", "c-3", "2026A", false)

	empty := marchallList(t, []interface{}{}...)
	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "active only", path: "/v1/courses", token: token, wantData: marchallList(t, algebra, physics)},
		{
			name: "cohort filter", path: "/v1/courses?" + url.Values{"cohort": {"2026A"}}.Encode(),
			token: token, wantData: marchallList(t, algebra),
		},
		{name: "cohort filter (unknown)", path: "/v1/courses?cohort=zzz", token: token, wantData: empty},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_retrieve(t *testing.T) {
	db.Reset()

	student := testutil.CreateAccount(t, acctRepo, "Stu", "stu@test.cd", "u-1", account.RoleStudent, "", true)
	token := getToken(t, student)
	algebra := testutil.CreateCourse(t, courseRepo, "Algebra", "c-1", "2026A", true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses/" + algebra.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "not found", path: "/v1/courses/ghost", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "found", path: "/v1/courses/" + algebra.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, algebra)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_dashboardApi(t *testing.T) {
	db.Reset()

	coord := testutil.CreateAccount(t, acctRepo, "Coord", "coord@test.cd", "", account.RoleCoordinator, "LolC@t123", true)
	teacher := testutil.CreateAccount(t, acctRepo, "T", "t@test.cd", "u-t", account.RoleTeacher, "", true)
	student := testutil.CreateAccount(t, acctRepo, "Stu", "stu@test.cd", "u-1", account.RoleStudent, "", true)

	crs := testutil.CreateCourse(t, courseRepo, "Algebra", "c-1", "2026A", true)
	testutil.CreateEnrollment(t, courseRepo, crs, teacher, course.EnrollmentRoleTeacher)
	testutil.CreateEnrollment(t, courseRepo, crs, student, course.EnrollmentRoleStudent)

	hw := testutil.CreateCourseWork(t, courseRepo, crs, "HW", "cw-1")
	testutil.CreateCourseWork(t, courseRepo, crs, "Quiz", "cw-2")
	testutil.CreateSubmission(t, courseRepo, hw, student, "s-1", course.SubmissionStateTurnedIn, false)

	wantStats := course.Stats{
		TotalCourses:      1,
		TotalStudents:     1,
		TotalAssignments:  2,
		TotalSubmissions:  1,
		SubmissionsOnTime: 1,
		CompletionRate:    100,
	}
	wantProgress := course.StudentProgress{
		AccountID:            student.ID,
		AccountName:          student.Name,
		AccountEmail:         student.Email,
		CourseID:             crs.ID,
		CourseName:           crs.Name,
		TotalAssignments:     2,
		CompletedAssignments: 1,
		CompletionPercentage: 50,
	}

	tests := []httpTest{
		{name: "stats: Auth required", path: "/v1/dashboard/stats", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "stats: staff required", path: "/v1/dashboard/stats", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "stats: coordinator", path: "/v1/dashboard/stats", token: getToken(t, coord), wantData: marchallObj(t, wantStats)},
		{name: "stats: teacher", path: "/v1/dashboard/stats", token: getToken(t, teacher), wantData: marchallObj(t, wantStats)},
		{
			name: "stats: teacher scope", path: "/v1/dashboard/stats?teacher_id=" + teacher.ID, token: getToken(t, coord),
			wantData: marchallObj(t, wantStats),
		},
		{
			name: "stats: cohort scope (empty)", path: "/v1/dashboard/stats?cohort=zzz", token: getToken(t, coord),
			wantData: marchallObj(t, course.Stats{}),
		},
		{
			name: "progress: staff required", path: "/v1/dashboard/progress", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "progress", path: "/v1/dashboard/progress", token: getToken(t, teacher), wantData: marchallList(t, wantProgress)},
		{
			name: "progress: course scope (empty)", path: "/v1/dashboard/progress?course_id=ghost", token: getToken(t, teacher),
			wantData: marchallList(t, []interface{}{}...),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
