package classroom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/ecampus-dev/aula/core/course"
	syncdom "github.com/ecampus-dev/aula/core/sync"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	tok := &oauth2.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}
	return NewClient(context.Background(), &oauth2.Config{}, tok, srv.URL), srv.Close
}

func TestClient_Courses_pagination(t *testing.T) {
	var authHeaders []string
	client, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/courses" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("pageSize"); got != "100" {
			t.Errorf("pageSize = %s, want 100", got)
		}
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))

		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(w, `{"courses":[{"id":"c-1","name":"Algebra","ownerId":"u-1","creationTime":"2026-01-10T08:00:00Z","courseState":"ACTIVE"},{"id":"c-2","name":"Physics"}],"nextPageToken":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"courses":[{"id":"c-3","name":"Chemistry"}]}`)
		default:
			t.Errorf("unexpected pageToken %q", r.URL.Query().Get("pageToken"))
		}
	}))
	defer closeSrv()

	var recs []syncdom.CourseRecord
	err := client.Courses(context.Background(), func(rec syncdom.CourseRecord) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("Courses(): %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len(recs) = %d, want 3", len(recs))
	}
	if recs[0].ID != "c-1" || recs[2].ID != "c-3" {
		t.Errorf("record order: %s .. %s", recs[0].ID, recs[2].ID)
	}
	want := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	if !recs[0].CreationTime.Equal(want) {
		t.Errorf("CreationTime = %v, want %v", recs[0].CreationTime, want)
	}
	for _, h := range authHeaders {
		if h != "Bearer tok" {
			t.Errorf("Authorization = %q", h)
		}
	}
}

func TestClient_Courses_upstreamError(t *testing.T) {
	client, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer closeSrv()

	err := client.Courses(context.Background(), func(syncdom.CourseRecord) error { return nil })
	upErr, ok := err.(*syncdom.UpstreamError)
	if !ok {
		t.Fatalf("Courses() error = %T (%v), want *sync.UpstreamError", err, err)
	}
	if upErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", upErr.Status)
	}
}

func TestClient_Courses_malformedRecord(t *testing.T) {
	client, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"courses":[{"name":"No ID"}]}`)
	}))
	defer closeSrv()

	err := client.Courses(context.Background(), func(syncdom.CourseRecord) error { return nil })
	malErr, ok := err.(*syncdom.MalformedRecordError)
	if !ok {
		t.Fatalf("Courses() error = %T (%v), want *sync.MalformedRecordError", err, err)
	}
	if malErr.Resource != syncdom.ResourceCourses || malErr.Field != "id" {
		t.Errorf("MalformedRecordError = %+v", malErr)
	}
}

func TestClient_Roster(t *testing.T) {
	client, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/courses/c-1/students":
			fmt.Fprint(w, `{"students":[{"userId":"u-1","profile":{"name":{"fullName":"Stu Dent"},"emailAddress":"stu@test.cd","photoUrl":"http://p/1"}}]}`)
		case "/courses/c-1/teachers":
			fmt.Fprint(w, `{"teachers":[{"userId":"u-2","profile":{"name":{"fullName":"Tea Cher"},"emailAddress":"tea@test.cd"}}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer closeSrv()

	var recs []syncdom.RosterRecord
	err := client.Roster(context.Background(), "c-1", func(rec syncdom.RosterRecord) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("Roster(): %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].Role != course.EnrollmentRoleStudent || recs[0].UserID != "u-1" || recs[0].FullName != "Stu Dent" {
		t.Errorf("student record = %+v", recs[0])
	}
	if recs[1].Role != course.EnrollmentRoleTeacher || recs[1].Email != "tea@test.cd" {
		t.Errorf("teacher record = %+v", recs[1])
	}
}

func TestClient_CourseWork(t *testing.T) {
	client, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/courses/c-1/courseWork" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"courseWork":[
			{"id":"cw-1","title":"HW","dueDate":{"year":2026,"month":9,"day":15},"dueTime":{"hours":9},"maxPoints":100,"workType":"ASSIGNMENT"},
			{"id":"cw-2","title":"Quiz"}
		]}`)
	}))
	defer closeSrv()

	var recs []syncdom.CourseWorkRecord
	err := client.CourseWork(context.Background(), "c-1", func(rec syncdom.CourseWorkRecord) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("CourseWork(): %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	full := recs[0]
	if full.DueDate == nil || *full.DueDate != (syncdom.Date{Year: 2026, Month: 9, Day: 15}) {
		t.Errorf("DueDate = %+v", full.DueDate)
	}
	if full.DueTime == nil || full.DueTime.Hours == nil || *full.DueTime.Hours != 9 || full.DueTime.Minutes != nil {
		t.Errorf("DueTime = %+v", full.DueTime)
	}
	if full.MaxPoints == nil || *full.MaxPoints != 100 {
		t.Errorf("MaxPoints = %v", full.MaxPoints)
	}
	bare := recs[1]
	if bare.DueDate != nil || bare.DueTime != nil || bare.MaxPoints != nil {
		t.Errorf("bare record carries optionals: %+v", bare)
	}
}

func TestClient_Submissions(t *testing.T) {
	client, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/courses/c-1/courseWork/cw-1/studentSubmissions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"studentSubmissions":[{"id":"s-1","userId":"u-1","state":"TURNED_IN","late":true,"assignedGrade":87.5}]}`)
	}))
	defer closeSrv()

	var recs []syncdom.SubmissionRecord
	err := client.Submissions(context.Background(), "c-1", "cw-1", func(rec syncdom.SubmissionRecord) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("Submissions(): %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.State != course.SubmissionStateTurnedIn || !rec.Late {
		t.Errorf("record = %+v", rec)
	}
	if rec.AssignedGrade == nil || *rec.AssignedGrade != 87.5 {
		t.Errorf("AssignedGrade = %v", rec.AssignedGrade)
	}
	if rec.DraftGrade != nil {
		t.Errorf("DraftGrade = %v, want nil", rec.DraftGrade)
	}
}
