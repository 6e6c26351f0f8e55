package sync_test

import (
	"context"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
	"github.com/ecampus-dev/aula/core/course"
	syncdom "github.com/ecampus-dev/aula/core/sync"
	dummymail "github.com/ecampus-dev/aula/services/email/dummy"
	inmemdb "github.com/ecampus-dev/aula/storage/database/inmem"
	testutil "github.com/ecampus-dev/aula/tests"
)

// fakeClient feeds canned records, keyed on external ids.
type fakeClient struct {
	courses     []syncdom.CourseRecord
	rosters     map[string][]syncdom.RosterRecord     // by course ext id
	coursework  map[string][]syncdom.CourseWorkRecord // by course ext id
	submissions map[string][]syncdom.SubmissionRecord // by coursework ext id

	coursesErr error
	rosterErr  map[string]error // by course ext id
}

var _ syncdom.Client = (*fakeClient)(nil)

func (c *fakeClient) Courses(_ context.Context, fn syncdom.CourseFunc) error {
	if c.coursesErr != nil {
		return c.coursesErr
	}
	for _, rec := range c.courses {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeClient) Roster(_ context.Context, courseExtID string, fn syncdom.RosterFunc) error {
	if err := c.rosterErr[courseExtID]; err != nil {
		return err
	}
	for _, rec := range c.rosters[courseExtID] {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeClient) CourseWork(_ context.Context, courseExtID string, fn syncdom.CourseWorkFunc) error {
	for _, rec := range c.coursework[courseExtID] {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeClient) Submissions(_ context.Context, _, courseWorkExtID string, fn syncdom.SubmissionFunc) error {
	for _, rec := range c.submissions[courseWorkExtID] {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func testConf(t *testing.T) *core.Config {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd(): %v", err)
	}
	return &core.Config{
		TestMode:        true,
		AppName:         "Aula",
		WorkDir:         filepath.Join(wd, "..", ".."),
		FrontendBaseURL: "http://localhost:3000",
		AdminEmail:      mail.Address{Address: "admin@test.cd"},
	}
}

type syncFixture struct {
	svc        *syncdom.Service
	client     *fakeClient
	acctRepo   account.Repository
	courseRepo course.Repository
	actor      account.Account
}

func newSyncFixture(t *testing.T, conf *core.Config) *syncFixture {
	t.Helper()

	db := inmemdb.NewDB()
	acctRepo := inmemdb.NewAccountRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	auditRepo := inmemdb.NewAuditRepository(db)

	client := &fakeClient{
		rosters:     make(map[string][]syncdom.RosterRecord),
		coursework:  make(map[string][]syncdom.CourseWorkRecord),
		submissions: make(map[string][]syncdom.SubmissionRecord),
		rosterErr:   make(map[string]error),
	}
	factory := func(_ context.Context, _ *oauth2.Token) syncdom.Client { return client }

	creds := account.NewCredentialStore(acctRepo, conf)
	svc := syncdom.NewService(
		creds, factory, acctRepo, courseRepo, auditRepo,
		dummymail.NewService(conf), testutil.Logger{}, conf,
	)

	actor := testutil.CreateAccount(t, acctRepo, "Coord", "coord@test.cd", "", account.RoleCoordinator, "", true)
	actor.AccessToken = "tok"
	actor.TokenExpiry = time.Now().Add(time.Hour)
	actor, err := acctRepo.UpdateAccount(context.Background(), actor)
	if err != nil {
		t.Fatalf("UpdateAccount(): %v", err)
	}

	return &syncFixture{svc: svc, client: client, acctRepo: acctRepo, courseRepo: courseRepo, actor: actor}
}

func (f *syncFixture) attempts(t *testing.T, resource string) []syncdom.Attempt {
	t.Helper()
	atts, err := f.svc.Attempts(context.Background(), &syncdom.AttemptFilter{Resource: resource}, nil)
	if err != nil {
		t.Fatalf("Attempts(): %v", err)
	}
	return atts
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()
	fix := newSyncFixture(t, testConf(t))

	fix.client.courses = []syncdom.CourseRecord{
		{ID: "c-1", Name: "Algebra"},
		{ID: "c-2", Name: "Physics"},
	}
	fix.client.rosters["c-1"] = []syncdom.RosterRecord{
		{UserID: "u-1", Email: "a@test.cd", FullName: "A", Role: course.EnrollmentRoleStudent},
		{UserID: "u-2", Email: "t@test.cd", FullName: "T", Role: course.EnrollmentRoleTeacher},
	}
	fix.client.coursework["c-1"] = []syncdom.CourseWorkRecord{{ID: "cw-1", Title: "HW 1"}}
	fix.client.submissions["cw-1"] = []syncdom.SubmissionRecord{
		{ID: "s-1", UserID: "u-1", State: course.SubmissionStateTurnedIn},
		{ID: "s-2", UserID: "ghost"}, // unknown locally: skipped
	}

	res, err := fix.svc.Run(ctx, fix.actor)
	if err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if res.CoursesSynced != 2 {
		t.Errorf("CoursesSynced = %d, want 2", res.CoursesSynced)
	}
	if res.CourseWorkSynced != 1 {
		t.Errorf("CourseWorkSynced = %d, want 1", res.CourseWorkSynced)
	}
	if res.SubmissionsSynced != 1 {
		t.Errorf("SubmissionsSynced = %d, want 1", res.SubmissionsSynced)
	}
	if res.SubmissionsSkipped != 1 {
		t.Errorf("SubmissionsSkipped = %d, want 1", res.SubmissionsSkipped)
	}
	if res.Outcome() != syncdom.OutcomeSuccess {
		t.Errorf("Outcome() = %s, want %s", res.Outcome(), syncdom.OutcomeSuccess)
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v, want nil", res.Err())
	}

	// second run stays idempotent
	res, err = fix.svc.Run(ctx, fix.actor)
	if err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if res.CoursesSynced != 2 || res.CourseWorkSynced != 1 || res.SubmissionsSynced != 1 {
		t.Errorf("second run counts = %+v", res)
	}
	courses, _ := fix.courseRepo.QueryCourses(ctx, nil, nil)
	if len(courses) != 2 {
		t.Errorf("len(courses) = %d, want 2", len(courses))
	}

	// audits: per-run courses + full entries
	if atts := fix.attempts(t, syncdom.ResourceCourses); len(atts) != 2 {
		t.Errorf("len(courses attempts) = %d, want 2", len(atts))
	}
	atts := fix.attempts(t, syncdom.ResourceFull)
	if len(atts) != 2 {
		t.Fatalf("len(full attempts) = %d, want 2", len(atts))
	}
	for _, att := range atts {
		if att.Outcome != syncdom.OutcomeSuccess {
			t.Errorf("full attempt outcome = %s, want %s", att.Outcome, syncdom.OutcomeSuccess)
		}
		if att.AccountID != fix.actor.ID {
			t.Errorf("full attempt account = %s, want %s", att.AccountID, fix.actor.ID)
		}
	}
	if atts[0].ItemCount != 4 {
		t.Errorf("full attempt item count = %d, want 4", atts[0].ItemCount)
	}
}

func TestService_Run_noCredentials(t *testing.T) {
	ctx := context.Background()
	fix := newSyncFixture(t, testConf(t))

	bare := testutil.CreateAccount(t, fix.acctRepo, "Bare", "bare@test.cd", "", account.RoleCoordinator, "", true)
	if _, err := fix.svc.Run(ctx, bare); err != account.ErrNoCredentials {
		t.Errorf("Run() error = %v, want %v", err, account.ErrNoCredentials)
	}

	atts := fix.attempts(t, syncdom.ResourceFull)
	if len(atts) != 1 {
		t.Fatalf("len(full attempts) = %d, want 1", len(atts))
	}
	if atts[0].Outcome != syncdom.OutcomeError {
		t.Errorf("outcome = %s, want %s", atts[0].Outcome, syncdom.OutcomeError)
	}
}

func TestService_Run_coursePhaseAborts(t *testing.T) {
	ctx := context.Background()
	conf := testConf(t)
	core.ParseEmailTemplates(conf, testutil.Logger{})
	dummymail.Reset()

	fix := newSyncFixture(t, conf)
	fix.client.coursesErr = &syncdom.UpstreamError{Status: 500, Body: "boom"}

	if _, err := fix.svc.Run(ctx, fix.actor); err == nil {
		t.Fatal("Run() expected an error")
	}

	for _, resource := range []string{syncdom.ResourceCourses, syncdom.ResourceFull} {
		atts := fix.attempts(t, resource)
		if len(atts) != 1 {
			t.Fatalf("len(%s attempts) = %d, want 1", resource, len(atts))
		}
		if atts[0].Outcome != syncdom.OutcomeError {
			t.Errorf("%s outcome = %s, want %s", resource, atts[0].Outcome, syncdom.OutcomeError)
		}
		if !strings.Contains(atts[0].Message, "upstream returned 500") {
			t.Errorf("%s message = %q", resource, atts[0].Message)
		}
	}

	// admin alert went out
	if len(dummymail.SentMessages) != 1 {
		t.Fatalf("len(SentMessages) = %d, want 1", len(dummymail.SentMessages))
	}
	msg := dummymail.SentMessages[0]
	if msg.To[0] != conf.AdminEmail {
		t.Errorf("To = %v, want %v", msg.To[0], conf.AdminEmail)
	}
	if !strings.Contains(msg.TextContent, fix.actor.Email) {
		t.Errorf("text content does not mention the sync account:\n%s", msg.TextContent)
	}
	if !strings.Contains(msg.HTMLContent, "upstream returned 500") {
		t.Errorf("HTML content does not mention the cause:\n%s", msg.HTMLContent)
	}
}

func TestService_Run_perCourseIsolation(t *testing.T) {
	ctx := context.Background()
	fix := newSyncFixture(t, testConf(t))

	fix.client.courses = []syncdom.CourseRecord{
		{ID: "c-1", Name: "Algebra"},
		{ID: "c-2", Name: "Physics"},
	}
	fix.client.rosterErr["c-1"] = &syncdom.UpstreamError{Status: 503, Body: "nope"}
	fix.client.rosters["c-2"] = []syncdom.RosterRecord{
		{UserID: "u-1", Email: "a@test.cd", FullName: "A", Role: course.EnrollmentRoleStudent},
	}
	fix.client.coursework["c-2"] = []syncdom.CourseWorkRecord{{ID: "cw-2", Title: "Lab"}}

	res, err := fix.svc.Run(ctx, fix.actor)
	if err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if res.Outcome() != syncdom.OutcomePartial {
		t.Errorf("Outcome() = %s, want %s", res.Outcome(), syncdom.OutcomePartial)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("len(Failures) = %d, want 1: %v", len(res.Failures), res.Failures)
	}
	if !strings.Contains(res.Failures[0], "Algebra") {
		t.Errorf("failure does not name the course: %s", res.Failures[0])
	}
	if res.Err() == nil {
		t.Error("Err() = nil, want aggregated failure")
	}
	// the healthy course still got its coursework
	if res.CourseWorkSynced != 1 {
		t.Errorf("CourseWorkSynced = %d, want 1", res.CourseWorkSynced)
	}

	atts := fix.attempts(t, syncdom.ResourceFull)
	if len(atts) != 1 {
		t.Fatalf("len(full attempts) = %d, want 1", len(atts))
	}
	if atts[0].Outcome != syncdom.OutcomePartial {
		t.Errorf("full outcome = %s, want %s", atts[0].Outcome, syncdom.OutcomePartial)
	}
}

func TestService_Run_skipsInactiveCourses(t *testing.T) {
	ctx := context.Background()
	fix := newSyncFixture(t, testConf(t))

	retired := testutil.CreateCourse(t, fix.courseRepo, "Retired", "c-old", "", false)
	fix.client.coursework["c-old"] = []syncdom.CourseWorkRecord{{ID: "cw-old", Title: "Old HW"}}

	res, err := fix.svc.Run(ctx, fix.actor)
	if err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if res.CourseWorkSynced != 0 {
		t.Errorf("CourseWorkSynced = %d, want 0", res.CourseWorkSynced)
	}
	cws, _ := fix.courseRepo.QueryCourseWork(ctx, &course.CourseWorkFilter{CourseID: retired.ID})
	if len(cws) != 0 {
		t.Errorf("len(coursework) = %d, want 0", len(cws))
	}
}
