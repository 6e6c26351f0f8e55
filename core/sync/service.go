package sync

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/oauth2"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
	"github.com/ecampus-dev/aula/core/course"
)

// ClientFactory builds a vendor API client bound to an OAuth token.
type ClientFactory func(ctx context.Context, token *oauth2.Token) Client

// Result aggregates the counts of one sync run.
// Per-course sub-phase failures do not abort the run; they are collected
// here so the caller can tell a clean run from a partial one.
type Result struct {
	CoursesSynced      int      `json:"courses_synced"`
	CourseWorkSynced   int      `json:"coursework_synced"`
	SubmissionsSynced  int      `json:"submissions_synced"`
	SubmissionsSkipped int      `json:"submissions_skipped"`
	Failures           []string `json:"failures,omitempty"`

	err error
}

// Outcome reports the run's audit outcome: partial when any per-course
// sub-phase failed, success otherwise.
func (r *Result) Outcome() string {
	if len(r.Failures) > 0 {
		return OutcomePartial
	}
	return OutcomeSuccess
}

// Err returns the aggregated per-course failures, nil on a clean run.
func (r *Result) Err() error { return r.err }

func (r *Result) itemCount() int {
	return r.CoursesSynced + r.CourseWorkSynced + r.SubmissionsSynced
}

// Service drives a full sync run: course phase first, then roster,
// coursework and submissions per locally known course. Sequential, no
// internal parallelism; each upsert commits independently.
type Service struct {
	creds      *account.CredentialStore
	newClient  ClientFactory
	recon      *Reconciler
	courseRepo course.Repository
	auditRepo  AuditRepository
	mailSvc    core.EmailService
	logger     core.Logger
	conf       *core.Config
}

func NewService(
	creds *account.CredentialStore,
	newClient ClientFactory,
	accountRepo account.Repository,
	courseRepo course.Repository,
	auditRepo AuditRepository,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		creds:      creds,
		newClient:  newClient,
		recon:      NewReconciler(accountRepo, courseRepo),
		courseRepo: courseRepo,
		auditRepo:  auditRepo,
		mailSvc:    mailSvc,
		logger:     logger,
		conf:       conf,
	}
}

// Run performs one full sync as the given account. A credential or
// course-phase failure aborts the run and is returned to the caller;
// failures inside one course's roster/coursework/submission sub-phases are
// logged, aggregated into the Result and do not stop later courses.
func (svc *Service) Run(ctx context.Context, actor account.Account) (Result, error) {
	var res Result

	token, err := svc.creds.Valid(ctx, actor)
	if err != nil {
		svc.audit(ctx, actor, ResourceFull, OutcomeError, err.Error(), 0)
		return res, err
	}
	client := svc.newClient(ctx, token)

	// Course phase: any failure here aborts the remaining phases.
	res.CoursesSynced, err = svc.syncCourses(ctx, actor, client)
	if err != nil {
		svc.audit(ctx, actor, ResourceFull, OutcomeError, err.Error(), res.itemCount())
		svc.alert(actor, err)
		return res, err
	}

	// Per-course phase over every locally known active course, not just the
	// ones seen this run. Submissions come last: they need coursework rows.
	active := true
	courses, err := svc.courseRepo.QueryCourses(ctx, &course.QueryFilter{IsActive: &active}, nil)
	if err != nil {
		err = errors.Wrap(err, "listing local courses")
		svc.audit(ctx, actor, ResourceFull, OutcomeError, err.Error(), res.itemCount())
		return res, err
	}

	for _, crs := range courses {
		if err := svc.syncRoster(ctx, client, crs); err != nil {
			svc.fail(&res, crs, ResourceRoster, err)
		}

		cnt, err := svc.syncCourseWork(ctx, client, crs)
		res.CourseWorkSynced += cnt
		if err != nil {
			svc.fail(&res, crs, ResourceCourseWork, err)
		}

		cnt, skipped, err := svc.syncSubmissions(ctx, client, crs)
		res.SubmissionsSynced += cnt
		res.SubmissionsSkipped += skipped
		if err != nil {
			svc.fail(&res, crs, ResourceSubmissions, err)
		}
	}

	svc.audit(ctx, actor, ResourceFull, res.Outcome(), strings.Join(res.Failures, "; "), res.itemCount())
	return res, nil
}

// syncCourses upserts every upstream course and writes the phase's audit
// entry unconditionally.
func (svc *Service) syncCourses(ctx context.Context, actor account.Account, client Client) (int, error) {
	var count int
	err := client.Courses(ctx, func(rec CourseRecord) error {
		if _, err := svc.recon.Course(ctx, rec); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		err = errors.Wrap(err, "syncing courses")
		svc.audit(ctx, actor, ResourceCourses, OutcomeError, err.Error(), count)
		return count, err
	}
	svc.audit(ctx, actor, ResourceCourses, OutcomeSuccess, "", count)
	return count, nil
}

func (svc *Service) syncRoster(ctx context.Context, client Client, crs course.Course) error {
	return client.Roster(ctx, crs.ExternalID, func(rec RosterRecord) error {
		return svc.recon.RosterEntry(ctx, crs, rec)
	})
}

func (svc *Service) syncCourseWork(ctx context.Context, client Client, crs course.Course) (int, error) {
	var count int
	err := client.CourseWork(ctx, crs.ExternalID, func(rec CourseWorkRecord) error {
		if _, err := svc.recon.CourseWork(ctx, crs, rec); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// syncSubmissions walks the locally known coursework of the course.
// Submissions whose account is unknown locally are skip-counted, not
// errors.
func (svc *Service) syncSubmissions(ctx context.Context, client Client, crs course.Course) (int, int, error) {
	cws, err := svc.courseRepo.QueryCourseWork(ctx, &course.CourseWorkFilter{CourseID: crs.ID})
	if err != nil {
		return 0, 0, errors.Wrap(err, "listing local coursework")
	}

	var count, skipped int
	for _, cw := range cws {
		cw := cw
		err = client.Submissions(ctx, crs.ExternalID, cw.ExternalID, func(rec SubmissionRecord) error {
			synced, err := svc.recon.Submission(ctx, cw, rec)
			if err != nil {
				return err
			}
			if synced {
				count++
			} else {
				skipped++
			}
			return nil
		})
		if err != nil {
			return count, skipped, err
		}
	}
	return count, skipped, nil
}

// fail records a per-course sub-phase failure: logged out-of-band and
// folded into the result, never aborting the run.
func (svc *Service) fail(res *Result, crs course.Course, resource string, err error) {
	msg := fmt.Sprintf("syncing %s for course %q: %v", resource, crs.Name, err)
	svc.logger.Error(msg, err)
	res.Failures = append(res.Failures, msg)
	res.err = multierr.Append(res.err, errors.Wrapf(err, "%s %s", resource, crs.ExternalID))
}

func (svc *Service) audit(ctx context.Context, actor account.Account, resource, outcome, message string, count int) {
	att := Attempt{
		AccountID: actor.ID,
		Resource:  resource,
		Outcome:   outcome,
		Message:   message,
		ItemCount: count,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := svc.auditRepo.CreateAttempt(ctx, att); err != nil {
		svc.logger.Error(fmt.Sprintf("recording sync attempt: %v", err), err)
	}
}

// alert notifies the admin address about a whole-run abort.
func (svc *Service) alert(actor account.Account, cause error) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{svc.conf.AdminEmail},
		Subject:      "Classroom sync failed",
		TemplateName: "sync-failed",
		TemplateData: struct {
			Account string
			Error   string
			Time    string
		}{
			Account: actor.Email,
			Error:   cause.Error(),
			Time:    time.Now().UTC().Format(time.RFC1123),
		},
	})
}

// Attempts lists audit entries, most recent first by default.
func (svc *Service) Attempts(ctx context.Context, filter *AttemptFilter, ordering []core.DBOrdering) ([]Attempt, error) {
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	return svc.auditRepo.QueryAttempts(ctx, filter, ordering)
}
