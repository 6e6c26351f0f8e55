// Package classroom implements the Classroom REST API accessor used by
// the sync engine. Listing calls walk every page transparently; callers
// never see page tokens.
package classroom

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ecampus-dev/aula/core/course"
	syncdom "github.com/ecampus-dev/aula/core/sync"
)

const pageSize = "100"

type Client struct {
	http    *http.Client
	baseURL string
}

var _ syncdom.Client = (*Client)(nil)

// NewClient binds a client to an OAuth token. baseURL is the API root
// without a trailing slash, e.g. https://classroom.googleapis.com/v1.
func NewClient(ctx context.Context, oauthConf *oauth2.Config, token *oauth2.Token, baseURL string) *Client {
	return &Client{
		http:    oauthConf.Client(ctx, token),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// get performs one API call. Non-2xx responses become *sync.UpstreamError;
// no retries here.
func (c *Client) get(ctx context.Context, path, pageToken string, dest interface{}) error {
	q := url.Values{"pageSize": {pageSize}}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &syncdom.UpstreamError{Status: res.StatusCode, Body: string(body)}
	}
	return json.Unmarshal(body, dest)
}

func (c *Client) Courses(ctx context.Context, fn syncdom.CourseFunc) error {
	var token string
	for {
		var page coursesPage
		if err := c.get(ctx, "/courses", token, &page); err != nil {
			return err
		}
		for _, crs := range page.Courses {
			rec, err := crs.record()
			if err != nil {
				return err
			}
			if err = fn(rec); err != nil {
				return err
			}
		}
		if page.NextPageToken == "" {
			return nil
		}
		token = page.NextPageToken
	}
}

// Roster walks the course's students first, then its teachers.
func (c *Client) Roster(ctx context.Context, courseExtID string, fn syncdom.RosterFunc) error {
	var token string
	for {
		var page studentsPage
		if err := c.get(ctx, "/courses/"+courseExtID+"/students", token, &page); err != nil {
			return err
		}
		for _, entry := range page.Students {
			rec, err := entry.record(course.EnrollmentRoleStudent)
			if err != nil {
				return err
			}
			if err = fn(rec); err != nil {
				return err
			}
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	token = ""
	for {
		var page teachersPage
		if err := c.get(ctx, "/courses/"+courseExtID+"/teachers", token, &page); err != nil {
			return err
		}
		for _, entry := range page.Teachers {
			rec, err := entry.record(course.EnrollmentRoleTeacher)
			if err != nil {
				return err
			}
			if err = fn(rec); err != nil {
				return err
			}
		}
		if page.NextPageToken == "" {
			return nil
		}
		token = page.NextPageToken
	}
}

func (c *Client) CourseWork(ctx context.Context, courseExtID string, fn syncdom.CourseWorkFunc) error {
	var token string
	for {
		var page courseWorkPage
		if err := c.get(ctx, "/courses/"+courseExtID+"/courseWork", token, &page); err != nil {
			return err
		}
		for _, cw := range page.CourseWork {
			rec, err := cw.record()
			if err != nil {
				return err
			}
			if err = fn(rec); err != nil {
				return err
			}
		}
		if page.NextPageToken == "" {
			return nil
		}
		token = page.NextPageToken
	}
}

func (c *Client) Submissions(ctx context.Context, courseExtID, courseWorkExtID string, fn syncdom.SubmissionFunc) error {
	var token string
	for {
		var page submissionsPage
		path := "/courses/" + courseExtID + "/courseWork/" + courseWorkExtID + "/studentSubmissions"
		if err := c.get(ctx, path, token, &page); err != nil {
			return err
		}
		for _, sub := range page.StudentSubmissions {
			rec, err := sub.record()
			if err != nil {
				return err
			}
			if err = fn(rec); err != nil {
				return err
			}
		}
		if page.NextPageToken == "" {
			return nil
		}
		token = page.NextPageToken
	}
}

// parseTime is lenient: absent or unparsable timestamps map to the zero
// time, matching upstream omission of unset fields.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (p coursePayload) record() (syncdom.CourseRecord, error) {
	if p.ID == "" {
		return syncdom.CourseRecord{}, &syncdom.MalformedRecordError{Resource: syncdom.ResourceCourses, Field: "id"}
	}
	return syncdom.CourseRecord{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Section:        p.Section,
		Room:           p.Room,
		OwnerID:        p.OwnerID,
		CreationTime:   parseTime(p.CreationTime),
		UpdateTime:     parseTime(p.UpdateTime),
		EnrollmentCode: p.EnrollmentCode,
		CourseState:    p.CourseState,
		AlternateLink:  p.AlternateLink,
	}, nil
}

func (p rosterPayload) record(role string) (syncdom.RosterRecord, error) {
	if p.UserID == "" {
		return syncdom.RosterRecord{}, &syncdom.MalformedRecordError{Resource: syncdom.ResourceRoster, Field: "userId"}
	}
	return syncdom.RosterRecord{
		UserID:   p.UserID,
		Email:    p.Profile.EmailAddress,
		FullName: p.Profile.Name.FullName,
		PhotoURL: p.Profile.PhotoURL,
		Role:     role,
	}, nil
}

func (p courseWorkPayload) record() (syncdom.CourseWorkRecord, error) {
	if p.ID == "" {
		return syncdom.CourseWorkRecord{}, &syncdom.MalformedRecordError{Resource: syncdom.ResourceCourseWork, Field: "id"}
	}
	rec := syncdom.CourseWorkRecord{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		State:         p.State,
		AlternateLink: p.AlternateLink,
		CreationTime:  parseTime(p.CreationTime),
		UpdateTime:    parseTime(p.UpdateTime),
		MaxPoints:     p.MaxPoints,
		WorkType:      p.WorkType,
	}
	if p.DueDate != nil {
		rec.DueDate = &syncdom.Date{Year: p.DueDate.Year, Month: p.DueDate.Month, Day: p.DueDate.Day}
	}
	if p.DueTime != nil {
		rec.DueTime = &syncdom.TimeOfDay{Hours: p.DueTime.Hours, Minutes: p.DueTime.Minutes}
	}
	return rec, nil
}

func (p submissionPayload) record() (syncdom.SubmissionRecord, error) {
	if p.ID == "" {
		return syncdom.SubmissionRecord{}, &syncdom.MalformedRecordError{Resource: syncdom.ResourceSubmissions, Field: "id"}
	}
	if p.UserID == "" {
		return syncdom.SubmissionRecord{}, &syncdom.MalformedRecordError{Resource: syncdom.ResourceSubmissions, Field: "userId"}
	}
	return syncdom.SubmissionRecord{
		ID:            p.ID,
		UserID:        p.UserID,
		CreationTime:  parseTime(p.CreationTime),
		UpdateTime:    parseTime(p.UpdateTime),
		State:         p.State,
		Late:          p.Late,
		DraftGrade:    p.DraftGrade,
		AssignedGrade: p.AssignedGrade,
		AlternateLink: p.AlternateLink,
	}, nil
}
