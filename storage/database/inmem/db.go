// Package inmemdb provides map-backed repository implementations used by
// service and API tests; they mirror the Postgres repositories' semantics.
package inmemdb

import (
	"sync"

	"github.com/ecampus-dev/aula/core/account"
	"github.com/ecampus-dev/aula/core/course"
	syncdom "github.com/ecampus-dev/aula/core/sync"
)

type DB struct {
	mu sync.RWMutex

	accounts    map[string]*account.Account
	courses     map[string]*course.Course
	enrollments map[string]*course.Enrollment
	coursework  map[string]*course.CourseWork
	submissions map[string]*course.Submission
	attempts    []syncdom.Attempt
}

func NewDB() *DB {
	return &DB{
		accounts:    make(map[string]*account.Account),
		courses:     make(map[string]*course.Course),
		enrollments: make(map[string]*course.Enrollment),
		coursework:  make(map[string]*course.CourseWork),
		submissions: make(map[string]*course.Submission),
	}
}

// Reset drops all stored data.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.accounts = make(map[string]*account.Account)
	db.courses = make(map[string]*course.Course)
	db.enrollments = make(map[string]*course.Enrollment)
	db.coursework = make(map[string]*course.CourseWork)
	db.submissions = make(map[string]*course.Submission)
	db.attempts = nil
}
