package inmemdb

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/assessment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/user"
)

// DB is an in-memory database. Tables are locked in declaration order.
type (
	DB struct {
		txMu sync.Mutex

		user       *userTable
		course     *courseTable
		enrollment *enrollmentTable
		assessment *assessmentTable
		result     *resultTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	enrollmentKey struct {
		studentID string
		courseID  string
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[enrollmentKey]course.Enrollment
	}

	assessmentTable struct {
		sync.RWMutex
		table map[string]*assessment.Assessment
	}

	resultTable struct {
		sync.RWMutex
		table map[string]*assessment.Result
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		course:     &courseTable{table: make(map[string]*course.Course)},
		enrollment: &enrollmentTable{table: make(map[enrollmentKey]course.Enrollment)},
		assessment: &assessmentTable{table: make(map[string]*assessment.Assessment)},
		result:     &resultTable{table: make(map[string]*assessment.Result)},
	}
}

// WithinTx runs fn while holding the database transaction lock: transactions are serialized.
// Repositories ignore the executor passed to fn.
func (db *DB) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}

func newID() string {
	return uuid.New().String()
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func compareStrings(a, b string) int {
	return strings.Compare(a, b)
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
