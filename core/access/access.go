// Package access holds the role and ownership rules of the platform.
// Authorize is pure: it never touches storage.
package access

import (
	"github.com/trezcool/masomo-lms/core"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

var Roles = []Role{RoleStudent, RoleInstructor, RoleAdmin}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller of an operation.
// The zero Principal is anonymous.
type Principal struct {
	UserID string
	Name   string
	Email  string
	Role   Role
}

func (p Principal) IsAuthenticated() bool { return p.UserID != "" }
func (p Principal) IsAdmin() bool         { return p.IsAuthenticated() && p.Role == RoleAdmin }
func (p Principal) IsInstructor() bool    { return p.IsAuthenticated() && p.Role == RoleInstructor }
func (p Principal) IsStudent() bool       { return p.IsAuthenticated() && p.Role == RoleStudent }

// Owns reports whether p owns a resource belonging to ownerID.
func (p Principal) Owns(ownerID string) bool {
	return p.IsAuthenticated() && ownerID != "" && p.UserID == ownerID
}

// CanSeeAnswerKeys reports whether p may see the correct answers of an assessment owned by ownerID.
func (p Principal) CanSeeAnswerKeys(ownerID string) bool {
	return p.IsAdmin() || p.Owns(ownerID)
}

type Action string

const (
	ActionEnroll         Action = "course:enroll"
	ActionListEnrolled   Action = "course:list-enrolled"
	ActionListOwnCourses Action = "course:list-own"
	ActionCreateCourse   Action = "course:create"
	ActionUpdateCourse   Action = "course:update"
	ActionDeleteCourse   Action = "course:delete"
	ActionViewRoster     Action = "course:roster"

	ActionCreateAssessment Action = "assessment:create"
	ActionUpdateAssessment Action = "assessment:update"
	ActionDeleteAssessment Action = "assessment:delete"
	ActionViewAssessment   Action = "assessment:view"
	ActionSubmitAssessment Action = "assessment:submit"
	ActionListOwnResults   Action = "assessment:list-own-results"

	ActionManageUsers Action = "user:manage"

	ActionAdminAnalytics      Action = "analytics:admin"
	ActionInstructorAnalytics Action = "analytics:instructor"
	ActionStudentAnalytics    Action = "analytics:student"
	ActionCourseAnalytics     Action = "analytics:course"
)

var (
	ErrUnauthenticated = core.NewError(core.KindUnauthenticated, "access denied")
	ErrForbidden       = core.NewError(core.KindForbidden, "forbidden")
)

type rule struct {
	roles []Role
	// owned rules require instructors to own the target resource; admins always pass.
	owned bool
}

var (
	anyone   = []Role{RoleStudent, RoleInstructor, RoleAdmin}
	students = []Role{RoleStudent}
	staff    = []Role{RoleInstructor, RoleAdmin}

	rules = map[Action]rule{
		ActionEnroll:         {roles: students},
		ActionListEnrolled:   {roles: students},
		ActionListOwnCourses: {roles: staff},
		ActionCreateCourse:   {roles: staff},
		ActionUpdateCourse:   {roles: staff, owned: true},
		ActionDeleteCourse:   {roles: staff, owned: true},
		ActionViewRoster:     {roles: staff, owned: true},

		ActionCreateAssessment: {roles: staff, owned: true},
		ActionUpdateAssessment: {roles: staff, owned: true},
		ActionDeleteAssessment: {roles: staff, owned: true},
		ActionViewAssessment:   {roles: anyone},
		ActionSubmitAssessment: {roles: students},
		ActionListOwnResults:   {roles: students},

		ActionManageUsers: {roles: []Role{RoleAdmin}},

		ActionAdminAnalytics:      {roles: []Role{RoleAdmin}},
		ActionInstructorAnalytics: {roles: []Role{RoleInstructor}},
		ActionStudentAnalytics:    {roles: students},
		ActionCourseAnalytics:     {roles: staff, owned: true},
	}
)

// Authorize checks that p may perform action.
// For owned actions, ownerID is the id of the user owning the target resource
// (the course instructor for courses and their assessments).
//
// Returns ErrUnauthenticated for anonymous principals and ErrForbidden when the role
// or ownership check fails.
func Authorize(p Principal, action Action, ownerID ...string) error {
	if !p.IsAuthenticated() {
		return ErrUnauthenticated
	}

	r, ok := rules[action]
	if !ok || !hasRole(p.Role, r.roles) {
		return ErrForbidden
	}
	if r.owned && !p.IsAdmin() {
		if len(ownerID) == 0 || !p.Owns(ownerID[0]) {
			return ErrForbidden
		}
	}
	return nil
}

func hasRole(role Role, roles []Role) bool {
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}
