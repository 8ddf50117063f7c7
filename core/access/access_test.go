package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-lms/core"
)

func TestAuthorize(t *testing.T) {
	var (
		anonymous  = Principal{}
		student    = Principal{UserID: "s1", Role: RoleStudent}
		instructor = Principal{UserID: "i1", Role: RoleInstructor}
		other      = Principal{UserID: "i2", Role: RoleInstructor}
		admin      = Principal{UserID: "a1", Role: RoleAdmin}
	)

	tests := []struct {
		name      string
		principal Principal
		action    Action
		owner     []string
		wantErr   error
	}{
		{name: "anonymous cannot enroll", principal: anonymous, action: ActionEnroll, wantErr: ErrUnauthenticated},
		{name: "anonymous cannot view assessment", principal: anonymous, action: ActionViewAssessment, wantErr: ErrUnauthenticated},
		{name: "student enrolls", principal: student, action: ActionEnroll},
		{name: "instructor cannot enroll", principal: instructor, action: ActionEnroll, wantErr: ErrForbidden},
		{name: "admin cannot enroll", principal: admin, action: ActionEnroll, wantErr: ErrForbidden},
		{name: "student cannot create course", principal: student, action: ActionCreateCourse, wantErr: ErrForbidden},
		{name: "instructor creates course", principal: instructor, action: ActionCreateCourse},
		{name: "admin creates course", principal: admin, action: ActionCreateCourse},
		{name: "owner updates course", principal: instructor, action: ActionUpdateCourse, owner: []string{"i1"}},
		{name: "other instructor cannot update course", principal: other, action: ActionUpdateCourse, owner: []string{"i1"}, wantErr: ErrForbidden},
		{name: "owned action without owner", principal: instructor, action: ActionDeleteCourse, wantErr: ErrForbidden},
		{name: "admin updates any course", principal: admin, action: ActionUpdateCourse, owner: []string{"i1"}},
		{name: "student cannot delete own-id course", principal: student, action: ActionDeleteCourse, owner: []string{"s1"}, wantErr: ErrForbidden},
		{name: "owner creates assessment", principal: instructor, action: ActionCreateAssessment, owner: []string{"i1"}},
		{name: "other instructor cannot create assessment", principal: other, action: ActionCreateAssessment, owner: []string{"i1"}, wantErr: ErrForbidden},
		{name: "student views assessment", principal: student, action: ActionViewAssessment},
		{name: "student submits", principal: student, action: ActionSubmitAssessment},
		{name: "instructor cannot submit", principal: instructor, action: ActionSubmitAssessment, wantErr: ErrForbidden},
		{name: "admin manages users", principal: admin, action: ActionManageUsers},
		{name: "instructor cannot manage users", principal: instructor, action: ActionManageUsers, wantErr: ErrForbidden},
		{name: "instructor analytics", principal: instructor, action: ActionInstructorAnalytics},
		{name: "admin has no instructor analytics", principal: admin, action: ActionInstructorAnalytics, wantErr: ErrForbidden},
		{name: "admin sees course analytics", principal: admin, action: ActionCourseAnalytics, owner: []string{"i1"}},
		{name: "unknown action", principal: admin, action: Action("lol"), wantErr: ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.principal, tt.action, tt.owner...)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestAuthorize_errorKinds(t *testing.T) {
	assert.Equal(t, core.KindUnauthenticated, core.KindOf(Authorize(Principal{}, ActionEnroll)))
	assert.Equal(t, core.KindForbidden, core.KindOf(Authorize(Principal{UserID: "x", Role: RoleStudent}, ActionManageUsers)))
}

func TestPrincipal_CanSeeAnswerKeys(t *testing.T) {
	assert.True(t, Principal{UserID: "i1", Role: RoleInstructor}.CanSeeAnswerKeys("i1"))
	assert.False(t, Principal{UserID: "i2", Role: RoleInstructor}.CanSeeAnswerKeys("i1"))
	assert.True(t, Principal{UserID: "a1", Role: RoleAdmin}.CanSeeAnswerKeys("i1"))
	assert.False(t, Principal{UserID: "s1", Role: RoleStudent}.CanSeeAnswerKeys("i1"))
	assert.False(t, Principal{}.CanSeeAnswerKeys(""))
}

func TestRole_Valid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid())
	}
	assert.False(t, Role("teacher").Valid())
	assert.False(t, Role("").Valid())
}
