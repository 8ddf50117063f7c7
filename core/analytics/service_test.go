package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/access"
	"github.com/trezcool/masomo-lms/core/analytics"
	"github.com/trezcool/masomo-lms/core/assessment"
	"github.com/trezcool/masomo-lms/tests"
)

var questions = []assessment.Question{
	{Text: "Go has generics", Type: assessment.TrueFalseType, Correct: assessment.TrueFalse(true), Points: 1},
	{Text: "Go has exceptions", Type: assessment.TrueFalseType, Correct: assessment.TrueFalse(false), Points: 1},
}

func TestService(t *testing.T) {
	env := testutil.NewEnv()
	svc := analytics.NewService(env.UserRepo, env.CourseRepo, env.AsmtRepo)
	asmtSvc := env.AssessmentService()
	ctx := context.Background()

	now := time.Now()
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin@test.cd", "", access.RoleAdmin)
	owner := testutil.CreateUser(t, env.UserRepo, "Owner", "owner@test.cd", "", access.RoleInstructor)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other@test.cd", "", access.RoleInstructor)
	awe := testutil.CreateUser(t, env.UserRepo, "Awe", "awe@test.cd", "", access.RoleStudent)
	king := testutil.CreateUser(t, env.UserRepo, "King", "king@test.cd", "", access.RoleStudent)
	old := testutil.CreateUser(t, env.UserRepo, "Old", "old@test.cd", "", access.RoleStudent, now.AddDate(-1, 0, 0))

	goCourse := testutil.CreateCourse(t, env.CourseRepo, owner, "Go 101", 0)
	rustCourse := testutil.CreateCourse(t, env.CourseRepo, owner, "Rust 101", 0)
	testutil.CreateCourse(t, env.CourseRepo, other, "Zig 101", 0)

	testutil.Enroll(t, env.CourseRepo, awe, goCourse.ID)
	testutil.Enroll(t, env.CourseRepo, king, goCourse.ID)
	testutil.Enroll(t, env.CourseRepo, awe, rustCourse.ID)
	testutil.Enroll(t, env.CourseRepo, old, rustCourse.ID, now.AddDate(0, -2, 0))

	quiz := testutil.CreateAssessment(t, env.AsmtRepo, goCourse, questions, 2, true)
	_, err := asmtSvc.Submit(ctx, awe.Principal(), quiz.ID, assessment.Submission{Answers: []interface{}{true, false}, TimeSpent: 10})
	require.NoError(t, err)
	_, err = asmtSvc.Submit(ctx, awe.Principal(), quiz.ID, assessment.Submission{Answers: []interface{}{true, true}, TimeSpent: 5})
	require.NoError(t, err)

	t.Run("admin", func(t *testing.T) {
		_, err := svc.Admin(ctx, owner.Principal())
		assert.Equal(t, access.ErrForbidden, err)

		report, err := svc.Admin(ctx, admin.Principal())
		require.NoError(t, err)
		assert.Equal(t, 6, report.TotalUsers)
		assert.Equal(t, 3, report.TotalStudents)
		assert.Equal(t, 2, report.TotalInstructors)
		assert.Equal(t, 3, report.TotalCourses)
		assert.Equal(t, 1, report.TotalAssessments)
		assert.Equal(t, 4, report.TotalEnrollments)
		assert.Equal(t, 3, report.RecentEnrollments)
		require.Len(t, report.UserGrowth, 4)
		assert.Equal(t, 1, report.UserGrowth[0].Users)
		assert.Equal(t, 6, report.UserGrowth[3].Users)
		assert.Equal(t, now.UTC().Format("2006-01"), report.UserGrowth[3].Month)
	})

	t.Run("instructor", func(t *testing.T) {
		_, err := svc.Instructor(ctx, admin.Principal())
		assert.Equal(t, access.ErrForbidden, err)

		report, err := svc.Instructor(ctx, owner.Principal())
		require.NoError(t, err)
		assert.Equal(t, 2, report.TotalCourses)
		assert.Equal(t, 4, report.TotalEnrollments)
		assert.Equal(t, 1, report.TotalAssessments)
		assert.Nil(t, report.AverageRating)
		assert.Len(t, report.Courses, 2)

		report, err = svc.Instructor(ctx, other.Principal())
		require.NoError(t, err)
		assert.Equal(t, 1, report.TotalCourses)
		assert.Zero(t, report.TotalEnrollments)
	})

	t.Run("student", func(t *testing.T) {
		_, err := svc.Student(ctx, access.Principal{})
		assert.Equal(t, access.ErrUnauthenticated, err)

		report, err := svc.Student(ctx, awe.Principal())
		require.NoError(t, err)
		assert.Equal(t, 2, report.EnrolledCourses)
		assert.Equal(t, 2, report.CompletedAssessments)
		require.NotNil(t, report.AverageScore)
		assert.Equal(t, 75, *report.AverageScore)
		assert.Equal(t, 15, report.TotalStudyTime)
		assert.Len(t, report.Progress, 2)

		report, err = svc.Student(ctx, king.Principal())
		require.NoError(t, err)
		assert.Equal(t, 1, report.EnrolledCourses)
		assert.Nil(t, report.AverageScore)
		assert.NotNil(t, report.Progress)
	})

	t.Run("course", func(t *testing.T) {
		_, err := svc.Course(ctx, other.Principal(), goCourse.ID)
		assert.Equal(t, access.ErrForbidden, err)

		report, err := svc.Course(ctx, owner.Principal(), goCourse.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Enrollments)
		assert.Equal(t, 1, report.Assessments)
		require.NotNil(t, report.AverageScore)
		assert.Equal(t, 75, *report.AverageScore)
		assert.Equal(t, 50, report.CompletionRate)
		assert.Len(t, report.Progress, 2)

		report, err = svc.Course(ctx, admin.Principal(), rustCourse.ID)
		require.NoError(t, err)
		assert.Nil(t, report.AverageScore)
		assert.Zero(t, report.CompletionRate)
	})
}
