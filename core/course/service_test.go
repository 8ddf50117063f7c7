package course_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/tests"
)

const catalogKey = core.CatalogCacheKey

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.CourseService()
	ctx := context.Background()

	student := testutil.CreateUser(t, env.UserRepo, "Student", "student@test.cd", "", access.RoleStudent)
	instructor := testutil.CreateUser(t, env.UserRepo, "Instructor", "instructor@test.cd", "", access.RoleInstructor)

	_, err := svc.Create(ctx, access.Principal{}, course.NewCourse{Title: "Go", Description: "Learn Go"})
	assert.Equal(t, access.ErrUnauthenticated, err)

	_, err = svc.Create(ctx, student.Principal(), course.NewCourse{Title: "Go", Description: "Learn Go"})
	assert.Equal(t, access.ErrForbidden, err)

	_, err = svc.Create(ctx, instructor.Principal(), course.NewCourse{Title: "   ", Description: "Learn Go"})
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	c, err := svc.Create(ctx, instructor.Principal(), course.NewCourse{
		Title:       "  Go 101 ",
		Description: "Learn Go",
		Category:    "Programming",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Go 101", c.Title)
	assert.Equal(t, instructor.ID, c.InstructorID)
	assert.Equal(t, instructor.Name, c.InstructorName)
	assert.Equal(t, course.Beginner, c.Difficulty)
	assert.NotNil(t, c.Materials)
	assert.Zero(t, c.EnrolledCount)
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.CourseService()
	ctx := context.Background()

	instructor := testutil.CreateUser(t, env.UserRepo, "Instructor", "instructor@test.cd", "", access.RoleInstructor)
	now := time.Now()
	goCourse := testutil.CreateCourse(t, env.CourseRepo, instructor, "Go 101", 0, now.Add(-2*time.Hour))
	rustCourse := testutil.CreateCourse(t, env.CourseRepo, instructor, "Rust 101", 0, now.Add(-time.Hour))

	courses, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, rustCourse.ID, courses[0].ID, "latest first")
	assert.Equal(t, goCourse.ID, courses[1].ID)
	assert.True(t, env.Cache.Has(catalogKey))

	courses, err = svc.Query(ctx, &course.QueryFilter{Search: "rust"}, nil)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, rustCourse.ID, courses[0].ID)

	courses, err = svc.Query(ctx, nil, []core.DBOrdering{{Field: "title", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, goCourse.ID, courses[0].ID)

	_, err = svc.Query(ctx, nil, []core.DBOrdering{{Field: "lol"}})
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	// the catalog is served from the cache until invalidated
	testutil.CreateCourse(t, env.CourseRepo, instructor, "Zig 101", 0)
	courses, err = svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, courses, 2)
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.CourseService()
	ctx := context.Background()

	owner := testutil.CreateUser(t, env.UserRepo, "Owner", "owner@test.cd", "", access.RoleInstructor)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other@test.cd", "", access.RoleInstructor)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin@test.cd", "", access.RoleAdmin)
	c := testutil.CreateCourse(t, env.CourseRepo, owner, "Go 101", 0)

	_, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	require.True(t, env.Cache.Has(catalogKey))

	title := "Go 102"
	_, err = svc.Update(ctx, other.Principal(), c.ID, course.UpdateCourse{Title: &title})
	assert.Equal(t, access.ErrForbidden, err)

	_, err = svc.Update(ctx, owner.Principal(), "lol", course.UpdateCourse{Title: &title})
	assert.Equal(t, course.ErrNotFound, err)

	updated, err := svc.Update(ctx, owner.Principal(), c.ID, course.UpdateCourse{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Go 102", updated.Title)
	assert.Equal(t, c.Description, updated.Description)
	assert.False(t, env.Cache.Has(catalogKey))

	maxEnrollments := 5
	updated, err = svc.Update(ctx, admin.Principal(), c.ID, course.UpdateCourse{MaxEnrollments: &maxEnrollments})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.MaxEnrollments)
	assert.Equal(t, "Go 102", updated.Title)
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.CourseService()
	ctx := context.Background()

	owner := testutil.CreateUser(t, env.UserRepo, "Owner", "owner@test.cd", "", access.RoleInstructor)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other@test.cd", "", access.RoleInstructor)
	student := testutil.CreateUser(t, env.UserRepo, "Student", "student@test.cd", "", access.RoleStudent)
	c := testutil.CreateCourse(t, env.CourseRepo, owner, "Go 101", 0)
	testutil.Enroll(t, env.CourseRepo, student, c.ID)

	assert.Equal(t, access.ErrForbidden, svc.Delete(ctx, other.Principal(), c.ID))
	assert.Equal(t, access.ErrForbidden, svc.Delete(ctx, student.Principal(), c.ID))
	require.NoError(t, svc.Delete(ctx, owner.Principal(), c.ID))

	_, err := svc.Get(ctx, c.ID)
	assert.Equal(t, course.ErrNotFound, err)
	enrolled, err := svc.QueryEnrolled(ctx, student.Principal())
	require.NoError(t, err)
	assert.Empty(t, enrolled)
}

func TestService_Enroll(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.CourseService()
	ctx := context.Background()

	instructor := testutil.CreateUser(t, env.UserRepo, "Instructor", "instructor@test.cd", "", access.RoleInstructor)
	student := testutil.CreateUser(t, env.UserRepo, "Awe", "awe@test.cd", "", access.RoleStudent)
	other := testutil.CreateUser(t, env.UserRepo, "King", "king@test.cd", "", access.RoleStudent)
	c := testutil.CreateCourse(t, env.CourseRepo, instructor, "Go 101", 1)

	_, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	require.True(t, env.Cache.Has(catalogKey))

	t.Run("anonymous", func(t *testing.T) {
		_, err := svc.Enroll(ctx, access.Principal{}, c.ID)
		assert.Equal(t, access.ErrUnauthenticated, err)
	})

	t.Run("instructor", func(t *testing.T) {
		_, err := svc.Enroll(ctx, instructor.Principal(), c.ID)
		assert.Equal(t, access.ErrForbidden, err)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.Enroll(ctx, student.Principal(), "lol")
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})

	t.Run("success", func(t *testing.T) {
		env.Mail.Reset()
		e, err := svc.Enroll(ctx, student.Principal(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, student.ID, e.StudentID)
		assert.Equal(t, c.ID, e.CourseID)
		assert.False(t, e.EnrolledAt.IsZero())
		assert.False(t, env.Cache.Has(catalogKey))

		got, err := svc.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.EnrolledCount)

		sent := env.Mail.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, student.Email, sent[0].To[0].Address)
		assert.True(t, strings.Contains(sent[0].TextContent, `"Go 101"`))
	})

	t.Run("already enrolled", func(t *testing.T) {
		_, err := svc.Enroll(ctx, student.Principal(), c.ID)
		assert.Equal(t, course.ErrAlreadyEnrolled, err)
	})

	t.Run("course full", func(t *testing.T) {
		_, err := svc.Enroll(ctx, other.Principal(), c.ID)
		assert.Equal(t, course.ErrCourseFull, err)
		assert.Equal(t, core.KindCapacity, core.KindOf(err))
	})

	t.Run("enrolled courses", func(t *testing.T) {
		courses, err := svc.QueryEnrolled(ctx, student.Principal())
		require.NoError(t, err)
		require.Len(t, courses, 1)
		assert.Equal(t, c.ID, courses[0].ID)

		courses, err = svc.QueryEnrolled(ctx, other.Principal())
		require.NoError(t, err)
		assert.Empty(t, courses)
	})
}

func TestService_Enroll_concurrent(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.CourseService()
	ctx := context.Background()

	const maxEnrollments = 3
	instructor := testutil.CreateUser(t, env.UserRepo, "Instructor", "instructor@test.cd", "", access.RoleInstructor)
	c := testutil.CreateCourse(t, env.CourseRepo, instructor, "Go 101", maxEnrollments)

	principals := make([]access.Principal, 10)
	for i := range principals {
		email := string(rune('a'+i)) + "@test.cd"
		principals[i] = testutil.CreateUser(t, env.UserRepo, "Student", email, "", access.RoleStudent).Principal()
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		full    int
	)
	for _, p := range principals {
		wg.Add(1)
		go func(p access.Principal) {
			defer wg.Done()
			_, err := svc.Enroll(ctx, p, c.ID)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				success++
			case course.ErrCourseFull:
				full++
			default:
				t.Errorf("Enroll() unexpected error: %v", err)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, maxEnrollments, success)
	assert.Equal(t, len(principals)-maxEnrollments, full)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, maxEnrollments, got.EnrolledCount)
}

func TestService_Roster(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.CourseService()
	ctx := context.Background()

	owner := testutil.CreateUser(t, env.UserRepo, "Owner", "owner@test.cd", "", access.RoleInstructor)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other@test.cd", "", access.RoleInstructor)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin@test.cd", "", access.RoleAdmin)
	awe := testutil.CreateUser(t, env.UserRepo, "Awe", "awe@test.cd", "", access.RoleStudent)
	king := testutil.CreateUser(t, env.UserRepo, "King", "king@test.cd", "", access.RoleStudent)
	c := testutil.CreateCourse(t, env.CourseRepo, owner, "Go 101", 0)

	now := time.Now()
	testutil.Enroll(t, env.CourseRepo, king, c.ID, now.Add(-time.Hour))
	testutil.Enroll(t, env.CourseRepo, awe, c.ID, now)

	_, err := svc.Roster(ctx, other.Principal(), c.ID)
	assert.Equal(t, access.ErrForbidden, err)
	_, err = svc.Roster(ctx, awe.Principal(), c.ID)
	assert.Equal(t, access.ErrForbidden, err)

	for _, p := range []access.Principal{owner.Principal(), admin.Principal()} {
		students, err := svc.Roster(ctx, p, c.ID)
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, king.ID, students[0].ID, "enrollment order")
		assert.Equal(t, awe.ID, students[1].ID)
		assert.Equal(t, "awe@test.cd", students[1].Email)
	}

	courses, err := svc.QueryByInstructor(ctx, owner.Principal())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 2, courses[0].EnrolledCount)

	courses, err = svc.QueryByInstructor(ctx, other.Principal())
	require.NoError(t, err)
	assert.Empty(t, courses)
}
