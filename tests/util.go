package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
	"github.com/trezcool/masomo-lms/core/assessment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/user"
	cachesvc "github.com/trezcool/masomo-lms/services/cache"
	emailsvc "github.com/trezcool/masomo-lms/services/email"
	logsvc "github.com/trezcool/masomo-lms/services/logger"
	inmemdb "github.com/trezcool/masomo-lms/storage/database/inmem"
)

// MemoryCache is the in-process cache used by tests.
type MemoryCache interface {
	core.Cache
	Has(key string) bool
}

// Env bundles the in-memory dependencies of the services under test.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Translator ut.Translator
	Validate   *validator.Validate

	DB         *inmemdb.DB
	UserRepo   user.Repository
	CourseRepo course.Repository
	AsmtRepo   assessment.Repository

	Mail  *emailsvc.ConsoleServiceMock
	Cache MemoryCache
}

func NewEnv() *Env {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(logger, true /* strict */)

	db := inmemdb.Open()
	return &Env{
		Conf:       conf,
		Logger:     logger,
		Translator: translator,
		Validate:   validate,
		DB:         db,
		UserRepo:   inmemdb.NewUserRepository(db),
		CourseRepo: inmemdb.NewCourseRepository(db),
		AsmtRepo:   inmemdb.NewAssessmentRepository(db),
		Mail:       emailsvc.NewConsoleServiceMock(conf, logger),
		Cache:      cachesvc.NewMemoryCache(),
	}
}

func (env *Env) UserService() *user.Service {
	return user.NewService(env.UserRepo, env.Mail, env.Cache, env.Validate, env.Logger)
}

func (env *Env) CourseService() *course.Service {
	return course.NewService(env.CourseRepo, env.DB, env.Cache, env.Mail, env.Validate, env.Logger, env.Conf)
}

func (env *Env) AssessmentService() *assessment.Service {
	return assessment.NewService(env.AsmtRepo, env.CourseRepo, env.DB, env.Validate)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role access.Role,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	instructor user.User,
	title string,
	maxEnrollments int,
	createdAt ...time.Time,
) course.Course {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Title:          title,
		Description:    title + " description",
		InstructorID:   instructor.ID,
		InstructorName: instructor.Name,
		Category:       "Programming",
		Difficulty:     course.Beginner,
		Materials:      []course.Material{},
		MaxEnrollments: maxEnrollments,
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func Enroll(t *testing.T, repo course.Repository, student user.User, courseID string, enrolledAt ...time.Time) {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(enrolledAt) > 0 {
		tstamp = enrolledAt[0].UTC()
	}
	e := course.Enrollment{StudentID: student.ID, CourseID: courseID, EnrolledAt: tstamp}
	if err := repo.CreateEnrollment(context.Background(), e); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
}

func CreateAssessment(
	t *testing.T,
	repo assessment.Repository,
	c course.Course,
	questions []assessment.Question,
	attempts int,
	isActive bool,
) assessment.Assessment {
	t.Helper()

	now := time.Now().UTC()
	a, err := repo.CreateAssessment(context.Background(), assessment.Assessment{
		Title:        "Quiz",
		CourseID:     c.ID,
		InstructorID: c.InstructorID,
		Questions:    questions,
		TotalPoints:  assessment.TotalPoints(questions),
		Attempts:     attempts,
		IsActive:     isActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateAssessment() failed: %v", err)
	}
	return a
}
