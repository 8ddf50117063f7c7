package course

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
)

var (
	// errors
	ErrNotFound        = core.NewError(core.KindNotFound, "course not found")
	ErrAlreadyEnrolled = core.NewError(core.KindConflict, "already enrolled in this course")
	ErrCourseFull      = core.NewError(core.KindCapacity, "course has reached its maximum enrollments")
)

type (
	// Repository persists courses and their enrollments. Every method accepts an optional
	// core.DBExecutor to run inside a transaction.
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Course.Title or Course.Description.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		CountCourses(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		// GetCourseForUpdate is GetCourse, locking the course row until the end of the transaction.
		GetCourseForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// DeleteCourse removes the course and its enrollments.
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error

		// CreateEnrollment fails with ErrAlreadyEnrolled if the student is already enrolled.
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) error
		IsEnrolled(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error)
		CountEnrollments(ctx context.Context, filter EnrollmentFilter, exec ...core.DBExecutor) (int, error)
		QueryEnrolledCourses(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Course, error)
		QueryStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Student, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		cache    core.Cache
		mailSvc  core.EmailService
		validate *validator.Validate
		logger   core.Logger
		conf     *core.Config
	}
)

// orderable fields of QueryCourses
var OrderingFields = []string{"title", "price", "created_at"}

func NewService(
	repo Repository,
	tx core.Transactor,
	cache core.Cache,
	mailSvc core.EmailService,
	validate *validator.Validate,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		cache:    cache,
		mailSvc:  mailSvc,
		validate: validate,
		logger:   logger,
		conf:     conf,
	}
}

// invalidateCatalog drops the cached catalog. Cache failures are logged, never returned.
func (svc *Service) invalidateCatalog(ctx context.Context) {
	if err := svc.cache.Delete(ctx, core.CatalogCacheKey); err != nil {
		svc.logger.Warn("invalidating catalog cache", err)
	}
}

func (svc *Service) Create(ctx context.Context, p access.Principal, nc NewCourse) (Course, error) {
	if err := access.Authorize(p, access.ActionCreateCourse); err != nil {
		return Course{}, err
	}
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	if nc.Difficulty == "" {
		nc.Difficulty = Beginner
	}
	if nc.Materials == nil {
		nc.Materials = []Material{}
	}

	now := core.NowFunc()
	c, err := svc.repo.CreateCourse(ctx, Course{
		Title:          nc.Title,
		Description:    nc.Description,
		InstructorID:   p.UserID,
		InstructorName: p.Name,
		Category:       nc.Category,
		Difficulty:     nc.Difficulty,
		Duration:       nc.Duration,
		Price:          nc.Price,
		Image:          nc.Image,
		Materials:      nc.Materials,
		MaxEnrollments: nc.MaxEnrollments,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	svc.invalidateCatalog(ctx)
	return c, nil
}

// Query lists the public catalog. The unfiltered, default-ordered catalog is cached.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if err := core.CheckOrdering(ordering, OrderingFields); err != nil {
		return nil, err
	}
	if filter != nil {
		filter.Clean()
		filter.InstructorID = ""
	}

	cacheable := filter.IsEmpty() && len(ordering) == 0
	if cacheable {
		var courses []Course
		found, err := svc.cache.Get(ctx, core.CatalogCacheKey, &courses)
		if err != nil {
			svc.logger.Warn("reading catalog cache", err)
		} else if found {
			return courses, nil
		}
	}

	courses, err := svc.repo.QueryCourses(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	if cacheable {
		if err = svc.cache.Set(ctx, core.CatalogCacheKey, courses, svc.conf.Cache.CatalogTTL); err != nil {
			svc.logger.Warn("writing catalog cache", err)
		}
	}
	return courses, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// QueryByInstructor lists the courses taught by p.
func (svc *Service) QueryByInstructor(ctx context.Context, p access.Principal) ([]Course, error) {
	if err := access.Authorize(p, access.ActionListOwnCourses); err != nil {
		return nil, err
	}
	return svc.repo.QueryCourses(ctx, &QueryFilter{InstructorID: p.UserID}, nil)
}

// QueryEnrolled lists the courses p is enrolled in.
func (svc *Service) QueryEnrolled(ctx context.Context, p access.Principal) ([]Course, error) {
	if err := access.Authorize(p, access.ActionListEnrolled); err != nil {
		return nil, err
	}
	return svc.repo.QueryEnrolledCourses(ctx, p.UserID)
}

// Update modifies a course owned by p (or any course if p is an admin).
// Lowering MaxEnrollments below the roster size keeps existing enrollments.
func (svc *Service) Update(ctx context.Context, p access.Principal, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = access.Authorize(p, access.ActionUpdateCourse, c.InstructorID); err != nil {
		return Course{}, err
	}
	if err = uc.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	uc.apply(&c)
	c.UpdatedAt = core.NowFunc()
	if c, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	svc.invalidateCatalog(ctx)
	return c, nil
}

// Delete removes a course owned by p (or any course if p is an admin), with its enrollments.
func (svc *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return err
	}
	if err = access.Authorize(p, access.ActionDeleteCourse, c.InstructorID); err != nil {
		return err
	}
	if err = svc.repo.DeleteCourse(ctx, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	svc.invalidateCatalog(ctx)
	return nil
}

// Enroll moves p from NotEnrolled to Enrolled in the course.
// The capacity check and the insertion run in one transaction holding the course row lock,
// so concurrent enrollments cannot overflow MaxEnrollments.
func (svc *Service) Enroll(ctx context.Context, p access.Principal, id string) (Enrollment, error) {
	if err := access.Authorize(p, access.ActionEnroll); err != nil {
		return Enrollment{}, err
	}

	var (
		c          Course
		enrollment Enrollment
	)
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.GetCourseForUpdate(ctx, id, exec); err != nil {
			return err
		}

		enrolled, err := svc.repo.IsEnrolled(ctx, p.UserID, c.ID, exec)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if enrolled {
			return ErrAlreadyEnrolled
		}
		if c.IsFull() {
			return ErrCourseFull
		}

		enrollment = Enrollment{StudentID: p.UserID, CourseID: c.ID, EnrolledAt: core.NowFunc()}
		return svc.repo.CreateEnrollment(ctx, enrollment, exec)
	})
	if err != nil {
		return Enrollment{}, err
	}

	svc.invalidateCatalog(ctx)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.Name, Address: p.Email}},
		Subject:      "Enrollment confirmed",
		TemplateName: "enrollment",
		TemplateData: map[string]interface{}{
			"Name":        p.Name,
			"CourseID":    c.ID,
			"CourseTitle": c.Title,
		},
	})
	return enrollment, nil
}

// Roster lists the students enrolled in a course owned by p (or any course if p is an admin).
func (svc *Service) Roster(ctx context.Context, p access.Principal, id string) ([]Student, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = access.Authorize(p, access.ActionViewRoster, c.InstructorID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, c.ID)
}
