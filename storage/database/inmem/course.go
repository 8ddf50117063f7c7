package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/course"
)

var courseDefaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func cloneCourse(c course.Course) course.Course {
	if c.Materials != nil {
		c.Materials = append([]course.Material(nil), c.Materials...)
	}
	return c
}

// load returns a copy of c with its enrolled count.
// It must be called with the course table locked and the enrollment table unlocked.
func (repo *courseRepository) load(c *course.Course) course.Course {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	loaded := cloneCourse(*c)
	loaded.EnrolledCount = 0
	for key := range repo.db.enrollment.table {
		if key.courseID == c.ID {
			loaded.EnrolledCount++
		}
	}
	return loaded
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	c = cloneCourse(c)
	c.ID = newID()
	c.EnrolledCount = 0
	repo.db.course.table[c.ID] = &c
	return cloneCourse(c), nil
}

func (repo *courseRepository) match(c course.Course, filter *course.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" && !(containsFold(c.Title, filter.Search) || containsFold(c.Description, filter.Search)) {
		return false
	}
	if filter.Category != "" && !strings.EqualFold(c.Category, filter.Category) {
		return false
	}
	if filter.Difficulty != "" && c.Difficulty != filter.Difficulty {
		return false
	}
	if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
		return false
	}
	return true
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.course.table))
	for _, c := range repo.db.course.table {
		if repo.match(*c, filter) {
			courses = append(courses, repo.load(c))
		}
	}
	sortBy(courses, ordering, courseDefaultOrdering, compareCourses, func(c course.Course) string { return c.ID })
	return courses, nil
}

func compareCourses(a, b course.Course, field string) int {
	switch field {
	case "title":
		return compareStrings(a.Title, b.Title)
	case "price":
		return compareFloats(a.Price, b.Price)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	}
	return 0
}

func (repo *courseRepository) CountCourses(ctx context.Context, filter *course.QueryFilter, exec ...core.DBExecutor) (int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var cnt int
	for _, c := range repo.db.course.table {
		if repo.match(*c, filter) {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.table[id]; ok {
		return repo.load(c), nil
	}
	return course.Course{}, course.ErrNotFound
}

// GetCourseForUpdate relies on DB.WithinTx serializing transactions.
func (repo *courseRepository) GetCourseForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	return repo.GetCourse(ctx, id, exec...)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.table[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	c = cloneCourse(c)
	repo.db.course.table[c.ID] = &c
	return repo.load(&c), nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	delete(repo.db.course.table, id)
	for key := range repo.db.enrollment.table {
		if key.courseID == id {
			delete(repo.db.enrollment.table, key)
		}
	}
	return nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment, exec ...core.DBExecutor) error {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	if _, ok := repo.db.course.table[e.CourseID]; !ok {
		return course.ErrNotFound
	}
	key := enrollmentKey{studentID: e.StudentID, courseID: e.CourseID}
	if _, ok := repo.db.enrollment.table[key]; ok {
		return course.ErrAlreadyEnrolled
	}
	repo.db.enrollment.table[key] = e
	return nil
}

func (repo *courseRepository) IsEnrolled(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	_, ok := repo.db.enrollment.table[enrollmentKey{studentID: studentID, courseID: courseID}]
	return ok, nil
}

func (repo *courseRepository) CountEnrollments(ctx context.Context, filter course.EnrollmentFilter, exec ...core.DBExecutor) (int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	var cnt int
	for key, e := range repo.db.enrollment.table {
		if filter.StudentID != "" && key.studentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && key.courseID != filter.CourseID {
			continue
		}
		if filter.InstructorID != "" {
			c, ok := repo.db.course.table[key.courseID]
			if !ok || c.InstructorID != filter.InstructorID {
				continue
			}
		}
		if !filter.EnrolledFrom.IsZero() && e.EnrolledAt.Before(filter.EnrolledFrom) {
			continue
		}
		cnt++
	}
	return cnt, nil
}

// QueryEnrolledCourses returns the courses of a student, latest enrollment first.
func (repo *courseRepository) QueryEnrolledCourses(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	repo.db.enrollment.RLock()
	enrollments := make([]course.Enrollment, 0)
	for key, e := range repo.db.enrollment.table {
		if key.studentID == studentID {
			enrollments = append(enrollments, e)
		}
	}
	repo.db.enrollment.RUnlock()

	sortBy(enrollments, nil, []core.DBOrdering{{Field: "enrolled_at"}},
		func(a, b course.Enrollment, _ string) int { return compareTimes(a.EnrolledAt, b.EnrolledAt) },
		func(e course.Enrollment) string { return e.CourseID })

	courses := make([]course.Course, 0, len(enrollments))
	for _, e := range enrollments {
		if c, ok := repo.db.course.table[e.CourseID]; ok {
			courses = append(courses, repo.load(c))
		}
	}
	return courses, nil
}

// QueryStudents returns the roster of a course, in enrollment order.
func (repo *courseRepository) QueryStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Student, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	students := make([]course.Student, 0)
	for key, e := range repo.db.enrollment.table {
		if key.courseID != courseID {
			continue
		}
		if usr, ok := repo.db.user.table[key.studentID]; ok {
			students = append(students, course.Student{ID: usr.ID, Name: usr.Name, Email: usr.Email, EnrolledAt: e.EnrolledAt})
		}
	}
	sortBy(students, nil, []core.DBOrdering{{Field: "enrolled_at", Ascending: true}},
		func(a, b course.Student, _ string) int { return compareTimes(a.EnrolledAt, b.EnrolledAt) },
		func(s course.Student) string { return s.ID })
	return students, nil
}
