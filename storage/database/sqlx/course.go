package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/course"
)

const (
	courseColumns = `c.id, c.title, c.description, c.instructor_id, c.instructor_name, c.category, c.difficulty,
		c.duration, c.price, c.image, c.materials, c.max_enrollments, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrolled_count`
	courseSelect = "SELECT " + courseColumns + " FROM courses c"
)

var courseOrderColumns = map[string]string{
	"title":      "c.title",
	"price":      "c.price",
	"created_at": "c.created_at",
}

type courseRow struct {
	ID             string         `db:"id"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	InstructorID   string         `db:"instructor_id"`
	InstructorName string         `db:"instructor_name"`
	Category       string         `db:"category"`
	Difficulty     string         `db:"difficulty"`
	Duration       string         `db:"duration"`
	Price          float64        `db:"price"`
	Image          string         `db:"image"`
	Materials      types.JSONText `db:"materials"`
	MaxEnrollments null.Int       `db:"max_enrollments"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	EnrolledCount  int            `db:"enrolled_count"`
}

func toCourseRow(c course.Course) (courseRow, error) {
	materials := c.Materials
	if materials == nil {
		materials = []course.Material{}
	}
	raw, err := json.Marshal(materials)
	if err != nil {
		return courseRow{}, errors.Wrap(err, "encoding materials")
	}
	return courseRow{
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		InstructorID:   c.InstructorID,
		InstructorName: c.InstructorName,
		Category:       c.Category,
		Difficulty:     string(c.Difficulty),
		Duration:       c.Duration,
		Price:          c.Price,
		Image:          c.Image,
		Materials:      raw,
		MaxEnrollments: null.NewInt(c.MaxEnrollments, c.MaxEnrollments > 0),
		CreatedAt:      c.CreatedAt.UTC(),
		UpdatedAt:      c.UpdatedAt.UTC(),
	}, nil
}

func (row courseRow) toCourse() (course.Course, error) {
	c := course.Course{
		ID:             row.ID,
		Title:          row.Title,
		Description:    row.Description,
		InstructorID:   row.InstructorID,
		InstructorName: row.InstructorName,
		Category:       row.Category,
		Difficulty:     course.Difficulty(row.Difficulty),
		Duration:       row.Duration,
		Price:          row.Price,
		Image:          row.Image,
		MaxEnrollments: row.MaxEnrollments.Int,
		EnrolledCount:  row.EnrolledCount,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if err := row.Materials.Unmarshal(&c.Materials); err != nil {
		return course.Course{}, errors.Wrap(err, "decoding materials")
	}
	return c, nil
}

func toCourses(rows []courseRow) ([]course.Course, error) {
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		c, err := row.toCourse()
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor, conf *core.Config) *courseRepository {
	return &courseRepository{repository: newRepository(exec, conf)}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	c.ID = uuid.New().String()
	c.EnrolledCount = 0
	row, err := toCourseRow(c)
	if err != nil {
		return course.Course{}, err
	}
	q := `INSERT INTO courses (id, title, description, instructor_id, instructor_name, category, difficulty,
			duration, price, image, materials, max_enrollments, created_at, updated_at)
		VALUES (:id, :title, :description, :instructor_id, :instructor_name, :category, :difficulty,
			:duration, :price, :image, :materials, :max_enrollments, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func courseWhere(filter *course.QueryFilter) *where {
	var w where
	if filter == nil {
		return &w
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(c.title ILIKE ? OR c.description ILIKE ?)", val, val)
	}
	if filter.Category != "" {
		w.add("LOWER(c.category) = LOWER(?)", filter.Category)
	}
	if filter.Difficulty != "" {
		w.add("c.difficulty = ?", string(filter.Difficulty))
	}
	if filter.InstructorID != "" {
		if !validID(filter.InstructorID) {
			w.add("FALSE")
		} else {
			w.add("c.instructor_id = ?", filter.InstructorID)
		}
	}
	return &w
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	w := courseWhere(filter)
	exe := repo.getExec(exec)
	q := exe.Rebind(courseSelect + w.String() + orderBy(ordering, courseOrderColumns, "c.created_at DESC"))
	var rows []courseRow
	if err := sqlx.SelectContext(ctx, exe, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return toCourses(rows)
}

func (repo courseRepository) CountCourses(ctx context.Context, filter *course.QueryFilter, exec ...core.DBExecutor) (int, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	w := courseWhere(filter)
	exe := repo.getExec(exec)
	var cnt int
	if err := sqlx.GetContext(ctx, exe, &cnt, exe.Rebind("SELECT COUNT(*) FROM courses c"+w.String()), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting courses")
	}
	return cnt, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	return repo.getCourse(ctx, repo.getExec(exec), id)
}

func (repo courseRepository) getCourse(ctx context.Context, exe core.DBExecutor, id string) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := sqlx.GetContext(ctx, exe, &row, courseSelect+" WHERE c.id = $1", id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.toCourse()
}

// GetCourseForUpdate locks the course row first, so the enrolled count read next
// cannot change before the transaction ends.
func (repo courseRepository) GetCourseForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}
	exe := repo.getExec(exec)
	var locked string
	if err := sqlx.GetContext(ctx, exe, &locked, "SELECT id FROM courses WHERE id = $1 FOR UPDATE", id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "locking course")
	}
	return repo.getCourse(ctx, exe, id)
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(c.ID) {
		return course.Course{}, course.ErrNotFound
	}
	row, err := toCourseRow(c)
	if err != nil {
		return course.Course{}, err
	}
	exe := repo.getExec(exec)
	q := `UPDATE courses SET title = :title, description = :description, category = :category,
			difficulty = :difficulty, duration = :duration, price = :price, image = :image,
			materials = :materials, max_enrollments = :max_enrollments, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exe, q, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if err = checkAffected(res, course.ErrNotFound, "updating course"); err != nil {
		return course.Course{}, err
	}
	return repo.getCourse(ctx, exe, c.ID)
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(id) {
		return nil
	}
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment, exec ...core.DBExecutor) error {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(e.StudentID) || !validID(e.CourseID) {
		return course.ErrNotFound
	}
	q := "INSERT INTO enrollments (student_id, course_id, enrolled_at) VALUES ($1, $2, $3)"
	if _, err := repo.getExec(exec).ExecContext(ctx, q, e.StudentID, e.CourseID, e.EnrolledAt.UTC()); err != nil {
		if isUniqueViolation(err) {
			return course.ErrAlreadyEnrolled
		}
		if isForeignKeyViolation(err) {
			return course.ErrNotFound
		}
		return errors.Wrap(err, "inserting enrollment")
	}
	return nil
}

func (repo courseRepository) IsEnrolled(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(studentID) || !validID(courseID) {
		return false, nil
	}
	var exists bool
	q := "SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &exists, q, studentID, courseID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

func (repo courseRepository) CountEnrollments(ctx context.Context, filter course.EnrollmentFilter, exec ...core.DBExecutor) (int, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	for _, id := range []string{filter.StudentID, filter.CourseID, filter.InstructorID} {
		if id != "" && !validID(id) {
			return 0, nil
		}
	}

	var w where
	if filter.StudentID != "" {
		w.add("e.student_id = ?", filter.StudentID)
	}
	if filter.CourseID != "" {
		w.add("e.course_id = ?", filter.CourseID)
	}
	if filter.InstructorID != "" {
		w.add("c.instructor_id = ?", filter.InstructorID)
	}
	if !filter.EnrolledFrom.IsZero() {
		w.add("e.enrolled_at >= ?", filter.EnrolledFrom.UTC())
	}

	exe := repo.getExec(exec)
	q := exe.Rebind("SELECT COUNT(*) FROM enrollments e JOIN courses c ON c.id = e.course_id" + w.String())
	var cnt int
	if err := sqlx.GetContext(ctx, exe, &cnt, q, w.args...); err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return cnt, nil
}

// QueryEnrolledCourses returns the courses of a student, latest enrollment first.
func (repo courseRepository) QueryEnrolledCourses(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]course.Course, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(studentID) {
		return []course.Course{}, nil
	}
	q := courseSelect + ` JOIN enrollments en ON en.course_id = c.id
		WHERE en.student_id = $1 ORDER BY en.enrolled_at DESC, c.id`
	var rows []courseRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled courses")
	}
	return toCourses(rows)
}

// QueryStudents returns the roster of a course, in enrollment order.
func (repo courseRepository) QueryStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Student, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	students := make([]course.Student, 0)
	if !validID(courseID) {
		return students, nil
	}
	q := `SELECT u.id, u.name, u.email, e.enrolled_at FROM enrollments e
		JOIN users u ON u.id = e.student_id
		WHERE e.course_id = $1 ORDER BY e.enrolled_at, u.id`
	var rows []struct {
		ID         string    `db:"id"`
		Name       string    `db:"name"`
		Email      string    `db:"email"`
		EnrolledAt time.Time `db:"enrolled_at"`
	}
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	for _, row := range rows {
		students = append(students, course.Student{ID: row.ID, Name: row.Name, Email: row.Email, EnrolledAt: row.EnrolledAt.UTC()})
	}
	return students, nil
}
