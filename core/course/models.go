package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

type MaterialType string

const (
	MaterialVideo    MaterialType = "video"
	MaterialDocument MaterialType = "document"
	MaterialLink     MaterialType = "link"
)

type Material struct {
	Type     MaterialType `json:"type" validate:"required,oneof=video document link"`
	Title    string       `json:"title" validate:"required,notblank,max=200"`
	URL      string       `json:"url" validate:"required,url"`
	Duration string       `json:"duration,omitempty"`
}

type Course struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	InstructorID   string     `json:"instructor_id"`
	InstructorName string     `json:"instructor_name"`
	Category       string     `json:"category"`
	Difficulty     Difficulty `json:"difficulty"`
	Duration       string     `json:"duration"`
	Price          float64    `json:"price"`
	Image          string     `json:"image"`
	Materials      []Material `json:"materials"`
	// MaxEnrollments caps the roster size; 0 means no cap.
	MaxEnrollments int       `json:"max_enrollments,omitempty"`
	EnrolledCount  int       `json:"enrolled_count"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// IsFull reports whether the roster reached MaxEnrollments.
func (c Course) IsFull() bool {
	return c.MaxEnrollments > 0 && c.EnrolledCount >= c.MaxEnrollments
}

type Enrollment struct {
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// Student is a roster entry of a course.
type Student struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title          string     `json:"title" validate:"required,notblank,max=200"`
	Description    string     `json:"description" validate:"required,notblank"`
	Category       string     `json:"category" validate:"max=100"`
	Difficulty     Difficulty `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Duration       string     `json:"duration" validate:"max=50"`
	Price          float64    `json:"price" validate:"gte=0"`
	Image          string     `json:"image"`
	Materials      []Material `json:"materials" validate:"omitempty,dive"`
	MaxEnrollments int        `json:"max_enrollments" validate:"gte=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	nc.Difficulty = Difficulty(core.CleanString(string(nc.Difficulty), true /* lower */))
	nc.Duration = core.CleanString(nc.Duration)
	nc.Image = core.CleanString(nc.Image)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Nil fields are left unchanged. A MaxEnrollments of 0 removes the cap.
type UpdateCourse struct {
	Title          *string     `json:"title" validate:"omitempty,notblank,max=200"`
	Description    *string     `json:"description" validate:"omitempty,notblank"`
	Category       *string     `json:"category" validate:"omitempty,max=100"`
	Difficulty     *Difficulty `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Duration       *string     `json:"duration" validate:"omitempty,max=50"`
	Price          *float64    `json:"price" validate:"omitempty,gte=0"`
	Image          *string     `json:"image"`
	Materials      []Material  `json:"materials" validate:"omitempty,dive"`
	MaxEnrollments *int        `json:"max_enrollments" validate:"omitempty,gte=0"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	return validate.Struct(uc)
}

// apply copies the set fields of uc onto c.
func (uc UpdateCourse) apply(c *Course) {
	if uc.Title != nil {
		c.Title = core.CleanString(*uc.Title)
	}
	if uc.Description != nil {
		c.Description = core.CleanString(*uc.Description)
	}
	if uc.Category != nil {
		c.Category = core.CleanString(*uc.Category)
	}
	if uc.Difficulty != nil {
		c.Difficulty = *uc.Difficulty
	}
	if uc.Duration != nil {
		c.Duration = core.CleanString(*uc.Duration)
	}
	if uc.Price != nil {
		c.Price = *uc.Price
	}
	if uc.Image != nil {
		c.Image = core.CleanString(*uc.Image)
	}
	if uc.Materials != nil {
		c.Materials = uc.Materials
	}
	if uc.MaxEnrollments != nil {
		c.MaxEnrollments = *uc.MaxEnrollments
	}
}

type QueryFilter struct {
	Search       string     `query:"search"`
	Category     string     `query:"category"`
	Difficulty   Difficulty `query:"difficulty"`
	InstructorID string     `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || (qf.Search == "" && qf.Category == "" && qf.Difficulty == "" && qf.InstructorID == "")
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
	qf.Difficulty = Difficulty(core.CleanString(string(qf.Difficulty), true /* lower */))
}

// EnrollmentFilter narrows CountEnrollments; zero fields match everything.
type EnrollmentFilter struct {
	StudentID    string
	CourseID     string
	InstructorID string // enrollments in the courses of this instructor
	EnrolledFrom time.Time
}
