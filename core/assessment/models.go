package assessment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

type Question struct {
	Text    string       `json:"question"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
	// Correct is nil when the answer key is hidden from the caller.
	Correct Answer `json:"correct_answer,omitempty"`
	Points  int    `json:"points"`
}

type questionJSON struct {
	Text    string          `json:"question"`
	Type    QuestionType    `json:"type"`
	Options []string        `json:"options,omitempty"`
	Correct json.RawMessage `json:"correct_answer,omitempty"`
	Points  int             `json:"points"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	qj := questionJSON{Text: q.Text, Type: q.Type, Options: q.Options, Points: q.Points}
	if q.Correct != nil {
		raw, err := json.Marshal(q.Correct.Value())
		if err != nil {
			return nil, err
		}
		qj.Correct = raw
	}
	return json.Marshal(qj)
}

// UnmarshalJSON reads a stored question. The answer key must already be typed:
// an option index, a bool or a string.
func (q *Question) UnmarshalJSON(data []byte) error {
	var qj questionJSON
	if err := json.Unmarshal(data, &qj); err != nil {
		return err
	}
	*q = Question{Text: qj.Text, Type: qj.Type, Options: qj.Options, Points: qj.Points}
	if len(qj.Correct) == 0 || string(qj.Correct) == "null" {
		return nil
	}

	var err error
	switch qj.Type {
	case MultipleChoiceType:
		var idx int
		err = json.Unmarshal(qj.Correct, &idx)
		q.Correct = MultipleChoice(idx)
	case TrueFalseType:
		var b bool
		err = json.Unmarshal(qj.Correct, &b)
		q.Correct = TrueFalse(b)
	case ShortAnswerType:
		var s string
		err = json.Unmarshal(qj.Correct, &s)
		q.Correct = ShortAnswer(s)
	default:
		return fmt.Errorf("unknown question type %q", qj.Type)
	}
	return errors.Wrap(err, "reading correct_answer")
}

type Assessment struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CourseID     string     `json:"course_id"`
	InstructorID string     `json:"instructor_id"`
	Questions    []Question `json:"questions"`
	// TotalPoints is computed once at creation and never recomputed.
	TotalPoints int `json:"total_points"`
	// TimeLimit is in minutes; 0 means no limit.
	TimeLimit int       `json:"time_limit,omitempty"`
	Attempts  int       `json:"attempts"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// WithoutAnswerKeys returns a copy of a with every correct answer removed.
func (a Assessment) WithoutAnswerKeys() Assessment {
	questions := make([]Question, len(a.Questions))
	for i, q := range a.Questions {
		q.Correct = nil
		questions[i] = q
	}
	a.Questions = questions
	return a
}

// NewQuestion is a question as submitted by an instructor.
// CorrectAnswer is parsed like a student answer (see ParseAnswer).
// Points of 0 or missing default to 1.
type NewQuestion struct {
	Question      string       `json:"question" validate:"required,notblank"`
	Type          QuestionType `json:"type" validate:"required,oneof=multiple-choice true-false short-answer"`
	Options       []string     `json:"options" validate:"omitempty,dive,notblank"`
	CorrectAnswer interface{}  `json:"correct_answer"`
	Points        *int         `json:"points" validate:"omitempty,gte=0"`
}

func (nq NewQuestion) toQuestion(idx int) (Question, *core.FieldError) {
	q := Question{
		Text:   core.CleanString(nq.Question),
		Type:   nq.Type,
		Points: 1,
	}
	if nq.Type == MultipleChoiceType {
		if len(nq.Options) < 2 {
			return Question{}, &core.FieldError{
				Field: fmt.Sprintf("questions[%d].options", idx),
				Error: "a multiple-choice question needs at least 2 options",
			}
		}
		q.Options = nq.Options
	}
	if nq.Points != nil && *nq.Points > 0 {
		q.Points = *nq.Points
	}

	field := fmt.Sprintf("questions[%d].correct_answer", idx)
	if nq.CorrectAnswer == nil {
		return Question{}, &core.FieldError{Field: field, Error: "this field is required"}
	}
	key, ok := ParseAnswer(q, nq.CorrectAnswer)
	if !ok {
		return Question{}, &core.FieldError{Field: field, Error: "invalid answer for a " + string(nq.Type) + " question"}
	}
	q.Correct = key
	return q, nil
}

// buildQuestions converts submitted questions, collecting every answer key error.
func buildQuestions(nqs []NewQuestion) ([]Question, error) {
	questions := make([]Question, 0, len(nqs))
	var fldErrs []core.FieldError
	for i, nq := range nqs {
		q, fErr := nq.toQuestion(i)
		if fErr != nil {
			fldErrs = append(fldErrs, *fErr)
			continue
		}
		questions = append(questions, q)
	}
	if fldErrs != nil {
		return nil, core.NewValidationError(nil, fldErrs...)
	}
	return questions, nil
}

// TotalPoints sums the points of questions.
func TotalPoints(questions []Question) int {
	var total int
	for _, q := range questions {
		total += q.Points
	}
	return total
}

// NewAssessment contains information needed to create a new Assessment.
type NewAssessment struct {
	Title       string        `json:"title" validate:"required,notblank,max=200"`
	Description string        `json:"description"`
	CourseID    string        `json:"course_id" validate:"required"`
	Questions   []NewQuestion `json:"questions" validate:"required,min=1,dive"`
	TimeLimit   int           `json:"time_limit" validate:"gte=0"`
	Attempts    int           `json:"attempts" validate:"gte=0"`
	IsActive    *bool         `json:"is_active"`
}

func (na *NewAssessment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.CourseID = core.CleanString(na.CourseID)
	return validate.Struct(na)
}

// UpdateAssessment defines what information may be provided to modify an existing Assessment.
// Nil fields are left unchanged. Replacing the questions does not recompute TotalPoints.
type UpdateAssessment struct {
	Title       *string       `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string       `json:"description"`
	Questions   []NewQuestion `json:"questions" validate:"omitempty,min=1,dive"`
	TimeLimit   *int          `json:"time_limit" validate:"omitempty,gte=0"`
	Attempts    *int          `json:"attempts" validate:"omitempty,gte=1"`
	IsActive    *bool         `json:"is_active"`
}

func (ua *UpdateAssessment) Validate(validate *validator.Validate) error {
	return validate.Struct(ua)
}

// GradedAnswer is the grading outcome of one submitted answer.
type GradedAnswer struct {
	QuestionIndex int         `json:"question_index"`
	Answer        interface{} `json:"answer"`
	IsCorrect     bool        `json:"is_correct"`
	Points        int         `json:"points"`
}

type Result struct {
	ID           string         `json:"id"`
	StudentID    string         `json:"student_id"`
	AssessmentID string         `json:"assessment_id"`
	CourseID     string         `json:"course_id"`
	Answers      []GradedAnswer `json:"answers"`
	Score        int            `json:"score"`
	TotalPoints  int            `json:"total_points"`
	Percentage   int            `json:"percentage"`
	TimeSpent    int            `json:"time_spent"`   // minutes
	SubmittedAt  time.Time      `json:"submitted_at"` // UTC
}

// Submission is a student's answers to an assessment, in question order.
// Entries are bare values or {"answer": value} objects. Null entries and missing trailing entries are unanswered.
type Submission struct {
	Answers   []interface{} `json:"answers" validate:"required"`
	TimeSpent int           `json:"time_spent" validate:"gte=0"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	return validate.Struct(s)
}

type QueryFilter struct {
	CourseID     string
	InstructorID string
	ActiveOnly   bool
}

// ResultFilter narrows result queries; zero fields match everything.
type ResultFilter struct {
	StudentID    string
	AssessmentID string
	CourseID     string
}
