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
	"github.com/trezcool/masomo-lms/core/assessment"
)

const (
	assessmentColumns = `id, title, description, course_id, instructor_id, questions, total_points,
		time_limit, attempts, is_active, created_at, updated_at`
	resultColumns = `id, student_id, assessment_id, course_id, answers, score, total_points,
		percentage, time_spent, submitted_at`
)

type assessmentRow struct {
	ID           string         `db:"id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	CourseID     string         `db:"course_id"`
	InstructorID string         `db:"instructor_id"`
	Questions    types.JSONText `db:"questions"`
	TotalPoints  int            `db:"total_points"`
	TimeLimit    null.Int       `db:"time_limit"`
	Attempts     int            `db:"attempts"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func toAssessmentRow(a assessment.Assessment) (assessmentRow, error) {
	questions := a.Questions
	if questions == nil {
		questions = []assessment.Question{}
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return assessmentRow{}, errors.Wrap(err, "encoding questions")
	}
	return assessmentRow{
		ID:           a.ID,
		Title:        a.Title,
		Description:  a.Description,
		CourseID:     a.CourseID,
		InstructorID: a.InstructorID,
		Questions:    raw,
		TotalPoints:  a.TotalPoints,
		TimeLimit:    null.NewInt(a.TimeLimit, a.TimeLimit > 0),
		Attempts:     a.Attempts,
		IsActive:     a.IsActive,
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}, nil
}

func (row assessmentRow) toAssessment() (assessment.Assessment, error) {
	a := assessment.Assessment{
		ID:           row.ID,
		Title:        row.Title,
		Description:  row.Description,
		CourseID:     row.CourseID,
		InstructorID: row.InstructorID,
		TotalPoints:  row.TotalPoints,
		TimeLimit:    row.TimeLimit.Int,
		Attempts:     row.Attempts,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if err := row.Questions.Unmarshal(&a.Questions); err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "decoding questions")
	}
	return a, nil
}

type resultRow struct {
	ID           string         `db:"id"`
	StudentID    string         `db:"student_id"`
	AssessmentID string         `db:"assessment_id"`
	CourseID     string         `db:"course_id"`
	Answers      types.JSONText `db:"answers"`
	Score        int            `db:"score"`
	TotalPoints  int            `db:"total_points"`
	Percentage   int            `db:"percentage"`
	TimeSpent    int            `db:"time_spent"`
	SubmittedAt  time.Time      `db:"submitted_at"`
}

func (row resultRow) toResult() (assessment.Result, error) {
	r := assessment.Result{
		ID:           row.ID,
		StudentID:    row.StudentID,
		AssessmentID: row.AssessmentID,
		CourseID:     row.CourseID,
		Score:        row.Score,
		TotalPoints:  row.TotalPoints,
		Percentage:   row.Percentage,
		TimeSpent:    row.TimeSpent,
		SubmittedAt:  row.SubmittedAt.UTC(),
	}
	if err := row.Answers.Unmarshal(&r.Answers); err != nil {
		return assessment.Result{}, errors.Wrap(err, "decoding answers")
	}
	return r, nil
}

type assessmentRepository struct {
	repository
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(exec core.DBExecutor, conf *core.Config) *assessmentRepository {
	return &assessmentRepository{repository: newRepository(exec, conf)}
}

func (repo assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	a.ID = uuid.New().String()
	row, err := toAssessmentRow(a)
	if err != nil {
		return assessment.Assessment{}, err
	}
	q := `INSERT INTO assessments (` + assessmentColumns + `)
		VALUES (:id, :title, :description, :course_id, :instructor_id, :questions, :total_points,
			:time_limit, :attempts, :is_active, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return a, nil
}

func (repo assessmentRepository) getAssessment(ctx context.Context, id string, lock bool, exec []core.DBExecutor) (assessment.Assessment, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(id) {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	q := "SELECT " + assessmentColumns + " FROM assessments WHERE id = $1"
	if lock {
		q += " FOR UPDATE"
	}
	var row assessmentRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return assessment.Assessment{}, trapNoRowsErr(err, assessment.ErrNotFound, "finding assessment")
	}
	return row.toAssessment()
}

func (repo assessmentRepository) GetAssessment(ctx context.Context, id string, exec ...core.DBExecutor) (assessment.Assessment, error) {
	return repo.getAssessment(ctx, id, false, exec)
}

func (repo assessmentRepository) GetAssessmentForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (assessment.Assessment, error) {
	return repo.getAssessment(ctx, id, true, exec)
}

// assessmentWhere returns nil if the filter cannot match any row.
func assessmentWhere(filter assessment.QueryFilter) *where {
	var w where
	if filter.CourseID != "" {
		if !validID(filter.CourseID) {
			return nil
		}
		w.add("course_id = ?", filter.CourseID)
	}
	if filter.InstructorID != "" {
		if !validID(filter.InstructorID) {
			return nil
		}
		w.add("instructor_id = ?", filter.InstructorID)
	}
	if filter.ActiveOnly {
		w.add("is_active")
	}
	return &w
}

// QueryAssessments returns the matching assessments, oldest first.
func (repo assessmentRepository) QueryAssessments(ctx context.Context, filter assessment.QueryFilter, exec ...core.DBExecutor) ([]assessment.Assessment, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	assessments := make([]assessment.Assessment, 0)
	w := assessmentWhere(filter)
	if w == nil {
		return assessments, nil
	}

	exe := repo.getExec(exec)
	q := exe.Rebind("SELECT " + assessmentColumns + " FROM assessments" + w.String() + " ORDER BY created_at, id")
	var rows []assessmentRow
	if err := sqlx.SelectContext(ctx, exe, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	for _, row := range rows {
		a, err := row.toAssessment()
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, nil
}

func (repo assessmentRepository) CountAssessments(ctx context.Context, filter assessment.QueryFilter, exec ...core.DBExecutor) (int, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	w := assessmentWhere(filter)
	if w == nil {
		return 0, nil
	}
	exe := repo.getExec(exec)
	var cnt int
	if err := sqlx.GetContext(ctx, exe, &cnt, exe.Rebind("SELECT COUNT(*) FROM assessments"+w.String()), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting assessments")
	}
	return cnt, nil
}

func (repo assessmentRepository) UpdateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(a.ID) {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	row, err := toAssessmentRow(a)
	if err != nil {
		return assessment.Assessment{}, err
	}
	q := `UPDATE assessments SET title = :title, description = :description, questions = :questions,
			time_limit = :time_limit, attempts = :attempts, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row)
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "updating assessment")
	}
	if err = checkAffected(res, assessment.ErrNotFound, "updating assessment"); err != nil {
		return assessment.Assessment{}, err
	}
	return a, nil
}

// DeleteAssessment removes the assessment; its results are kept.
func (repo assessmentRepository) DeleteAssessment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(id) {
		return nil
	}
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM assessments WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	return nil
}

func (repo assessmentRepository) CreateResult(ctx context.Context, r assessment.Result, exec ...core.DBExecutor) (assessment.Result, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	r.ID = uuid.New().String()
	answers := r.Answers
	if answers == nil {
		answers = []assessment.GradedAnswer{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return assessment.Result{}, errors.Wrap(err, "encoding answers")
	}
	row := resultRow{
		ID:           r.ID,
		StudentID:    r.StudentID,
		AssessmentID: r.AssessmentID,
		CourseID:     r.CourseID,
		Answers:      raw,
		Score:        r.Score,
		TotalPoints:  r.TotalPoints,
		Percentage:   r.Percentage,
		TimeSpent:    r.TimeSpent,
		SubmittedAt:  r.SubmittedAt.UTC(),
	}
	q := `INSERT INTO results (` + resultColumns + `)
		VALUES (:id, :student_id, :assessment_id, :course_id, :answers, :score, :total_points,
			:percentage, :time_spent, :submitted_at)`
	if _, err = sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return assessment.Result{}, errors.Wrap(err, "inserting result")
	}
	return r, nil
}

func resultWhere(filter assessment.ResultFilter) *where {
	var w where
	for _, f := range []struct{ col, val string }{
		{"student_id", filter.StudentID},
		{"assessment_id", filter.AssessmentID},
		{"course_id", filter.CourseID},
	} {
		if f.val == "" {
			continue
		}
		if !validID(f.val) {
			return nil
		}
		w.add(f.col+" = ?", f.val)
	}
	return &w
}

// QueryResults returns the matching results, latest first.
func (repo assessmentRepository) QueryResults(ctx context.Context, filter assessment.ResultFilter, exec ...core.DBExecutor) ([]assessment.Result, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	results := make([]assessment.Result, 0)
	w := resultWhere(filter)
	if w == nil {
		return results, nil
	}

	exe := repo.getExec(exec)
	q := exe.Rebind("SELECT " + resultColumns + " FROM results" + w.String() + " ORDER BY submitted_at DESC, id")
	var rows []resultRow
	if err := sqlx.SelectContext(ctx, exe, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	for _, row := range rows {
		r, err := row.toResult()
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (repo assessmentRepository) CountResults(ctx context.Context, filter assessment.ResultFilter, exec ...core.DBExecutor) (int, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	w := resultWhere(filter)
	if w == nil {
		return 0, nil
	}
	exe := repo.getExec(exec)
	var cnt int
	if err := sqlx.GetContext(ctx, exe, &cnt, exe.Rebind("SELECT COUNT(*) FROM results"+w.String()), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting results")
	}
	return cnt, nil
}
