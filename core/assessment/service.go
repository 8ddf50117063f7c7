package assessment

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
	"github.com/trezcool/masomo-lms/core/course"
)

var (
	// errors
	ErrNotFound          = core.NewError(core.KindNotFound, "assessment not found")
	ErrNotEnrolled       = core.NewError(core.KindForbidden, "you are not enrolled in this course")
	ErrAttemptsExhausted = core.NewError(core.KindConflict, "no attempts left for this assessment")
)

type (
	// Repository persists assessments and their results. Every method accepts an optional
	// core.DBExecutor to run inside a transaction.
	Repository interface {
		CreateAssessment(ctx context.Context, a Assessment, exec ...core.DBExecutor) (Assessment, error)
		GetAssessment(ctx context.Context, id string, exec ...core.DBExecutor) (Assessment, error)
		// GetAssessmentForUpdate is GetAssessment, locking the assessment row until the end of the transaction.
		GetAssessmentForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (Assessment, error)
		QueryAssessments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Assessment, error)
		CountAssessments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (int, error)
		UpdateAssessment(ctx context.Context, a Assessment, exec ...core.DBExecutor) (Assessment, error)
		DeleteAssessment(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateResult(ctx context.Context, r Result, exec ...core.DBExecutor) (Result, error)
		// QueryResults returns the matching results, latest first.
		QueryResults(ctx context.Context, filter ResultFilter, exec ...core.DBExecutor) ([]Result, error)
		CountResults(ctx context.Context, filter ResultFilter, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo       Repository
		courseRepo course.Repository
		tx         core.Transactor
		validate   *validator.Validate
	}
)

func NewService(repo Repository, courseRepo course.Repository, tx core.Transactor, validate *validator.Validate) *Service {
	return &Service{
		repo:       repo,
		courseRepo: courseRepo,
		tx:         tx,
		validate:   validate,
	}
}

// Create adds an assessment to a course owned by p (or any course if p is an admin).
// TotalPoints is computed here, once.
func (svc *Service) Create(ctx context.Context, p access.Principal, na NewAssessment) (Assessment, error) {
	if err := access.Authorize(p, access.ActionCreateAssessment, p.UserID); err != nil {
		return Assessment{}, err
	}
	if err := na.Validate(svc.validate); err != nil {
		return Assessment{}, err
	}

	c, err := svc.courseRepo.GetCourse(ctx, na.CourseID)
	if err != nil {
		return Assessment{}, err
	}
	if err = access.Authorize(p, access.ActionCreateAssessment, c.InstructorID); err != nil {
		return Assessment{}, err
	}

	questions, err := buildQuestions(na.Questions)
	if err != nil {
		return Assessment{}, err
	}

	attempts := na.Attempts
	if attempts == 0 {
		attempts = 1
	}
	isActive := true
	if na.IsActive != nil {
		isActive = *na.IsActive
	}

	now := core.NowFunc()
	a, err := svc.repo.CreateAssessment(ctx, Assessment{
		Title:        na.Title,
		Description:  na.Description,
		CourseID:     c.ID,
		InstructorID: c.InstructorID,
		Questions:    questions,
		TotalPoints:  TotalPoints(questions),
		TimeLimit:    na.TimeLimit,
		Attempts:     attempts,
		IsActive:     isActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Assessment{}, errors.Wrap(err, "creating assessment")
	}
	return a, nil
}

// Get returns an assessment. Only its owner and admins see the answer keys;
// inactive assessments are not found for anyone else.
func (svc *Service) Get(ctx context.Context, p access.Principal, id string) (Assessment, error) {
	if err := access.Authorize(p, access.ActionViewAssessment); err != nil {
		return Assessment{}, err
	}

	a, err := svc.repo.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	if p.CanSeeAnswerKeys(a.InstructorID) {
		return a, nil
	}
	if !a.IsActive {
		return Assessment{}, ErrNotFound
	}
	return a.WithoutAnswerKeys(), nil
}

// ListByCourse lists the assessments of a course: all of them with answer keys for its owner and admins,
// only the active ones without answer keys for anyone else.
func (svc *Service) ListByCourse(ctx context.Context, p access.Principal, courseID string) ([]Assessment, error) {
	if err := access.Authorize(p, access.ActionViewAssessment); err != nil {
		return nil, err
	}

	c, err := svc.courseRepo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	privileged := p.CanSeeAnswerKeys(c.InstructorID)
	assessments, err := svc.repo.QueryAssessments(ctx, QueryFilter{CourseID: c.ID, ActiveOnly: !privileged})
	if err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	if !privileged {
		for i, a := range assessments {
			assessments[i] = a.WithoutAnswerKeys()
		}
	}
	return assessments, nil
}

// Update modifies an assessment owned by p (or any assessment if p is an admin).
// TotalPoints is left untouched, even when the questions change.
func (svc *Service) Update(ctx context.Context, p access.Principal, id string, ua UpdateAssessment) (Assessment, error) {
	a, err := svc.repo.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	if err = access.Authorize(p, access.ActionUpdateAssessment, a.InstructorID); err != nil {
		return Assessment{}, err
	}
	if err = ua.Validate(svc.validate); err != nil {
		return Assessment{}, err
	}

	if ua.Title != nil {
		a.Title = core.CleanString(*ua.Title)
	}
	if ua.Description != nil {
		a.Description = core.CleanString(*ua.Description)
	}
	if ua.Questions != nil {
		if a.Questions, err = buildQuestions(ua.Questions); err != nil {
			return Assessment{}, err
		}
	}
	if ua.TimeLimit != nil {
		a.TimeLimit = *ua.TimeLimit
	}
	if ua.Attempts != nil {
		a.Attempts = *ua.Attempts
	}
	if ua.IsActive != nil {
		a.IsActive = *ua.IsActive
	}
	a.UpdatedAt = core.NowFunc()

	if a, err = svc.repo.UpdateAssessment(ctx, a); err != nil {
		return Assessment{}, errors.Wrap(err, "updating assessment")
	}
	return a, nil
}

// Delete removes an assessment owned by p (or any assessment if p is an admin). Its results are kept.
func (svc *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	a, err := svc.repo.GetAssessment(ctx, id)
	if err != nil {
		return err
	}
	if err = access.Authorize(p, access.ActionDeleteAssessment, a.InstructorID); err != nil {
		return err
	}
	return svc.repo.DeleteAssessment(ctx, a.ID)
}

// Submit grades the answers of student p and records exactly one Result.
// The attempts check and the insertion run in one transaction holding the assessment row lock.
func (svc *Service) Submit(ctx context.Context, p access.Principal, id string, sub Submission) (Result, error) {
	if err := access.Authorize(p, access.ActionSubmitAssessment); err != nil {
		return Result{}, err
	}
	if err := sub.Validate(svc.validate); err != nil {
		return Result{}, err
	}

	var res Result
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		a, err := svc.repo.GetAssessmentForUpdate(ctx, id, exec)
		if err != nil {
			return err
		}
		if !a.IsActive {
			return ErrNotFound
		}

		enrolled, err := svc.courseRepo.IsEnrolled(ctx, p.UserID, a.CourseID, exec)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return ErrNotEnrolled
		}

		taken, err := svc.repo.CountResults(ctx, ResultFilter{StudentID: p.UserID, AssessmentID: a.ID}, exec)
		if err != nil {
			return errors.Wrap(err, "counting attempts")
		}
		if taken >= a.Attempts {
			return ErrAttemptsExhausted
		}

		graded, score, err := Grade(a.Questions, sub.Answers)
		if err != nil {
			return err
		}

		res, err = svc.repo.CreateResult(ctx, Result{
			StudentID:    p.UserID,
			AssessmentID: a.ID,
			CourseID:     a.CourseID,
			Answers:      graded,
			Score:        score,
			TotalPoints:  a.TotalPoints,
			Percentage:   Percentage(score, a.TotalPoints),
			TimeSpent:    sub.TimeSpent,
			SubmittedAt:  core.NowFunc(),
		}, exec)
		return errors.Wrap(err, "creating result")
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// ListStudentResults lists the results of student p, latest first.
func (svc *Service) ListStudentResults(ctx context.Context, p access.Principal) ([]Result, error) {
	if err := access.Authorize(p, access.ActionListOwnResults); err != nil {
		return nil, err
	}
	return svc.repo.QueryResults(ctx, ResultFilter{StudentID: p.UserID})
}
