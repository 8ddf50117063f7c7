package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/assessment"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

func cloneAssessment(a assessment.Assessment) assessment.Assessment {
	if a.Questions != nil {
		questions := make([]assessment.Question, len(a.Questions))
		for i, q := range a.Questions {
			if q.Options != nil {
				q.Options = append([]string(nil), q.Options...)
			}
			questions[i] = q
		}
		a.Questions = questions
	}
	return a
}

func (repo *assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.assessment.Lock()
	defer repo.db.assessment.Unlock()

	a = cloneAssessment(a)
	a.ID = newID()
	repo.db.assessment.table[a.ID] = &a
	return cloneAssessment(a), nil
}

func (repo *assessmentRepository) GetAssessment(ctx context.Context, id string, exec ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.assessment.RLock()
	defer repo.db.assessment.RUnlock()

	if a, ok := repo.db.assessment.table[id]; ok {
		return cloneAssessment(*a), nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

// GetAssessmentForUpdate relies on DB.WithinTx serializing transactions.
func (repo *assessmentRepository) GetAssessmentForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (assessment.Assessment, error) {
	return repo.GetAssessment(ctx, id, exec...)
}

func matchAssessment(a assessment.Assessment, filter assessment.QueryFilter) bool {
	if filter.CourseID != "" && a.CourseID != filter.CourseID {
		return false
	}
	if filter.InstructorID != "" && a.InstructorID != filter.InstructorID {
		return false
	}
	if filter.ActiveOnly && !a.IsActive {
		return false
	}
	return true
}

// QueryAssessments returns the matching assessments, oldest first.
func (repo *assessmentRepository) QueryAssessments(ctx context.Context, filter assessment.QueryFilter, exec ...core.DBExecutor) ([]assessment.Assessment, error) {
	repo.db.assessment.RLock()
	defer repo.db.assessment.RUnlock()

	assessments := make([]assessment.Assessment, 0)
	for _, a := range repo.db.assessment.table {
		if matchAssessment(*a, filter) {
			assessments = append(assessments, cloneAssessment(*a))
		}
	}
	sortBy(assessments, nil, []core.DBOrdering{{Field: "created_at", Ascending: true}},
		func(a, b assessment.Assessment, _ string) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
		func(a assessment.Assessment) string { return a.ID })
	return assessments, nil
}

func (repo *assessmentRepository) CountAssessments(ctx context.Context, filter assessment.QueryFilter, exec ...core.DBExecutor) (int, error) {
	repo.db.assessment.RLock()
	defer repo.db.assessment.RUnlock()

	var cnt int
	for _, a := range repo.db.assessment.table {
		if matchAssessment(*a, filter) {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *assessmentRepository) UpdateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.assessment.Lock()
	defer repo.db.assessment.Unlock()

	if _, ok := repo.db.assessment.table[a.ID]; !ok {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	a = cloneAssessment(a)
	repo.db.assessment.table[a.ID] = &a
	return cloneAssessment(a), nil
}

func (repo *assessmentRepository) DeleteAssessment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.assessment.Lock()
	defer repo.db.assessment.Unlock()

	delete(repo.db.assessment.table, id)
	return nil
}

func (repo *assessmentRepository) CreateResult(ctx context.Context, r assessment.Result, exec ...core.DBExecutor) (assessment.Result, error) {
	repo.db.result.Lock()
	defer repo.db.result.Unlock()

	r.ID = newID()
	r.Answers = append([]assessment.GradedAnswer(nil), r.Answers...)
	repo.db.result.table[r.ID] = &r
	return r, nil
}

func matchResult(r assessment.Result, filter assessment.ResultFilter) bool {
	if filter.StudentID != "" && r.StudentID != filter.StudentID {
		return false
	}
	if filter.AssessmentID != "" && r.AssessmentID != filter.AssessmentID {
		return false
	}
	if filter.CourseID != "" && r.CourseID != filter.CourseID {
		return false
	}
	return true
}

func (repo *assessmentRepository) QueryResults(ctx context.Context, filter assessment.ResultFilter, exec ...core.DBExecutor) ([]assessment.Result, error) {
	repo.db.result.RLock()
	defer repo.db.result.RUnlock()

	results := make([]assessment.Result, 0)
	for _, r := range repo.db.result.table {
		if matchResult(*r, filter) {
			results = append(results, *r)
		}
	}
	sortBy(results, nil, []core.DBOrdering{{Field: "submitted_at"}},
		func(a, b assessment.Result, _ string) int { return compareTimes(a.SubmittedAt, b.SubmittedAt) },
		func(r assessment.Result) string { return r.ID })
	return results, nil
}

func (repo *assessmentRepository) CountResults(ctx context.Context, filter assessment.ResultFilter, exec ...core.DBExecutor) (int, error) {
	repo.db.result.RLock()
	defer repo.db.result.RUnlock()

	var cnt int
	for _, r := range repo.db.result.table {
		if matchResult(*r, filter) {
			cnt++
		}
	}
	return cnt, nil
}
