package assessment

import (
	"fmt"
	"math"

	"github.com/trezcool/masomo-lms/core"
)

// Grade grades answers against questions, answer i against question i.
// An answer is either a bare value or an object of the form {"answer": value}.
// Null answers and missing trailing answers are unanswered: they are not graded and cost nothing.
// An answer that cannot be read as an answer to its question is graded incorrect.
// Returns the graded answers and the score; more answers than questions is a validation error.
func Grade(questions []Question, answers []interface{}) ([]GradedAnswer, int, error) {
	if len(answers) > len(questions) {
		return nil, 0, core.NewValidationError(nil, core.FieldError{
			Field: "answers",
			Error: fmt.Sprintf("got %d answers for %d questions", len(answers), len(questions)),
		})
	}

	var score int
	graded := make([]GradedAnswer, 0, len(answers))
	for i, raw := range answers {
		raw = unwrapAnswer(raw)
		if raw == nil {
			continue
		}
		q := questions[i]
		ans, ok := ParseAnswer(q, raw)
		isCorrect := ok && q.Correct != nil && ans.Equal(q.Correct)

		var points int
		if isCorrect {
			points = q.Points
			score += points
		}
		graded = append(graded, GradedAnswer{QuestionIndex: i, Answer: raw, IsCorrect: isCorrect, Points: points})
	}
	return graded, score, nil
}

func unwrapAnswer(raw interface{}) interface{} {
	if obj, ok := raw.(map[string]interface{}); ok {
		if v, found := obj["answer"]; found {
			return v
		}
	}
	return raw
}

// Percentage returns score/totalPoints as a percentage rounded half up, or 0 if totalPoints is 0.
func Percentage(score, totalPoints int) int {
	if totalPoints <= 0 {
		return 0
	}
	return int(math.Round(float64(score) * 100 / float64(totalPoints)))
}
