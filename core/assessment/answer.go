package assessment

import (
	"math"
	"strings"
)

type QuestionType string

const (
	MultipleChoiceType QuestionType = "multiple-choice"
	TrueFalseType      QuestionType = "true-false"
	ShortAnswerType    QuestionType = "short-answer"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoiceType, TrueFalseType, ShortAnswerType:
		return true
	}
	return false
}

// Answer is a typed answer to a question: one of MultipleChoice, TrueFalse or ShortAnswer.
type Answer interface {
	Type() QuestionType
	// Equal reports whether both answers are of the same type and value.
	Equal(other Answer) bool
	// Value returns the JSON representation of the answer.
	Value() interface{}
}

// MultipleChoice is the index of the chosen option.
type MultipleChoice int

func (a MultipleChoice) Type() QuestionType  { return MultipleChoiceType }
func (a MultipleChoice) Value() interface{}  { return int(a) }
func (a MultipleChoice) Equal(o Answer) bool { b, ok := o.(MultipleChoice); return ok && a == b }

type TrueFalse bool

func (a TrueFalse) Type() QuestionType  { return TrueFalseType }
func (a TrueFalse) Value() interface{}  { return bool(a) }
func (a TrueFalse) Equal(o Answer) bool { b, ok := o.(TrueFalse); return ok && a == b }

// ShortAnswer matches by exact string equality only.
type ShortAnswer string

func (a ShortAnswer) Type() QuestionType  { return ShortAnswerType }
func (a ShortAnswer) Value() interface{}  { return string(a) }
func (a ShortAnswer) Equal(o Answer) bool { b, ok := o.(ShortAnswer); return ok && a == b }

// ParseAnswer converts a raw JSON value into the typed answer expected by q:
//   - multiple-choice: an option index (integral number in range) or the exact text of an option
//   - true-false: a bool, or "true"/"false" ignoring case and surrounding whitespace
//   - short-answer: any string, kept as is
//
// ok is false when v cannot be read as an answer to q.
func ParseAnswer(q Question, v interface{}) (Answer, bool) {
	switch q.Type {
	case MultipleChoiceType:
		switch val := v.(type) {
		case string:
			for i, opt := range q.Options {
				if opt == val {
					return MultipleChoice(i), true
				}
			}
		case float64:
			if val >= 0 && val < float64(len(q.Options)) && val == math.Trunc(val) {
				return MultipleChoice(int(val)), true
			}
		case int:
			if val >= 0 && val < len(q.Options) {
				return MultipleChoice(val), true
			}
		}
	case TrueFalseType:
		switch val := v.(type) {
		case bool:
			return TrueFalse(val), true
		case string:
			switch strings.ToLower(strings.TrimSpace(val)) {
			case "true":
				return TrueFalse(true), true
			case "false":
				return TrueFalse(false), true
			}
		}
	case ShortAnswerType:
		if val, ok := v.(string); ok {
			return ShortAnswer(val), true
		}
	}
	return nil, false
}
