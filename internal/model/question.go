package model

import "github.com/google/uuid"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SingleChoice"
	QuestionTypeMultipleChoice QuestionType = "MultipleChoice"
	QuestionTypeEssay          QuestionType = "Essay"
	QuestionTypeFillInBlank    QuestionType = "FillInBlank"
)

// Choice reports whether the question is answered by selecting options.
func (t QuestionType) Choice() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultipleChoice
}

// Text reports whether the question is answered with free text.
func (t QuestionType) Text() bool {
	return t == QuestionTypeEssay || t == QuestionTypeFillInBlank
}

// Option is one selectable answer of a choice question.
type Option struct {
	ID   int    `json:"option_id"`
	Text string `json:"text"`
}

// Question is a single exam item. Immutable once loaded; the server
// determines order and shuffle at attempt start.
type Question struct {
	ID      uuid.UUID    `json:"question_id"`
	Type    QuestionType `json:"question_type"`
	Content string       `json:"content"`
	Options []Option     `json:"options,omitempty"` // choice types only
	Points  float64      `json:"points"`
}

// HasOption reports whether id identifies one of the question's options.
func (q *Question) HasOption(id int) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}
