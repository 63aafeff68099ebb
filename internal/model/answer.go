package model

import "github.com/google/uuid"

// Answer is the student's current answer to one question. Exactly one of
// the value fields is set depending on the question type:
//   - SingleChoice:   OptionID
//   - MultipleChoice: OptionIDs (set-valued)
//   - Essay / FillInBlank: Text
type Answer struct {
	QuestionID uuid.UUID `json:"question_id"`
	OptionID   *int      `json:"option_id,omitempty"`
	OptionIDs  []int     `json:"option_ids,omitempty"`
	Text       string    `json:"answer_text,omitempty"`
}

// SingleChoiceAnswer builds an answer selecting one option.
func SingleChoiceAnswer(questionID uuid.UUID, optionID int) Answer {
	return Answer{QuestionID: questionID, OptionID: &optionID}
}

// MultipleChoiceAnswer builds a set-valued answer.
func MultipleChoiceAnswer(questionID uuid.UUID, optionIDs ...int) Answer {
	return Answer{QuestionID: questionID, OptionIDs: optionIDs}
}

// TextAnswer builds a free-text answer.
func TextAnswer(questionID uuid.UUID, text string) Answer {
	return Answer{QuestionID: questionID, Text: text}
}

// SaveAnswerRequest is the progressive-save payload.
type SaveAnswerRequest struct {
	AttemptID  uuid.UUID `json:"attempt_id" binding:"required"`
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	OptionID   *int      `json:"option_id,omitempty"`
	OptionIDs  []int     `json:"option_ids,omitempty"`
	Text       string    `json:"answer_text,omitempty"`
}

// SubmitRequest carries the complete local answer map for final submission.
type SubmitRequest struct {
	AttemptID uuid.UUID `json:"attempt_id" binding:"required"`
	Answers   []Answer  `json:"answers"`
}
