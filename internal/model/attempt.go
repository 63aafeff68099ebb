package model

import "github.com/google/uuid"

// Attempt identifies one student's run at one exam instance. The server
// assigns the attempt ID at start; questions and the time limit are fixed
// for the attempt's lifetime.
type Attempt struct {
	ID               uuid.UUID  `json:"attempt_id"`
	ExamID           uuid.UUID  `json:"exam_id"`
	Title            string     `json:"title"`
	Questions        []Question `json:"questions"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
}

// Question returns the loaded question with the given ID, or nil if the
// ID does not belong to the attempt's question set.
func (a *Attempt) Question(id uuid.UUID) *Question {
	for i := range a.Questions {
		if a.Questions[i].ID == id {
			return &a.Questions[i]
		}
	}
	return nil
}

// StartAttemptRequest is the payload for starting an attempt. AccessCode
// is required only for code-protected exams.
type StartAttemptRequest struct {
	AccessCode string `json:"access_code,omitempty"`
}
