package model

import "github.com/google/uuid"

// QuestionResult is the graded outcome of a single question. Scoring is
// server-authoritative; the client only displays it.
type QuestionResult struct {
	QuestionID uuid.UUID `json:"question_id"`
	Correct    bool      `json:"correct"`
	Points     float64   `json:"points"`
	MaxPoints  float64   `json:"max_points"`
	Pending    bool      `json:"pending,omitempty"` // essay awaiting manual grading
}

// Result is the frozen outcome of a submitted attempt.
type Result struct {
	AttemptID uuid.UUID        `json:"attempt_id"`
	ExamID    uuid.UUID        `json:"exam_id"`
	Score     float64          `json:"score"`
	MaxScore  float64          `json:"max_score"`
	Details   []QuestionResult `json:"details,omitempty"`
}
