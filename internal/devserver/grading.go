package devserver

import (
	"strings"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-client/internal/model"
)

// SubmitAttempt freezes an attempt: the submitted answer map replaces the
// progressively saved one, choice and fill-in questions are graded against
// the key, and any applied penalty is deducted. Irrevocable; a second
// submit returns ErrAlreadySubmitted.
func (s *Store) SubmitAttempt(attemptID uuid.UUID, answers []model.Answer) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if attempt.Submitted {
		return nil, ErrAlreadySubmitted
	}
	exam, ok := s.exams[attempt.ExamID]
	if !ok {
		return nil, ErrExamNotFound
	}

	// The final payload is authoritative over progressive saves.
	final := make(map[uuid.UUID]model.Answer, len(answers))
	for _, ans := range answers {
		final[ans.QuestionID] = ans
	}
	attempt.Answers = final

	result := &model.Result{
		AttemptID: attempt.ID,
		ExamID:    attempt.ExamID,
	}

	for i := range exam.Questions {
		q := &exam.Questions[i]
		result.MaxScore += q.Points

		detail := model.QuestionResult{
			QuestionID: q.ID,
			MaxPoints:  q.Points,
		}

		ans, answered := final[q.ID]
		switch {
		case !answered:
			// Unanswered scores zero.
		case q.Type == model.QuestionTypeEssay:
			// Essays await manual grading.
			detail.Pending = true
		case gradeAnswer(q, &ans):
			detail.Correct = true
			detail.Points = q.Points
			result.Score += q.Points
		}

		result.Details = append(result.Details, detail)
	}

	if attempt.PenaltyPoints > 0 {
		result.Score -= attempt.PenaltyPoints
		if result.Score < 0 {
			result.Score = 0
		}
	}

	attempt.Submitted = true
	attempt.Result = result
	return result, nil
}

// gradeAnswer checks one non-essay answer against the key.
func gradeAnswer(q *StoredQuestion, ans *model.Answer) bool {
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		return ans.OptionID != nil &&
			len(q.CorrectOptionIDs) == 1 &&
			*ans.OptionID == q.CorrectOptionIDs[0]

	case model.QuestionTypeMultipleChoice:
		// Set equality: duplicates in the payload must not inflate the
		// selection, so compare deduplicated sets.
		key := make(map[int]bool, len(q.CorrectOptionIDs))
		for _, id := range q.CorrectOptionIDs {
			key[id] = true
		}
		picked := make(map[int]bool, len(ans.OptionIDs))
		for _, id := range ans.OptionIDs {
			if !key[id] {
				return false
			}
			picked[id] = true
		}
		return len(picked) == len(key)

	case model.QuestionTypeFillInBlank:
		return strings.EqualFold(strings.TrimSpace(ans.Text), strings.TrimSpace(q.CorrectText))
	}
	return false
}
