package devserver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-client/internal/model"
)

func multipleChoiceQuestion(key ...int) *StoredQuestion {
	return &StoredQuestion{
		Question: model.Question{
			ID:   uuid.New(),
			Type: model.QuestionTypeMultipleChoice,
			Options: []model.Option{
				{ID: 1, Text: "a"}, {ID: 2, Text: "b"}, {ID: 3, Text: "c"},
			},
			Points: 10,
		},
		CorrectOptionIDs: key,
	}
}

func TestGradeMultipleChoiceSetEquality(t *testing.T) {
	q := multipleChoiceQuestion(1, 3)

	cases := []struct {
		name    string
		picked  []int
		correct bool
	}{
		{"exact set", []int{1, 3}, true},
		{"order irrelevant", []int{3, 1}, true},
		{"subset", []int{1}, false},
		{"superset", []int{1, 2, 3}, false},
		{"duplicate does not cover the key", []int{1, 1}, false},
		{"duplicates collapse to the key set", []int{1, 1, 3}, true},
		{"empty", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ans := model.MultipleChoiceAnswer(q.ID, tc.picked...)
			assert.Equal(t, tc.correct, gradeAnswer(q, &ans))
		})
	}
}

func TestSubmitDuplicateOptionIDsScoreZero(t *testing.T) {
	store := NewStore()
	q := multipleChoiceQuestion(1, 3)
	exam := &Exam{
		ID:              uuid.New(),
		Title:           "MC",
		DurationMinutes: 10,
		Questions:       []StoredQuestion{*q},
	}
	store.AddExam(exam)
	attempt := store.StartAttempt(exam, 1)

	result, err := store.SubmitAttempt(attempt.ID, []model.Answer{
		model.MultipleChoiceAnswer(q.ID, 1, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Score)
	require.Len(t, result.Details, 1)
	assert.False(t, result.Details[0].Correct)
}
