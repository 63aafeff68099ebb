package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-client/internal/model"
)

func TestRecordAnswerLastWriteWins(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	require.NoError(t, rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ1, 1)))
	require.NoError(t, rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ1, 3)))
	require.NoError(t, rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ1, 2)))

	ans, ok := rig.ctrl.Answer(testQ1)
	require.True(t, ok)
	require.NotNil(t, ans.OptionID)
	assert.Equal(t, 2, *ans.OptionID)
}

func TestRecordAnswerValidation(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	t.Run("unknown question", func(t *testing.T) {
		err := rig.ctrl.RecordAnswer(model.TextAnswer(testExamID, "nope"))
		assert.ErrorIs(t, err, ErrUnknownQuestion)
	})

	t.Run("text for choice question", func(t *testing.T) {
		err := rig.ctrl.RecordAnswer(model.TextAnswer(testQ1, "four"))
		assert.ErrorIs(t, err, ErrAnswerMismatch)
	})

	t.Run("option for essay question", func(t *testing.T) {
		err := rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ2, 1))
		assert.ErrorIs(t, err, ErrAnswerMismatch)
	})

	t.Run("nonexistent option", func(t *testing.T) {
		err := rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ1, 99))
		assert.ErrorIs(t, err, ErrAnswerMismatch)
	})

	t.Run("set-valued multiple choice", func(t *testing.T) {
		err := rig.ctrl.RecordAnswer(model.MultipleChoiceAnswer(testQ3, 1, 2))
		assert.NoError(t, err)
		ans, ok := rig.ctrl.Answer(testQ3)
		require.True(t, ok)
		assert.Equal(t, []int{1, 2}, ans.OptionIDs)
	})

	t.Run("duplicate options for multiple choice", func(t *testing.T) {
		err := rig.ctrl.RecordAnswer(model.MultipleChoiceAnswer(testQ3, 1, 1))
		assert.ErrorIs(t, err, ErrAnswerMismatch)
	})

	t.Run("single option for multiple choice field", func(t *testing.T) {
		err := rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ3, 1))
		assert.ErrorIs(t, err, ErrAnswerMismatch)
	})
}

func TestSaveFailureIsSilentAndLocalStateWins(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	rig.api.saveErr = errors.New("network down")
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	require.NoError(t, rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ1, 2)))

	// Local state reflects the write immediately despite the remote failure.
	ans, ok := rig.ctrl.Answer(testQ1)
	require.True(t, ok)
	assert.Equal(t, 2, *ans.OptionID)

	// No user-visible error was raised.
	assert.Equal(t, 0, rig.notifier.alertCount())

	// Final submit still carries the answer.
	require.NoError(t, rig.ctrl.ForceSubmit(context.Background()))
	payload := rig.api.lastSubmit()
	require.NotNil(t, payload)
	require.Len(t, payload.Answers, 1)
	assert.Equal(t, testQ1, payload.Answers[0].QuestionID)
}

func TestConcurrentManualAndForcedSubmit(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	rig.api.submitDelay = 50 * time.Millisecond
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); results[0] = rig.ctrl.Submit(context.Background()) }()
	go func() { defer wg.Done(); results[1] = rig.ctrl.ForceSubmit(context.Background()) }()
	wg.Wait()

	// Exactly one remote submit call; the loser saw the guard.
	assert.Equal(t, 1, rig.api.submitCount())
	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, ErrSubmitInFlight) || errors.Is(err, ErrAttemptSubmitted))
		}
	}
	assert.Equal(t, 1, winners)
	assert.True(t, rig.ctrl.Submitted())
}

func TestSubmitFailureAllowsRetry(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	rig.api.setSubmitErr(errors.New("gateway timeout"))
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	err := rig.ctrl.Submit(context.Background())
	require.Error(t, err)
	assert.False(t, rig.ctrl.Submitted())
	assert.Contains(t, rig.notifier.alerts, "Submission failed")

	// The attempt is not assumed submitted; a retry succeeds.
	rig.api.setSubmitErr(nil)
	require.NoError(t, rig.ctrl.Submit(context.Background()))
	assert.True(t, rig.ctrl.Submitted())
	assert.Equal(t, 2, rig.api.submitCount())
}

func TestSubmitCancelledByUser(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	rig.notifier.confirm = false
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	require.NoError(t, rig.ctrl.Submit(context.Background()))
	assert.Equal(t, 0, rig.api.submitCount())
	assert.False(t, rig.ctrl.Submitted())
}

func TestRecordAnswerAfterSubmitRejected(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	require.NoError(t, rig.ctrl.ForceSubmit(context.Background()))
	err := rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ1, 1))
	assert.ErrorIs(t, err, ErrAttemptSubmitted)
}

func TestBackNavigationBlockedWhileActive(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	assert.False(t, rig.ctrl.BackRequested())
	assert.Contains(t, rig.notifier.alerts, "Warning")

	require.NoError(t, rig.ctrl.ForceSubmit(context.Background()))
	assert.True(t, rig.ctrl.BackRequested())
}

// Full scenario: three questions, the student answers Q1 with option 2,
// backgrounds the app once, answers Q2 with text, and submits manually.
func TestFullSessionScenario(t *testing.T) {
	rig := newTestRig(testAttempt(600), func(cfg *Config) {
		cfg.SnapshotStartDelay = 5 * time.Millisecond
	})
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	// Start-verification snapshot fires once near attempt start.
	require.Eventually(t, func() bool {
		return len(rig.channel.snapshots()) >= 1
	}, time.Second, time.Millisecond)

	require.NoError(t, rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ1, 2)))

	rig.watcher.SetState(StateBackground)
	rig.watcher.SetState(StateActive)

	require.NoError(t, rig.ctrl.RecordAnswer(model.TextAnswer(testQ2, "answer")))

	// The violation snapshot is captured asynchronously.
	require.Eventually(t, func() bool {
		return len(rig.channel.snapshots()) >= 2
	}, time.Second, time.Millisecond)

	require.NoError(t, rig.ctrl.Submit(context.Background()))

	assert.Equal(t, 1, rig.ctrl.Violations())
	require.Len(t, rig.channel.violations(), 1)
	assert.Equal(t, model.ViolationAppSwitch, rig.channel.violations()[0].Type)
	assert.Equal(t, 42, rig.channel.violations()[0].StudentID)

	reasons := make(map[model.SnapshotReason]int)
	for _, s := range rig.channel.snapshots() {
		reasons[s.Reason]++
	}
	assert.Equal(t, 1, reasons[model.SnapshotReasonStart])
	assert.Equal(t, 1, reasons[model.SnapshotReasonAppSwitch])

	payload := rig.api.lastSubmit()
	require.NotNil(t, payload)
	require.Len(t, payload.Answers, 2)
	byQ := make(map[string]model.Answer)
	for _, a := range payload.Answers {
		byQ[a.QuestionID.String()] = a
	}
	require.Contains(t, byQ, testQ1.String())
	assert.Equal(t, 2, *byQ[testQ1.String()].OptionID)
	require.Contains(t, byQ, testQ2.String())
	assert.Equal(t, "answer", byQ[testQ2.String()].Text)
	assert.NotContains(t, byQ, testQ3.String())

	assert.Equal(t, 1, rig.api.submitCount())
}
