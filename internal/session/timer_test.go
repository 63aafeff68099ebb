package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-client/internal/model"
)

func TestTimerCountsDownToZeroAndForcesSubmit(t *testing.T) {
	rig := newTestRig(testAttempt(5), nil)
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	require.NoError(t, rig.ctrl.RecordAnswer(model.SingleChoiceAnswer(testQ1, 2)))

	select {
	case <-rig.ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timer expiry did not trigger submission")
	}

	assert.Equal(t, 0, rig.ctrl.Remaining())
	assert.True(t, rig.ctrl.Submitted())
	assert.Equal(t, 1, rig.api.submitCount())

	// No confirmation dialog on the forced path.
	assert.Equal(t, 0, rig.notifier.confirmCalls)

	// Forced submit carries only the answered question.
	payload := rig.api.lastSubmit()
	require.NotNil(t, payload)
	require.Len(t, payload.Answers, 1)
	assert.Equal(t, testQ1, payload.Answers[0].QuestionID)

	// No further decrements after reaching zero.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, rig.ctrl.Remaining())
}

func TestTimerPausesWhileSubmitInFlight(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	rig.api.submitDelay = 40 * time.Millisecond
	require.NoError(t, rig.ctrl.Start(context.Background()))
	defer rig.ctrl.Close()

	before := rig.ctrl.Remaining()
	require.NoError(t, rig.ctrl.ForceSubmit(context.Background()))
	after := rig.ctrl.Remaining()

	// ~40 ticks would have elapsed at the compressed interval had the
	// countdown kept running during the in-flight window.
	assert.LessOrEqual(t, before-after, 2)
}

func TestTimerStoppedOnClose(t *testing.T) {
	rig := newTestRig(testAttempt(600), nil)
	require.NoError(t, rig.ctrl.Start(context.Background()))

	rig.ctrl.Close()
	at := rig.ctrl.Remaining()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, at, rig.ctrl.Remaining())
}
