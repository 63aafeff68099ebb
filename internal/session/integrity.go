package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/realtime"
)

// onTransition is the integrity monitor's reducer over visibility events.
// Leaving the active state is exactly one violation; returning to active
// is a no-op, so one excursion never double-counts.
func (c *Controller) onTransition(from, to AppState) {
	if from.Foreground() && !to.Foreground() {
		c.violate("left the application")
	}
}

// violate records one violation: counter, user alert, realtime emit, and
// an immediate identity snapshot. The emit and the capture are best-effort.
func (c *Controller) violate(reason string) {
	c.mu.Lock()
	if c.attempt == nil || c.submitted {
		c.mu.Unlock()
		return
	}
	c.violations++
	count := c.violations
	attemptID := c.attempt.ID
	c.mu.Unlock()

	c.log.Warn().Str("reason", reason).Int("violation_count", count).Msg("Violation detected")

	c.notifier.Alert(
		"Cheating warning",
		fmt.Sprintf("The system detected that you %s.\nThe violation has been recorded.", reason),
	)

	ev := model.ViolationEvent{
		ExamID:    c.cfg.ExamID,
		AttemptID: attemptID,
		StudentID: c.cfg.StudentID,
		Type:      model.ViolationAppSwitch,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	if err := c.channel.Emit(realtime.EventCheatingAlert, ev); err != nil {
		c.log.Debug().Err(err).Msg("Violation emit failed")
	}

	go c.captureSnapshot(model.SnapshotReasonAppSwitch)
}

// onPenalty handles the server-driven score deduction push. Informational
// only: the deduction is already reflected server-side, no local score
// state changes.
func (c *Controller) onPenalty(data json.RawMessage) {
	var notice model.PenaltyNotice
	if err := json.Unmarshal(data, &notice); err != nil {
		c.log.Debug().Err(err).Msg("Malformed penalty notice")
		return
	}
	if notice.PointsDeducted <= 0 {
		return
	}

	c.log.Warn().Float64("points_deducted", notice.PointsDeducted).Msg("Penalty applied by server")

	c.notifier.Alert(
		"Points deducted",
		fmt.Sprintf("The system deducted %.1f points because you left the application.\n\nFurther violations may void the attempt.", notice.PointsDeducted),
	)
}
