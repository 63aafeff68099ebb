package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationType enumerates detected proctoring violations.
type ViolationType string

const (
	ViolationAppSwitch ViolationType = "app_switch"
)

// ViolationEvent records one detected integrity violation. Ephemeral on
// the client: it is emitted on the realtime channel and only the counter
// is retained.
type ViolationEvent struct {
	ExamID    uuid.UUID     `json:"exam_id"`
	AttemptID uuid.UUID     `json:"attempt_id"`
	StudentID int           `json:"student_id"`
	Type      ViolationType `json:"type"`
	Reason    string        `json:"reason"`
	Timestamp time.Time     `json:"timestamp"`
}

// SnapshotReason tags why an identity snapshot was captured.
type SnapshotReason string

const (
	SnapshotReasonStart     SnapshotReason = "identity_check_start"
	SnapshotReasonRandom    SnapshotReason = "identity_check_random"
	SnapshotReasonAppSwitch SnapshotReason = "violation_app_switch"
)

// SnapshotEvent carries one base64-encoded identity capture.
type SnapshotEvent struct {
	ExamID    uuid.UUID      `json:"exam_id"`
	AttemptID uuid.UUID      `json:"attempt_id"`
	StudentID int            `json:"student_id"`
	Image     string         `json:"image"` // data:image/jpeg;base64,...
	Reason    SnapshotReason `json:"reason"`
}

// PenaltyNotice is the server-driven score deduction push. Informational
// only; the deduction is already reflected server-side.
type PenaltyNotice struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	PointsDeducted float64   `json:"points_deducted"`
}
