package camera

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no capture device can be used (missing
// hardware, denied permission). Callers degrade silently: a failed capture
// never halts the snapshot schedule.
var ErrUnavailable = errors.New("camera: capture device unavailable")

// Camera is the external image-capture capability. The session controller
// acquires it for the attempt's lifetime; only the snapshot scheduler
// uses it.
type Camera interface {
	// Capture takes one photo and returns raw JPEG bytes.
	Capture(ctx context.Context) ([]byte, error)
}
