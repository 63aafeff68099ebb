package session

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/model"
)

// snapshotScheduler drives the randomized identity-check captures. One
// capture fires shortly after attempt start; every subsequent capture is
// scheduled a fresh uniform-random delay after the previous one fired, so
// the sequence cannot be anticipated. A failed capture never halts the
// schedule.
type snapshotScheduler struct {
	capture     func(reason model.SnapshotReason)
	minInterval time.Duration
	maxInterval time.Duration
	startDelay  time.Duration
	rng         *rand.Rand
	log         zerolog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newSnapshotScheduler(
	capture func(reason model.SnapshotReason),
	minInterval, maxInterval, startDelay time.Duration,
	rng *rand.Rand,
	log zerolog.Logger,
) *snapshotScheduler {
	return &snapshotScheduler{
		capture:     capture,
		minInterval: minInterval,
		maxInterval: maxInterval,
		startDelay:  startDelay,
		rng:         rng,
		log:         log.With().Str("component", "snapshot_scheduler").Logger(),
		stopCh:      make(chan struct{}),
	}
}

// start launches the scheduling loop. Call at most once.
func (s *snapshotScheduler) start() {
	go s.run()
}

// stop cancels all pending captures. Idempotent.
func (s *snapshotScheduler) stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *snapshotScheduler) run() {
	// One verification capture near start, after the capture device had
	// time to initialize.
	if !s.sleep(s.startDelay) {
		return
	}
	s.capture(model.SnapshotReasonStart)

	for {
		delay := s.nextDelay()
		s.log.Debug().Dur("delay", delay).Msg("Next identity check scheduled")

		if !s.sleep(delay) {
			return
		}
		s.capture(model.SnapshotReasonRandom)
	}
}

// nextDelay draws a uniform-random delay in [minInterval, maxInterval].
func (s *snapshotScheduler) nextDelay() time.Duration {
	span := int64(s.maxInterval - s.minInterval)
	if span <= 0 {
		return s.minInterval
	}
	return s.minInterval + time.Duration(s.rng.Int63n(span+1))
}

// sleep waits for d unless the scheduler is stopped first.
func (s *snapshotScheduler) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-s.stopCh:
		return false
	}
}
