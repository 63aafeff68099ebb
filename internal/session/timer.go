package session

import "time"

// startTimer launches the 1 Hz countdown goroutine. Caller must hold c.mu.
// The goroutine exits when the stop channel closes or when the countdown
// reaches zero, in which case it triggers a forced submission exactly once.
func (c *Controller) startTimer() {
	stop := make(chan struct{})
	c.timerStop = stop

	go func() {
		ticker := time.NewTicker(c.cfg.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if c.tick() {
					c.autoSubmit()
					return
				}
			}
		}
	}()
}

// stopTimer cancels the countdown goroutine. Caller must hold c.mu.
func (c *Controller) stopTimer() {
	if c.timerStop != nil {
		close(c.timerStop)
		c.timerStop = nil
	}
}

// tick decrements the remaining-seconds counter and reports whether the
// time limit just expired. Ticks are ignored while a submission is in
// flight so a last-second tick cannot race a manual submit.
func (c *Controller) tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting || c.submitted || c.remaining <= 0 {
		return false
	}
	c.remaining--
	return c.remaining == 0
}
