package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/camera"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/realtime"
)

// Sentinel errors returned by controller operations.
var (
	ErrNotStarted       = errors.New("session: attempt not started")
	ErrAttemptSubmitted = errors.New("session: attempt already submitted")
	ErrSubmitInFlight   = errors.New("session: submission already in flight")
	ErrUnknownQuestion  = errors.New("session: question not in attempt")
	ErrAnswerMismatch   = errors.New("session: answer value does not match question type")
)

const (
	saveTimeout    = 15 * time.Second
	submitTimeout  = 30 * time.Second
	captureTimeout = 10 * time.Second
)

// ExamAPI is the remote exam surface the controller calls into.
type ExamAPI interface {
	StartAttempt(ctx context.Context, examID uuid.UUID, accessCode string) (*model.Attempt, error)
	SaveAnswer(ctx context.Context, examID uuid.UUID, req *model.SaveAnswerRequest) error
	SubmitAttempt(ctx context.Context, examID uuid.UUID, req *model.SubmitRequest) (*model.Result, error)
}

// Config carries the per-attempt parameters of a Controller.
type Config struct {
	ExamID     uuid.UUID
	StudentID  int
	AccessCode string

	// Practice disables proctoring: no snapshots are scheduled or taken
	// for ungraded sessions.
	Practice bool

	SnapshotMinInterval time.Duration
	SnapshotMaxInterval time.Duration
	SnapshotStartDelay  time.Duration

	// TickInterval is the countdown resolution. Defaults to one second;
	// tests compress it.
	TickInterval time.Duration

	// Rand is the random source for snapshot scheduling. Defaults to a
	// time-seeded source; tests inject a seeded one.
	Rand *rand.Rand
}

// Controller owns one exam attempt: the countdown timer, the local answer
// map with best-effort remote persistence, the integrity monitor, the
// randomized snapshot schedule, and the single irrevocable submission.
// All mutable attempt state is serialized behind one mutex; timer ticks,
// channel pushes and capture firings run on their own goroutines but every
// state change passes through the lock.
type Controller struct {
	cfg       Config
	api       ExamAPI
	channel   realtime.Channel
	cam       camera.Camera
	lifecycle Lifecycle
	notifier  Notifier
	log       zerolog.Logger

	mu         sync.Mutex
	attempt    *model.Attempt
	answers    map[uuid.UUID]model.Answer
	remaining  int
	violations int
	submitting bool
	submitted  bool
	result     *model.Result
	timerStop  chan struct{}

	scheduler    *snapshotScheduler
	offLifecycle func()
	offPenalty   func()

	done      chan struct{}
	closeOnce sync.Once
	doneOnce  sync.Once
}

// New wires a Controller from its collaborators. The realtime channel and
// camera are session-scoped: the controller does not connect or release
// them, it only uses them between Start and Close.
func New(
	cfg Config,
	api ExamAPI,
	channel realtime.Channel,
	cam camera.Camera,
	lifecycle Lifecycle,
	notifier Notifier,
	log zerolog.Logger,
) *Controller {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Controller{
		cfg:       cfg,
		api:       api,
		channel:   channel,
		cam:       cam,
		lifecycle: lifecycle,
		notifier:  notifier,
		log:       log.With().Str("component", "session").Str("exam_id", cfg.ExamID.String()).Logger(),
		answers:   make(map[uuid.UUID]model.Answer),
		done:      make(chan struct{}),
	}
}

// Start begins the attempt: calls the start endpoint, boots the countdown,
// subscribes to lifecycle transitions and penalty pushes, and launches the
// snapshot schedule for graded sessions.
//
// A failure wrapping api.ErrAccessCodeRequired or api.ErrAccessCodeInvalid
// is recoverable: re-prompt and call Start again. Any other failure is
// fatal to the session.
func (c *Controller) Start(ctx context.Context) error {
	attempt, err := c.api.StartAttempt(ctx, c.cfg.ExamID, c.cfg.AccessCode)
	if err != nil {
		return fmt.Errorf("start attempt: %w", err)
	}

	c.mu.Lock()
	c.attempt = attempt
	c.remaining = attempt.TimeLimitSeconds
	c.startTimer()
	c.mu.Unlock()

	c.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Int("questions", len(attempt.Questions)).
		Int("time_limit_seconds", attempt.TimeLimitSeconds).
		Msg("Attempt started")

	c.offLifecycle = c.lifecycle.OnTransition(c.onTransition)
	c.offPenalty = c.channel.On(realtime.EventPointsDeducted, c.onPenalty)

	if !c.cfg.Practice {
		c.scheduler = newSnapshotScheduler(
			c.captureSnapshot,
			c.cfg.SnapshotMinInterval,
			c.cfg.SnapshotMaxInterval,
			c.cfg.SnapshotStartDelay,
			c.cfg.Rand,
			c.log,
		)
		c.scheduler.start()
	}

	return nil
}

// RecordAnswer applies one answer to the local map and fires the
// progressive save. The local write is synchronous and authoritative;
// the remote save is fire-and-forget (failures logged, never surfaced,
// never retried).
func (c *Controller) RecordAnswer(ans model.Answer) error {
	c.mu.Lock()
	if c.submitted {
		c.mu.Unlock()
		return ErrAttemptSubmitted
	}
	if c.attempt == nil {
		c.mu.Unlock()
		return ErrNotStarted
	}

	q := c.attempt.Question(ans.QuestionID)
	if q == nil {
		c.mu.Unlock()
		return ErrUnknownQuestion
	}
	if err := validateAnswer(q, &ans); err != nil {
		c.mu.Unlock()
		return err
	}

	// Last write wins locally regardless of remote save ordering.
	c.answers[ans.QuestionID] = ans
	attemptID := c.attempt.ID
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		req := &model.SaveAnswerRequest{
			AttemptID:  attemptID,
			QuestionID: ans.QuestionID,
			OptionID:   ans.OptionID,
			OptionIDs:  ans.OptionIDs,
			Text:       ans.Text,
		}
		if err := c.api.SaveAnswer(ctx, c.cfg.ExamID, req); err != nil {
			c.log.Warn().Err(err).Str("question_id", ans.QuestionID.String()).Msg("Progressive save failed")
		}
	}()

	return nil
}

// validateAnswer checks that the answer value shape matches the question
// type and, for choice questions, that every selected option exists.
func validateAnswer(q *model.Question, ans *model.Answer) error {
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		if ans.OptionID == nil || len(ans.OptionIDs) > 0 || ans.Text != "" {
			return ErrAnswerMismatch
		}
		if !q.HasOption(*ans.OptionID) {
			return ErrAnswerMismatch
		}
	case model.QuestionTypeMultipleChoice:
		if len(ans.OptionIDs) == 0 || ans.OptionID != nil || ans.Text != "" {
			return ErrAnswerMismatch
		}
		seen := make(map[int]bool, len(ans.OptionIDs))
		for _, id := range ans.OptionIDs {
			if seen[id] || !q.HasOption(id) {
				return ErrAnswerMismatch
			}
			seen[id] = true
		}
	case model.QuestionTypeEssay, model.QuestionTypeFillInBlank:
		if ans.OptionID != nil || len(ans.OptionIDs) > 0 {
			return ErrAnswerMismatch
		}
	default:
		return ErrAnswerMismatch
	}
	return nil
}

// Submit is the student-initiated submission path. It asks for
// confirmation first; forced submissions (time expiry, external trigger)
// go through ForceSubmit instead.
func (c *Controller) Submit(ctx context.Context) error {
	if !c.notifier.Confirm("Submit exam", "Are you sure you want to submit your answers?") {
		return nil
	}
	return c.doSubmit(ctx)
}

// ForceSubmit submits without confirmation. Used on timer expiry and by
// external auto-submit triggers.
func (c *Controller) ForceSubmit(ctx context.Context) error {
	return c.doSubmit(ctx)
}

// autoSubmit is the timer-expiry entry point.
func (c *Controller) autoSubmit() {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	c.log.Info().Msg("Time limit reached, forcing submission")
	if err := c.doSubmit(ctx); err != nil && !errors.Is(err, ErrSubmitInFlight) && !errors.Is(err, ErrAttemptSubmitted) {
		c.log.Error().Err(err).Msg("Forced submission failed")
	}
}

// doSubmit performs the single irreversible transition to submitted.
// A second call while one is in flight is rejected; a failed call clears
// the in-flight flag so a retry is possible. The payload always carries
// the complete local answer map regardless of progressive save outcomes.
func (c *Controller) doSubmit(ctx context.Context) error {
	c.mu.Lock()
	if c.attempt == nil {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if c.submitted {
		c.mu.Unlock()
		return ErrAttemptSubmitted
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.submitting = true
	c.stopTimer()

	attemptID := c.attempt.ID
	answers := make([]model.Answer, 0, len(c.answers))
	for _, ans := range c.answers {
		answers = append(answers, ans)
	}
	c.mu.Unlock()

	result, err := c.api.SubmitAttempt(ctx, c.cfg.ExamID, &model.SubmitRequest{
		AttemptID: attemptID,
		Answers:   answers,
	})
	if err != nil {
		c.mu.Lock()
		c.submitting = false
		// The session stays active: resume the countdown if time remains.
		if c.remaining > 0 {
			c.startTimer()
		}
		c.mu.Unlock()

		c.notifier.Alert("Submission failed", "An error occurred while submitting. Please try again.")
		return fmt.Errorf("submit attempt: %w", err)
	}

	c.mu.Lock()
	c.submitted = true
	c.submitting = false
	c.result = result
	c.mu.Unlock()

	c.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("score", result.Score).
		Float64("max_score", result.MaxScore).
		Msg("Attempt submitted")

	c.Close()
	c.doneOnce.Do(func() { close(c.done) })
	return nil
}

// BackRequested handles a back-navigation request (hardware or gesture).
// Navigation away is blocked unconditionally while the attempt is active;
// the only exit is the submission gate.
func (c *Controller) BackRequested() bool {
	c.mu.Lock()
	terminal := c.submitted
	c.mu.Unlock()

	if terminal {
		return true
	}
	c.notifier.Alert("Warning", "You are taking an exam. You cannot go back.")
	return false
}

// captureSnapshot takes one identity photo and emits it on the proctoring
// channel. Every failure path is silent: a missing camera or a failed emit
// must never disturb the exam.
func (c *Controller) captureSnapshot(reason model.SnapshotReason) {
	if c.cfg.Practice {
		return
	}

	c.mu.Lock()
	if c.attempt == nil || c.submitted {
		c.mu.Unlock()
		return
	}
	attemptID := c.attempt.ID
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	img, err := c.cam.Capture(ctx)
	if err != nil {
		c.log.Debug().Err(err).Str("reason", string(reason)).Msg("Snapshot capture failed")
		return
	}

	ev := model.SnapshotEvent{
		ExamID:    c.cfg.ExamID,
		AttemptID: attemptID,
		StudentID: c.cfg.StudentID,
		Image:     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
		Reason:    reason,
	}
	if err := c.channel.Emit(realtime.EventMonitorSnapshot, ev); err != nil {
		c.log.Debug().Err(err).Str("reason", string(reason)).Msg("Snapshot emit failed")
		return
	}

	c.log.Debug().Str("reason", string(reason)).Msg("Snapshot sent")
}

// Close tears the controller down: countdown, snapshot schedule, lifecycle
// subscription and penalty listener are all cancelled. Idempotent; called
// on navigation away, after successful submission, and on fatal start
// failure.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.stopTimer()
		c.mu.Unlock()

		if c.scheduler != nil {
			c.scheduler.stop()
		}
		if c.offLifecycle != nil {
			c.offLifecycle()
		}
		if c.offPenalty != nil {
			c.offPenalty()
		}
	})
}

// Done is closed once the attempt reaches its terminal submitted state.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Attempt returns the loaded attempt, nil before Start succeeds.
func (c *Controller) Attempt() *model.Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Remaining returns the seconds left on the countdown.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Violations returns the violation counter.
func (c *Controller) Violations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violations
}

// Answer returns the current local answer for a question.
func (c *Controller) Answer(questionID uuid.UUID) (model.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ans, ok := c.answers[questionID]
	return ans, ok
}

// Answers returns a copy of the local answer map.
func (c *Controller) Answers() map[uuid.UUID]model.Answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uuid.UUID]model.Answer, len(c.answers))
	for k, v := range c.answers {
		out[k] = v
	}
	return out
}

// Submitted reports whether the attempt reached its terminal state.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Result returns the frozen outcome, nil until submission succeeds.
func (c *Controller) Result() *model.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}
