package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/camera"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/realtime"
)

// ─── Fake exam API ──────────────────────────────────────────────────────

type fakeAPI struct {
	mu          sync.Mutex
	attempt     *model.Attempt
	result      *model.Result
	startErr    error
	saveErr     error
	submitErr   error
	submitDelay time.Duration
	saveCalls   []model.SaveAnswerRequest
	submitCalls []model.SubmitRequest
}

func (f *fakeAPI) StartAttempt(_ context.Context, _ uuid.UUID, _ string) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.attempt, nil
}

func (f *fakeAPI) SaveAnswer(_ context.Context, _ uuid.UUID, req *model.SaveAnswerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls = append(f.saveCalls, *req)
	return f.saveErr
}

func (f *fakeAPI) SubmitAttempt(_ context.Context, _ uuid.UUID, req *model.SubmitRequest) (*model.Result, error) {
	f.mu.Lock()
	delay := f.submitDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls = append(f.submitCalls, *req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &model.Result{AttemptID: req.AttemptID, Score: 0, MaxScore: 10}, nil
}

func (f *fakeAPI) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitCalls)
}

func (f *fakeAPI) lastSubmit() *model.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submitCalls) == 0 {
		return nil
	}
	req := f.submitCalls[len(f.submitCalls)-1]
	return &req
}

func (f *fakeAPI) setSubmitErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
}

// ─── Fake realtime channel ──────────────────────────────────────────────

type emitted struct {
	event   realtime.Event
	payload interface{}
}

type fakeChannel struct {
	mu       sync.Mutex
	emits    []emitted
	emitErr  error
	handlers map[realtime.Event][]func(json.RawMessage)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[realtime.Event][]func(json.RawMessage))}
}

func (f *fakeChannel) Emit(event realtime.Event, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, emitted{event: event, payload: payload})
	return f.emitErr
}

func (f *fakeChannel) On(event realtime.Event, handler func(json.RawMessage)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], handler)
	return func() {}
}

func (f *fakeChannel) Close() error { return nil }

// push simulates a server-pushed event.
func (f *fakeChannel) push(event realtime.Event, payload interface{}) {
	data, _ := json.Marshal(payload)
	f.mu.Lock()
	handlers := append([]func(json.RawMessage){}, f.handlers[event]...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(data)
	}
}

func (f *fakeChannel) snapshots() []model.SnapshotEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SnapshotEvent
	for _, e := range f.emits {
		if e.event == realtime.EventMonitorSnapshot {
			out = append(out, e.payload.(model.SnapshotEvent))
		}
	}
	return out
}

func (f *fakeChannel) violations() []model.ViolationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ViolationEvent
	for _, e := range f.emits {
		if e.event == realtime.EventCheatingAlert {
			out = append(out, e.payload.(model.ViolationEvent))
		}
	}
	return out
}

// ─── Fake camera ────────────────────────────────────────────────────────

type fakeCamera struct {
	mu       sync.Mutex
	err      error
	captures []time.Time
}

func (f *fakeCamera) Capture(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, time.Now())
	if f.err != nil {
		return nil, f.err
	}
	return []byte{0xff, 0xd8, 0xff}, nil
}

func (f *fakeCamera) captureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.captures)
}

var _ camera.Camera = (*fakeCamera)(nil)

// ─── Fake notifier ──────────────────────────────────────────────────────

type fakeNotifier struct {
	mu           sync.Mutex
	confirm      bool
	alerts       []string
	confirmCalls int
}

func (f *fakeNotifier) Alert(title, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, title)
}

func (f *fakeNotifier) Confirm(_, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls++
	return f.confirm
}

func (f *fakeNotifier) alertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

// ─── Test fixture ───────────────────────────────────────────────────────

var (
	testExamID = uuid.MustParse("6f1c1bfa-6b3e-4a6b-9f0e-2b6f14f3a001")
	testQ1     = uuid.MustParse("6f1c1bfa-6b3e-4a6b-9f0e-2b6f14f3a101")
	testQ2     = uuid.MustParse("6f1c1bfa-6b3e-4a6b-9f0e-2b6f14f3a102")
	testQ3     = uuid.MustParse("6f1c1bfa-6b3e-4a6b-9f0e-2b6f14f3a103")
)

// testAttempt builds a three-question attempt: single choice, essay, and
// multiple choice.
func testAttempt(timeLimitSeconds int) *model.Attempt {
	return &model.Attempt{
		ID:               uuid.New(),
		ExamID:           testExamID,
		Title:            "Midterm",
		TimeLimitSeconds: timeLimitSeconds,
		Questions: []model.Question{
			{
				ID:      testQ1,
				Type:    model.QuestionTypeSingleChoice,
				Content: "2 + 2 = ?",
				Options: []model.Option{{ID: 1, Text: "3"}, {ID: 2, Text: "4"}, {ID: 3, Text: "5"}},
				Points:  1,
			},
			{
				ID:      testQ2,
				Type:    model.QuestionTypeEssay,
				Content: "Explain photosynthesis.",
				Points:  3,
			},
			{
				ID:      testQ3,
				Type:    model.QuestionTypeMultipleChoice,
				Content: "Select the prime numbers.",
				Options: []model.Option{{ID: 1, Text: "2"}, {ID: 2, Text: "3"}, {ID: 3, Text: "4"}},
				Points:  2,
			},
		},
	}
}

type testRig struct {
	api      *fakeAPI
	channel  *fakeChannel
	cam      *fakeCamera
	watcher  *AppStateWatcher
	notifier *fakeNotifier
	ctrl     *Controller
}

// newTestRig wires a controller around fakes. Snapshot intervals default
// to an hour so the randomized schedule never interferes with a test
// unless it opts in via cfg overrides.
func newTestRig(attempt *model.Attempt, override func(cfg *Config)) *testRig {
	rig := &testRig{
		api:      &fakeAPI{attempt: attempt},
		channel:  newFakeChannel(),
		cam:      &fakeCamera{},
		watcher:  NewAppStateWatcher(),
		notifier: &fakeNotifier{confirm: true},
	}

	cfg := Config{
		ExamID:              testExamID,
		StudentID:           42,
		TickInterval:        time.Millisecond,
		SnapshotMinInterval: time.Hour,
		SnapshotMaxInterval: 2 * time.Hour,
		SnapshotStartDelay:  time.Hour,
	}
	if override != nil {
		override(&cfg)
	}

	rig.ctrl = New(cfg, rig.api, rig.channel, rig.cam, rig.watcher, rig.notifier, zerolog.Nop())
	return rig
}
