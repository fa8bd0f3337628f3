package queue

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ivlev/vizdeck/internal/anim"
	"github.com/ivlev/vizdeck/internal/config"
	"github.com/ivlev/vizdeck/internal/engine"
)

// fakeEngine records submissions and lets the test decide when the engine
// activates or completes them
type fakeEngine struct {
	mu          sync.Mutex
	calls       []*fakeCall
	features    map[string]bool
	handlers    map[engine.EventType]map[int]engine.Handler
	nextHandler int
	log         []string
}

type fakeCall struct {
	steps       []anim.Keyframe
	opts        anim.Options
	onActivated engine.ActivationFunc
	ctrl        *fakeControl
}

type fakeControl struct {
	id  int
	eng *fakeEngine
}

func (c *fakeControl) record(op string) {
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()
	c.eng.log = append(c.eng.log, fmt.Sprintf("%d:%s", c.id, op))
}

func (c *fakeControl) Pause() { c.record("pause") }
func (c *fakeControl) Play() { c.record("play") }
func (c *fakeControl) Stop() { c.record("stop") }
func (c *fakeControl) Cancel() { c.record("cancel") }
func (c *fakeControl) Seek(pos string) { c.record("seek " + pos) }
func (c *fakeControl) Reverse() { c.record("reverse") }

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		features: map[string]bool{engine.FeatureRendering: true},
		handlers: map[engine.EventType]map[int]engine.Handler{},
	}
}

func (e *fakeEngine) Animate(steps []anim.Keyframe, opts anim.Options, onActivated engine.ActivationFunc) *engine.Animation {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := &fakeCall{steps: steps, opts: opts, onActivated: onActivated}
	c.ctrl = &fakeControl{id: len(e.calls), eng: e}
	e.calls = append(e.calls, c)
	return engine.NewAnimation()
}

func (e *fakeEngine) Feature(name string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.features[name] = enabled
}

func (e *fakeEngine) On(t engine.EventType, h engine.Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextHandler
	e.nextHandler++
	if e.handlers[t] == nil {
		e.handlers[t] = map[int]engine.Handler{}
	}
	e.handlers[t][id] = h
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[t], id)
	}
}

func (e *fakeEngine) Config() map[string]any { return map[string]any{} }
func (e *fakeEngine) ComputedStyle() map[string]any { return map[string]any{} }

func (e *fakeEngine) call(i int) *fakeCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[i]
}

func (e *fakeEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// last returns the index of the latest submission that expects activation
func (e *fakeEngine) last() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.calls) - 1; i >= 0; i-- {
		if e.calls[i].onActivated != nil {
			return i
		}
	}
	return -1
}

func (e *fakeEngine) rendering() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.features[engine.FeatureRendering]
}

func (e *fakeEngine) controlLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

func (e *fakeEngine) activate(i int) {
	c := e.call(i)
	c.onActivated(c.ctrl, nil)
}

func (e *fakeEngine) fail(i int, err error) {
	c := e.call(i)
	c.onActivated(nil, err)
}

func (e *fakeEngine) complete(i int) {
	c := e.call(i)
	e.mu.Lock()
	var hs []engine.Handler
	for _, h := range e.handlers[engine.EventAnimationComplete] {
		hs = append(hs, h)
	}
	e.mu.Unlock()
	for _, h := range hs {
		h(engine.Event{Type: engine.EventAnimationComplete, Control: c.ctrl})
	}
}

func newTestQueue(t *testing.T, params config.QueueParams) (*Queue, *fakeEngine) {
	t.Helper()
	eng := newFakeEngine()
	q := New(eng, params, zaptest.NewLogger(t).Sugar())
	t.Cleanup(q.Close)
	return q, eng
}

func step(key, value string) anim.Keyframe {
	return anim.Keyframe{
		Target:  anim.Target{Config: map[string]any{key: value}},
		Options: &anim.Options{Duration: anim.Dur(2 * time.Second)},
	}
}

func request(slide int, steps ...anim.Keyframe) anim.Request {
	return anim.NewRequest(steps, anim.Options{}, anim.SlideTag(slide))
}

func TestEnqueueFIFO(t *testing.T) {
	q, _ := newTestQueue(t, config.QueueParams{})

	a := request(0, step("x", "A"))
	b := request(1, step("x", "B"))
	c := request(2, step("x", "C"))

	q.Enqueue(a)
	q.Enqueue(a) // same request at the tail collapses
	q.Enqueue(b)
	q.Enqueue(c)
	q.Enqueue(b) // not at the tail, kept

	if q.Len() != 4 {
		t.Fatalf("Expected 4 requests, got %d", q.Len())
	}

	var order []uint64
	for {
		req, ok := q.Dequeue()
		if !ok {
			break
		}
		order = append(order, req.ID())
	}
	expected := []uint64{a.ID(), b.ID(), c.ID(), b.ID()}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("Expected order %v, got %v", expected, order)
	}

	// Tail is recomputed on empty
	if _, ok := q.Tail(); ok {
		t.Error("Expected no tail on an empty queue")
	}
	if !q.IsEmpty() {
		t.Error("Expected empty queue")
	}
}

func TestEnqueueStartsOnlyWhenIdle(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(0, step("x", "A")))
	if eng.count() != 1 {
		t.Fatalf("Expected 1 submission, got %d", eng.count())
	}
	if q.Phase() != PhaseActivating {
		t.Errorf("Expected activating, got %v", q.Phase())
	}

	q.Enqueue(request(1, step("x", "B")))
	if eng.count() != 1 {
		t.Errorf("Expected B to wait behind A, got %d submissions", eng.count())
	}
	if !q.HasNext() {
		t.Error("Expected HasNext")
	}
}

func TestSingleHandle(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(0, step("x", "A")))
	if q.IsPlaying() {
		t.Error("Expected not playing before activation")
	}

	eng.activate(0)
	if !q.IsPlaying() || q.Phase() != PhaseActive {
		t.Errorf("Expected active after activation, got %v", q.Phase())
	}

	q.Pause()
	if q.IsPlaying() || !q.IsPaused() {
		t.Errorf("Expected paused, got %v", q.Phase())
	}
	q.Continue()
	if !q.IsPlaying() || q.IsPaused() {
		t.Errorf("Expected playing again, got %v", q.Phase())
	}

	expected := []string{"0:pause", "0:play"}
	if got := eng.controlLog(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestAutoAdvance(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	a := request(0, step("x", "A"))
	b := request(1, step("x", "B"))
	c := request(2, step("x", "C"))
	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)
	eng.activate(0)

	eng.complete(0)
	head, _ := q.Head()
	if head.ID() != b.ID() {
		t.Fatalf("Expected head B, got %d", head.ID())
	}
	if eng.count() != 2 {
		t.Fatalf("Expected B submitted, got %d submissions", eng.count())
	}

	// B is not the last request, so it plays sped up
	sub := eng.call(1)
	if d := *sub.steps[0].Options.Duration; d != anim.DefaultSpeedUpDuration {
		t.Errorf("Expected sped up step, got %v", d)
	}

	eng.activate(1)
	eng.complete(1)

	// C is last and keeps its own timing
	sub = eng.call(2)
	if d := *sub.steps[0].Options.Duration; d != 2*time.Second {
		t.Errorf("Expected authored duration for the last request, got %v", d)
	}

	eng.activate(2)
	eng.complete(2)
	if q.Phase() != PhaseIdle || !q.IsEmpty() {
		t.Errorf("Expected idle empty queue, got %v with %d", q.Phase(), q.Len())
	}
}

func TestCompletionFromOtherHandleIgnored(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(0, step("x", "A")))
	q.Enqueue(request(1, step("x", "B")))

	// Completion before activation is not ours yet
	eng.complete(0)
	if q.Len() != 2 {
		t.Fatalf("Expected early completion ignored, got %d requests", q.Len())
	}

	eng.activate(0)
	eng.complete(0)
	eng.complete(0)
	if q.Len() != 1 {
		t.Errorf("Expected a single advance, got %d requests", q.Len())
	}
}

func TestAbort(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	a := request(0, step("x", "A"))
	b := request(1, step("x", "B"))
	q.Enqueue(a)
	q.Enqueue(b)
	eng.activate(0)

	q.Abort()

	head, ok := q.Head()
	if !ok || head.ID() != b.ID() {
		t.Fatalf("Expected B at head after abort, got %v", head.ID())
	}
	if eng.count() != 2 {
		t.Fatalf("Expected B submitted, got %d submissions", eng.count())
	}
	if got := eng.controlLog(); !reflect.DeepEqual(got, []string{"0:stop"}) {
		t.Errorf("Expected A stopped, got %v", got)
	}

	// A late completion from the aborted handle must not advance again
	eng.complete(0)
	if q.Len() != 1 {
		t.Errorf("Expected B still queued, got %d requests", q.Len())
	}

	eng.activate(1)
	q.Abort()
	if q.Phase() != PhaseIdle || !q.IsEmpty() {
		t.Errorf("Expected idle after aborting the last request, got %v", q.Phase())
	}

	// Nothing left to abort
	q.Abort()
	if eng.count() != 2 {
		t.Errorf("Expected no further submissions, got %d", eng.count())
	}
}

func TestAbortSupersedesActivation(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(0, step("x", "A")))
	eng.activate(0)
	eng.complete(0)

	// Handle survives completion; B is submitted but not yet activated
	q.Enqueue(request(1, step("x", "B")))
	q.Abort()

	eng.activate(1)
	if q.Phase() != PhaseIdle {
		t.Errorf("Expected idle, got %v", q.Phase())
	}
	log := eng.controlLog()
	if len(log) == 0 || log[len(log)-1] != "1:stop" {
		t.Errorf("Expected the superseded activation to be stopped, got %v", log)
	}
}

func TestManualUpdate(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	a := request(3, step("x", "A"))
	q.Enqueue(a)
	if eng.count() != 1 {
		t.Fatalf("Expected 1 submission, got %d", eng.count())
	}

	replacement := anim.NewRequest([]anim.Keyframe{step("x", "Z")}, anim.Options{Easing: "linear"}, nil)
	q.ManualUpdate(replacement)

	if q.Len() != 1 {
		t.Fatalf("Expected no new node, got %d", q.Len())
	}
	if eng.count() != 2 {
		t.Fatalf("Expected exactly one new submission, got %d", eng.count())
	}

	head, _ := q.Head()
	if head.ID() != a.ID() {
		t.Errorf("Expected head identity kept, got %d", head.ID())
	}
	if head.Steps[0].Target.Config["x"] != "Z" || head.Options.Easing != "linear" {
		t.Errorf("Expected head rewritten, got %+v", head)
	}
	if head.Tag[anim.ParamCurrentSlide] != 3 {
		t.Errorf("Expected tag kept, got %v", head.Tag)
	}

	// The first submission activating late is stale
	eng.activate(0)
	if q.Phase() != PhaseActivating {
		t.Errorf("Expected still activating, got %v", q.Phase())
	}
	eng.activate(1)
	if q.Phase() != PhaseActive {
		t.Errorf("Expected active, got %v", q.Phase())
	}
}

func TestManualUpdateEmptyQueue(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(0, step("x", "A")))
	eng.activate(0)
	eng.complete(0)

	q.ManualUpdate(request(1, step("x", "B")))
	if q.Len() != 1 || eng.count() != 2 {
		t.Errorf("Expected enqueue behaviour, got len=%d submissions=%d", q.Len(), eng.count())
	}
	expected := []string{"0:play", "0:stop"}
	if got := eng.controlLog(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParameter(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	if _, ok := q.Parameter(anim.ParamCurrentSlide); ok {
		t.Error("Expected no parameter before any activation")
	}

	q.Enqueue(request(2, step("x", "A")))
	q.Enqueue(request(3, step("x", "B")))
	if _, ok := q.Parameter(anim.ParamCurrentSlide); ok {
		t.Error("Expected no parameter before activation")
	}

	eng.activate(0)
	if v, _ := q.Parameter(anim.ParamCurrentSlide); v != 2 {
		t.Errorf("Expected 2, got %v", v)
	}

	eng.complete(0)
	if v, _ := q.Parameter(anim.ParamCurrentSlide); v != 2 {
		t.Errorf("Expected 2 until the next activation, got %v", v)
	}

	eng.activate(1)
	if v, _ := q.Parameter(anim.ParamCurrentSlide); v != 3 {
		t.Errorf("Expected 3, got %v", v)
	}
	if _, ok := q.Parameter("unknown"); ok {
		t.Error("Expected unknown key to be missing")
	}
}

func TestPausedStart(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	req := anim.NewRequest([]anim.Keyframe{step("x", "A")}, anim.Options{PlayState: anim.PlayStatePaused}, nil)
	q.Enqueue(req)

	if sub := eng.call(0); sub.opts.PlayState != anim.PlayStateRunning {
		t.Errorf("Expected submission to run, got %q", sub.opts.PlayState)
	}
	if !q.IsPaused() {
		t.Error("Expected paused while activating")
	}

	eng.activate(0)
	if q.Phase() != PhasePaused {
		t.Errorf("Expected paused after activation, got %v", q.Phase())
	}
	if got := eng.controlLog(); !reflect.DeepEqual(got, []string{"0:pause"}) {
		t.Errorf("Expected pause on activation, got %v", got)
	}

	// The request itself is untouched
	head, _ := q.Head()
	if head.Options.PlayState != anim.PlayStatePaused {
		t.Errorf("Expected request options unchanged, got %q", head.Options.PlayState)
	}

	// The next request does not inherit the pause
	q.Enqueue(request(1, step("x", "B")))
	q.Continue()
	eng.complete(0)
	eng.activate(1)
	if q.Phase() != PhaseActive {
		t.Errorf("Expected B to play, got %v", q.Phase())
	}
}

func TestPreSeat(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(0, step("x", "A"), step("y", "B")))

	if eng.count() != 2 {
		t.Fatalf("Expected seat and main submissions, got %d", eng.count())
	}
	seat := eng.call(0)
	if seat.onActivated != nil || *seat.steps[0].Options.Duration != 0 {
		t.Errorf("Expected zero length seat, got %+v", seat)
	}
	if seat.steps[0].Target.Config["x"] != "A" {
		t.Errorf("Expected seat at the first step, got %v", seat.steps[0].Target)
	}
	if eng.rendering() {
		t.Error("Expected rendering off while seating")
	}

	eng.activate(1)
	if !eng.rendering() {
		t.Error("Expected rendering back on after activation")
	}
}

func TestPreSeatReverse(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	opts := anim.Options{Direction: anim.DirectionReverse, Position: anim.Pos(1)}
	q.Enqueue(anim.NewRequest([]anim.Keyframe{step("x", "A"), step("y", "B")}, opts, nil))

	if eng.count() != 3 {
		t.Fatalf("Expected seat, main and re-seat, got %d", eng.count())
	}
	if eng.last() != 1 {
		t.Errorf("Expected main submission in the middle, got %d", eng.last())
	}
	if reseat := eng.call(2); reseat.steps[0].Target.Config["x"] != "A" {
		t.Errorf("Expected re-seat at the first step, got %v", reseat.steps[0].Target)
	}
}

func TestReverseAndSeek(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	opts := anim.Options{Direction: anim.DirectionReverse}
	q.Enqueue(anim.NewRequest([]anim.Keyframe{step("x", "A")}, opts, nil))
	eng.activate(0)

	q.Seek(25)
	q.Pause()
	q.Continue() // reverse head resumes backwards
	q.Reverse()

	expected := []string{"0:seek 25%", "0:pause", "0:reverse", "0:play", "0:reverse", "0:play"}
	if got := eng.controlLog(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	if !q.IsPlaying() {
		t.Errorf("Expected playing, got %v", q.Phase())
	}
}

func TestMissingHandle(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Pause()
	q.Continue()
	q.Reverse()
	q.Seek(50)
	q.SeekStart(50)
	q.Abort()

	if eng.count() != 0 || len(eng.controlLog()) != 0 {
		t.Errorf("Expected no engine calls, got %d submissions and %v", eng.count(), eng.controlLog())
	}
	if q.Phase() != PhaseIdle {
		t.Errorf("Expected idle, got %v", q.Phase())
	}
}

func TestSeekStart(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{SpeedUpDuration: 300 * time.Millisecond})

	q.Enqueue(request(4, step("x", "A"), step("y", "B")))
	eng.activate(1)

	q.SeekStart(40)
	if eng.rendering() {
		t.Error("Expected rendering off while replaying")
	}
	if !q.IsPaused() {
		t.Error("Expected paused while the replay activates")
	}

	// cancel, seat at position 1, sped up replay
	if eng.count() != 4 {
		t.Fatalf("Expected seat and replay submissions, got %d", eng.count())
	}
	seat := eng.call(2)
	if seat.opts.Position == nil || *seat.opts.Position != 1 {
		t.Errorf("Expected seat at position 1, got %+v", seat.opts)
	}
	replay := eng.call(3)
	for i, kf := range replay.steps {
		if *kf.Options.Duration != 300*time.Millisecond {
			t.Errorf("Step %d: expected sped up replay, got %v", i, *kf.Options.Duration)
		}
	}

	eng.activate(3)
	if q.Phase() != PhasePaused || !eng.rendering() {
		t.Errorf("Expected paused with rendering on, got %v", q.Phase())
	}
	q.Seek(60)
	q.Continue()

	expected := []string{"1:cancel", "3:pause", "3:seek 40%", "3:seek 60%", "3:play"}
	if got := eng.controlLog(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	if v, _ := q.Parameter(anim.ParamCurrentSlide); v != 4 {
		t.Errorf("Expected tag kept across the replay, got %v", v)
	}

	// The replay's completion advances past the head
	eng.complete(3)
	if q.Phase() != PhaseIdle || !q.IsEmpty() {
		t.Errorf("Expected idle empty queue, got %v with %d", q.Phase(), q.Len())
	}
}

func TestSeekStartAfterFinish(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(1, step("x", "A")))
	eng.activate(0)
	eng.complete(0)

	q.SeekStart(10)
	eng.activate(1)
	if q.Phase() != PhasePaused {
		t.Fatalf("Expected finished animation to be scrubbable, got %v", q.Phase())
	}

	// A new request takes over from the held replay
	q.Enqueue(request(2, step("x", "B")))
	if eng.count() != 3 {
		t.Fatalf("Expected B submitted, got %d", eng.count())
	}
	log := eng.controlLog()
	if log[len(log)-1] != "1:stop" {
		t.Errorf("Expected the replay stopped, got %v", log)
	}
}

func TestSeekStartReleasedBeforeActivation(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(1, step("x", "A")))
	eng.activate(0)

	q.SeekStart(40)
	q.Continue()
	if q.Phase() != PhaseActivating || q.IsPaused() {
		t.Fatalf("Expected an unpaused activation, got %v paused=%v", q.Phase(), q.IsPaused())
	}

	eng.activate(1)
	if q.Phase() != PhaseActive || q.IsPaused() {
		t.Errorf("Expected the replay to play on, got %v", q.Phase())
	}
	expected := []string{"0:cancel", "1:seek 40%", "1:play"}
	if got := eng.controlLog(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestSeekStartReleasedBeforeActivationReverse(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	opts := anim.Options{Direction: anim.DirectionReverse}
	q.Enqueue(anim.NewRequest([]anim.Keyframe{step("x", "A")}, opts, nil))
	eng.activate(0)

	q.SeekStart(70)
	q.Continue()
	eng.activate(1)

	expected := []string{"0:cancel", "1:seek 70%", "1:reverse", "1:play"}
	if got := eng.controlLog(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	if !q.IsPlaying() {
		t.Errorf("Expected playing backwards, got %v", q.Phase())
	}
}

func TestReset(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(0, step("x", "A")))
	q.Enqueue(request(1, step("x", "B")))
	eng.activate(0)
	q.Pause()

	q.Reset()
	if q.Phase() != PhaseIdle || !q.IsEmpty() || q.IsPaused() {
		t.Errorf("Expected an idle empty queue, got %v with %d", q.Phase(), q.Len())
	}
	if got := eng.controlLog(); got[len(got)-1] != "0:stop" {
		t.Errorf("Expected the paused handle stopped, got %v", got)
	}
	if !eng.rendering() {
		t.Error("Expected rendering on after reset")
	}
	if _, _, ok := q.LastAnimation(); ok {
		t.Error("Expected no animation left to replay")
	}

	// Controls without a handle are no-ops
	n := len(eng.controlLog())
	q.Continue()
	q.SeekStart(10)
	if len(eng.controlLog()) != n || eng.count() != 1 {
		t.Errorf("Expected nothing sent after reset, got %v", eng.controlLog())
	}

	// Playback starts fresh
	q.Enqueue(request(2, step("x", "C")))
	if eng.count() != 2 || q.Phase() != PhaseActivating {
		t.Errorf("Expected C submitted, got %d calls in %v", eng.count(), q.Phase())
	}
}

func TestResetSupersedesActivation(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.Enqueue(request(0, step("x", "A")))
	q.Reset()

	// The engine comes back after the reset
	eng.activate(0)
	if q.Phase() != PhaseIdle {
		t.Errorf("Expected the late activation ignored, got %v", q.Phase())
	}
	if got := eng.controlLog(); !reflect.DeepEqual(got, []string{"0:stop"}) {
		t.Errorf("Expected the late animation stopped, got %v", got)
	}
}

func TestClear(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	a := request(0, step("x", "A"))
	q.Enqueue(a)
	q.Enqueue(request(1, step("x", "B")))
	q.Enqueue(request(2, step("x", "C")))
	eng.activate(0)

	q.Clear()
	if q.Len() != 1 {
		t.Fatalf("Expected the in-flight head kept, got %d", q.Len())
	}
	if head, _ := q.Head(); head.ID() != a.ID() {
		t.Errorf("Expected A at head, got %d", head.ID())
	}

	eng.complete(0)
	if q.Phase() != PhaseIdle || !q.IsEmpty() {
		t.Errorf("Expected idle after the head finished, got %v", q.Phase())
	}
}

func TestInsertAfterHead(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	q.InsertAfterHead([]anim.Keyframe{step("x", "X")}, anim.Options{})
	if !q.IsEmpty() {
		t.Fatal("Expected insert on an empty queue to be ignored")
	}

	a := request(0, step("x", "A"))
	b := request(1, step("x", "B"))
	q.Enqueue(a)
	q.Enqueue(b)
	q.InsertAfterHead([]anim.Keyframe{step("x", "X")}, anim.Options{})

	if eng.count() != 1 {
		t.Errorf("Expected playback untouched, got %d submissions", eng.count())
	}

	var got []any
	for {
		req, ok := q.Dequeue()
		if !ok {
			break
		}
		got = append(got, req.Steps[0].Target.Config["x"])
	}
	if !reflect.DeepEqual(got, []any{"A", "X", "B"}) {
		t.Errorf("Expected A X B, got %v", got)
	}
}

func TestActivationFailureHalt(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{})

	a := request(0, step("x", "A"))
	q.Enqueue(a)
	q.Enqueue(request(1, step("x", "B")))
	eng.fail(0, errors.New("engine rejected"))

	if q.Phase() != PhaseIdle {
		t.Errorf("Expected idle, got %v", q.Phase())
	}
	if head, _ := q.Head(); head.ID() != a.ID() || q.Len() != 2 {
		t.Errorf("Expected A left at head, got %d with %d requests", head.ID(), q.Len())
	}
	if eng.count() != 1 {
		t.Errorf("Expected no retry, got %d submissions", eng.count())
	}

	// Clear on an idle queue drops everything
	q.Clear()
	if !q.IsEmpty() {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

func TestActivationFailureAdvance(t *testing.T) {
	q, eng := newTestQueue(t, config.QueueParams{OnActivationError: config.OnActivationAdvance})

	b := request(1, step("x", "B"))
	q.Enqueue(request(0, step("x", "A")))
	q.Enqueue(b)
	eng.fail(0, errors.New("engine rejected"))

	if head, _ := q.Head(); head.ID() != b.ID() {
		t.Errorf("Expected B at head, got %d", head.ID())
	}
	if eng.count() != 2 {
		t.Errorf("Expected B submitted, got %d", eng.count())
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	eng := newFakeEngine()
	q := New(eng, config.QueueParams{}, nil)
	q.Enqueue(request(0, step("x", "A")))
	eng.activate(0)

	q.Close()
	eng.complete(0)
	if q.Len() != 1 {
		t.Errorf("Expected no advance after Close, got %d", q.Len())
	}
}

func TestPhaseString(t *testing.T) {
	if PhasePaused.String() != "paused" || Phase(42).String() != "unknown" {
		t.Errorf("Unexpected phase names: %s %s", PhasePaused, Phase(42))
	}
}
