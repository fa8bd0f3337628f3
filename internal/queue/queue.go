package queue

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ivlev/vizdeck/internal/anim"
	"github.com/ivlev/vizdeck/internal/config"
	"github.com/ivlev/vizdeck/internal/engine"
)

// Phase is the playback state of the queue
type Phase int

const (
	PhaseIdle       Phase = iota // Nothing submitted or the last animation finished
	PhaseActivating              // Submitted, waiting for the engine
	PhaseActive                  // Playing
	PhasePaused                  // Paused by the user or held by a scrub
	PhaseCompleting              // Advancing after a completion
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActivating:
		return "activating"
	case PhaseActive:
		return "active"
	case PhasePaused:
		return "paused"
	case PhaseCompleting:
		return "completing"
	default:
		return "unknown"
	}
}

type submission struct {
	steps []anim.Keyframe
	opts  anim.Options
}

// Queue plays animation requests on an engine one after another. Only the
// queue talks to the engine's animate and control primitives.
type Queue struct {
	eng    engine.Engine
	log    *zap.SugaredLogger
	params config.QueueParams
	off    func()

	mu              sync.Mutex
	items           []anim.Request
	phase           Phase
	pauseOnActivate bool
	handle          engine.Control
	lastAnimation   *submission
	lastTag         anim.Tag
	generation      uint64
}

// New creates a queue bound to eng. Close releases the engine subscription.
func New(eng engine.Engine, params config.QueueParams, log *zap.SugaredLogger) *Queue {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if params.SpeedUpDuration == 0 {
		params.SpeedUpDuration = anim.DefaultSpeedUpDuration
	}
	if params.OnActivationError == "" {
		params.OnActivationError = config.OnActivationHalt
	}

	q := &Queue{
		eng:    eng,
		log:    log,
		params: params,
	}
	q.off = eng.On(engine.EventAnimationComplete, q.onComplete)
	return q
}

// Close unsubscribes from engine events
func (q *Queue) Close() {
	if q.off != nil {
		q.off()
	}
}

// Enqueue appends req and starts playback when nothing is in flight.
// Enqueuing the request already at the tail is a no-op.
func (q *Queue) Enqueue(req anim.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueue(req)
}

func (q *Queue) enqueue(req anim.Request) {
	if n := len(q.items); n > 0 && q.items[n-1].Same(req) {
		q.log.Debugw("duplicate request dropped", "id", req.ID())
		return
	}

	wasEmpty := len(q.items) == 0
	q.items = append(q.items, req)
	q.log.Debugw("request enqueued", "id", req.ID(), "len", len(q.items), "phase", q.phase)

	if q.phase == PhaseIdle || wasEmpty {
		q.play()
	}
}

// Dequeue removes and returns the head request
func (q *Queue) Dequeue() (anim.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dequeue()
}

func (q *Queue) dequeue() (anim.Request, bool) {
	if len(q.items) == 0 {
		return anim.Request{}, false
	}
	head := q.items[0]
	q.items[0] = anim.Request{}
	q.items = q.items[1:]
	return head, true
}

// InsertAfterHead splices an untagged request right behind the head
// without touching playback
func (q *Queue) InsertAfterHead(steps []anim.Keyframe, opts anim.Options) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return
	}
	req := anim.NewRequest(steps, opts, nil)
	q.items = append(q.items, anim.Request{})
	copy(q.items[2:], q.items[1:])
	q.items[1] = req
}

// Clear drops queued requests. A head that is in flight stays.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) > 0 && q.inFlight() {
		q.items = q.items[:1]
		return
	}
	q.items = nil
}

func (q *Queue) inFlight() bool {
	switch q.phase {
	case PhaseActivating, PhaseActive, PhasePaused:
		return true
	default:
		return false
	}
}

// play submits the head. Caller holds q.mu.
func (q *Queue) play() {
	if len(q.items) == 0 {
		q.phase = PhaseIdle
		return
	}
	if q.handle != nil && (q.phase == PhaseActive || q.phase == PhasePaused) {
		// A live animation that is not the head, e.g. a scrub replay
		q.handle.Stop()
	}

	head := q.items[0]
	opts := head.Options.Clone()
	q.pauseOnActivate = false
	if opts.PlayState == anim.PlayStatePaused {
		q.pauseOnActivate = true
		opts.PlayState = anim.PlayStateRunning
	}

	steps := head.Steps
	if len(q.items) > 1 {
		steps = anim.SpeedUp(steps, q.params.SpeedUpDuration)
	}

	seated := false
	if len(steps) > 1 {
		q.eng.Feature(engine.FeatureRendering, false)
		q.seat(steps[0].Target, anim.Options{})
		seated = true
	}

	q.submit(steps, opts, head.Tag, nil)
	q.lastAnimation = &submission{steps: steps, opts: opts}

	if !q.pauseOnActivate && opts.IsReverse() && seated {
		q.seat(steps[0].Target, anim.Options{})
	}
}

// seat jumps the chart to target without animating
func (q *Queue) seat(target anim.Target, opts anim.Options) {
	q.eng.Animate(anim.SpeedUpTarget(target, 0), opts, nil)
}

// submit hands steps to the engine. onActive runs under q.mu once the engine
// activates this submission; nil applies the default pause-on-activate handling.
func (q *Queue) submit(steps []anim.Keyframe, opts anim.Options, tag anim.Tag, onActive func(engine.Control)) {
	q.generation++
	gen := q.generation
	q.phase = PhaseActivating

	q.eng.Animate(steps, opts, func(ctrl engine.Control, err error) {
		q.activated(gen, tag, ctrl, err, onActive)
	})
}

func (q *Queue) activated(gen uint64, tag anim.Tag, ctrl engine.Control, err error, onActive func(engine.Control)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.generation || q.phase != PhaseActivating {
		if ctrl != nil {
			ctrl.Stop()
		}
		q.log.Debugw("stale activation dropped", "generation", gen, "current", q.generation)
		return
	}

	q.eng.Feature(engine.FeatureRendering, true)

	if err != nil {
		q.pauseOnActivate = false
		q.log.Errorw("animation activation failed", "error", err, "policy", q.params.OnActivationError)
		if q.params.OnActivationError == config.OnActivationAdvance {
			q.next()
			return
		}
		q.phase = PhaseIdle
		return
	}

	q.handle = ctrl
	q.lastTag = tag
	q.phase = PhaseActive

	switch {
	case onActive != nil:
		onActive(ctrl)
	case q.pauseOnActivate:
		ctrl.Pause()
		q.phase = PhasePaused
	}
	q.pauseOnActivate = false
}

func (q *Queue) onComplete(ev engine.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handle == nil || ev.Control != q.handle {
		return
	}
	if q.phase != PhaseActive && q.phase != PhasePaused {
		return
	}
	q.next()
}

// next advances past the head. Caller holds q.mu.
func (q *Queue) next() {
	q.phase = PhaseCompleting
	q.dequeue()
	if len(q.items) == 0 {
		q.phase = PhaseIdle
		return
	}
	q.play()
}

// Pause pauses the current animation
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handle == nil {
		q.log.Debugw("pause ignored, no animation")
		return
	}
	switch q.phase {
	case PhaseActive:
		q.phase = PhasePaused
	case PhaseActivating:
		q.pauseOnActivate = true
		return
	}
	q.handle.Pause()
}

// Continue resumes playback. A reverse head resumes backwards.
func (q *Queue) Continue() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handle == nil {
		q.log.Debugw("continue ignored, no animation")
		return
	}
	if q.phase == PhaseActivating {
		q.pauseOnActivate = false
		return
	}
	if q.phase == PhasePaused {
		q.phase = PhaseActive
	}

	if q.headOptions().IsReverse() {
		q.reverse()
		return
	}
	q.handle.Play()
}

func (q *Queue) headOptions() anim.Options {
	if len(q.items) > 0 {
		return q.items[0].Options
	}
	if q.lastAnimation != nil {
		return q.lastAnimation.opts
	}
	return anim.Options{}
}

// Reverse plays the current animation backwards
func (q *Queue) Reverse() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handle == nil {
		q.log.Debugw("reverse ignored, no animation")
		return
	}
	if q.phase == PhasePaused {
		q.phase = PhaseActive
	}
	q.reverse()
}

func (q *Queue) reverse() {
	q.handle.Reverse()
	q.handle.Play()
}

// Seek moves the current animation to percent (0..100)
func (q *Queue) Seek(percent float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handle == nil {
		q.log.Debugw("seek ignored, no animation", "percent", percent)
		return
	}
	q.handle.Seek(engine.FormatPosition(percent))
}

// SeekStart replays the last animation paused at percent, the first step of a scrub
func (q *Queue) SeekStart(percent float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.phase == PhaseActive {
		q.phase = PhaseCompleting
	}
	if q.handle == nil || q.lastAnimation == nil {
		q.log.Debugw("seek start ignored, no animation", "percent", percent)
		if q.phase == PhaseCompleting {
			q.phase = PhaseIdle
		}
		return
	}

	q.handle.Cancel()
	q.eng.Feature(engine.FeatureRendering, false)

	last := q.lastAnimation
	if len(last.steps) > 1 {
		q.seat(last.steps[0].Target, anim.Options{Position: anim.Pos(1)})
	}

	q.pauseOnActivate = true
	position := engine.FormatPosition(percent)
	q.submit(anim.SpeedUp(last.steps, q.params.SpeedUpDuration), last.opts, q.lastTag, func(ctrl engine.Control) {
		if q.pauseOnActivate {
			ctrl.Pause()
			q.phase = PhasePaused
			ctrl.Seek(position)
			return
		}
		// Released before the replay came up
		ctrl.Seek(position)
		if q.headOptions().IsReverse() {
			q.reverse()
			return
		}
		ctrl.Play()
	})
}

// ManualUpdate replaces the head's animation and replays it. On an empty
// queue it behaves like Enqueue.
func (q *Queue) ManualUpdate(req anim.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handle != nil {
		q.handle.Play()
		q.handle.Stop()
	}

	if len(q.items) == 0 {
		q.phase = PhaseIdle
		q.enqueue(req)
		return
	}

	q.items[0].Steps = req.Steps
	q.items[0].Options = req.Options
	q.play()
}

// Abort stops the current animation and moves on to the next request
func (q *Queue) Abort() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handle == nil {
		q.log.Debugw("abort ignored, no animation")
		return
	}

	q.handle.Stop()
	q.handle = nil
	q.pauseOnActivate = false
	// Any activation still on its way is superseded
	q.generation++
	q.eng.Feature(engine.FeatureRendering, true)

	if !q.inFlight() {
		q.phase = PhaseIdle
		return
	}
	q.next()
}

// Reset drops every request and stops the animation in flight, leaving the
// engine free for other work
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.handle != nil {
		q.handle.Stop()
		q.handle = nil
	}
	q.items = nil
	q.pauseOnActivate = false
	q.lastAnimation = nil
	q.generation++
	q.phase = PhaseIdle
	q.eng.Feature(engine.FeatureRendering, true)
}

// Parameter returns a tag value captured at the latest activation
func (q *Queue) Parameter(key string) (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	v, ok := q.lastTag[key]
	return v, ok
}

func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

func (q *Queue) IsPlaying() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.phase == PhaseActive
}

func (q *Queue) IsPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.phase == PhasePaused || (q.phase == PhaseActivating && q.pauseOnActivate)
}

// HasNext reports whether a request waits behind the head
func (q *Queue) HasNext() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) > 1
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Phase() Phase {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.phase
}

func (q *Queue) Head() (anim.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return anim.Request{}, false
	}
	return q.items[0], true
}

func (q *Queue) Tail() (anim.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return anim.Request{}, false
	}
	return q.items[len(q.items)-1], true
}

// LastAnimation returns the steps and options last submitted for the head
func (q *Queue) LastAnimation() ([]anim.Keyframe, anim.Options, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lastAnimation == nil {
		return nil, anim.Options{}, false
	}
	return q.lastAnimation.steps, q.lastAnimation.opts, true
}
