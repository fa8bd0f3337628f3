package engine

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/tanema/gween"
	"go.uber.org/zap"

	"github.com/ivlev/vizdeck/internal/anim"
	"github.com/ivlev/vizdeck/internal/renderer"
)

const (
	DefaultTick            = 16 * time.Millisecond
	DefaultAnimationLength = time.Second
)

// SimEngine is an in-process engine that plays animations on a clock.
// It resolves chart state by merging keyframe targets and draws nothing.
// Animations play one at a time in submission order.
type SimEngine struct {
	clk             clock.Clock
	log             *zap.SugaredLogger
	tick            time.Duration
	defaultDuration time.Duration

	mu          sync.Mutex
	config      map[string]any
	style       map[string]any
	data        map[string]any
	features    map[string]bool
	handlers    map[EventType]map[int]Handler
	nextHandler int
	pending     []*simAnimation
	current     *simAnimation
	outbox      []func()
	rejectNext  error
	submitted   int
}

// SimOption configures a SimEngine
type SimOption func(*SimEngine)

// WithClock sets the clock driving Run
func WithClock(c clock.Clock) SimOption {
	return func(e *SimEngine) { e.clk = c }
}

// WithLogger sets the engine logger
func WithLogger(l *zap.SugaredLogger) SimOption {
	return func(e *SimEngine) { e.log = l }
}

// WithTick sets the Run loop interval
func WithTick(d time.Duration) SimOption {
	return func(e *SimEngine) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithDefaultDuration sets the step length used when neither the step nor the request sets one
func WithDefaultDuration(d time.Duration) SimOption {
	return func(e *SimEngine) {
		if d >= 0 {
			e.defaultDuration = d
		}
	}
}

// NewSimEngine creates an engine with an empty chart
func NewSimEngine(opts ...SimOption) *SimEngine {
	e := &SimEngine{
		clk:             clock.New(),
		log:             zap.NewNop().Sugar(),
		tick:            DefaultTick,
		defaultDuration: DefaultAnimationLength,
		config:          map[string]any{},
		style:           map[string]any{},
		data:            map[string]any{},
		features:        map[string]bool{FeatureRendering: true},
		handlers:        map[EventType]map[int]Handler{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Animate queues an animation. It activates once every earlier animation
// finished or was discarded.
func (e *SimEngine) Animate(steps []anim.Keyframe, opts anim.Options, onActivated ActivationFunc) *Animation {
	a := &simAnimation{
		eng:         e,
		steps:       steps,
		opts:        opts.Clone(),
		future:      NewAnimation(),
		onActivated: onActivated,
	}

	e.mu.Lock()
	e.submitted++
	a.id = e.submitted
	e.pending = append(e.pending, a)
	e.mu.Unlock()

	e.log.Debugw("animation submitted", "id", a.id, "steps", len(steps), "direction", opts.Direction)
	return a.future
}

// Feature toggles a named engine feature
func (e *SimEngine) Feature(name string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.features[name] = enabled
}

// FeatureEnabled reports a feature's state
func (e *SimEngine) FeatureEnabled(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.features[name]
}

// On registers an event handler
func (e *SimEngine) On(t EventType, h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextHandler
	e.nextHandler++
	if e.handlers[t] == nil {
		e.handlers[t] = map[int]Handler{}
	}
	e.handlers[t][id] = h

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[t], id)
	}
}

// Config returns a copy of the resolved chart config
func (e *SimEngine) Config() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.config)
}

// ComputedStyle returns a copy of the resolved chart style
func (e *SimEngine) ComputedStyle() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.style)
}

// DataState returns a copy of the resolved data deltas, filter included
func (e *SimEngine) DataState() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.data)
}

// RejectNext makes the next animation to activate fail with err
func (e *SimEngine) RejectNext(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rejectNext = err
}

// Submitted returns how many animations were submitted so far
func (e *SimEngine) Submitted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitted
}

// Status is a point-in-time view of the engine
type Status struct {
	Running  bool
	Paused   bool
	Reverse  bool
	Progress float64
	Pending  int
}

// Status reports what the engine is doing
func (e *SimEngine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{Pending: len(e.pending)}
	if a := e.current; a != nil {
		st.Running = true
		st.Paused = a.paused
		st.Reverse = a.reverse
		st.Progress = a.rawProgress()
	}
	return st
}

// Idle reports whether nothing is playing or waiting
func (e *SimEngine) Idle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current == nil && len(e.pending) == 0
}

// Run advances the engine on every clock tick until ctx is done
func (e *SimEngine) Run(ctx context.Context) error {
	t := e.clk.Ticker(e.tick)
	defer t.Stop()

	last := e.clk.Now()
	e.log.Debugw("engine loop started", "tick", e.tick)
	for {
		select {
		case <-ctx.Done():
			e.log.Debugw("engine loop stopped")
			return nil
		case <-t.C:
			now := e.clk.Now()
			e.Step(now.Sub(last))
			last = now
		}
	}
}

// Step advances the engine by dt and delivers the resulting callbacks on the
// calling goroutine. An animation that becomes current is activated in one
// step and starts moving in the next.
func (e *SimEngine) Step(dt time.Duration) {
	e.mu.Lock()
	e.advance(dt)
	out := e.outbox
	e.outbox = nil
	e.mu.Unlock()

	for _, fn := range out {
		fn()
	}
}

func (e *SimEngine) advance(dt time.Duration) {
	a := e.current
	if a == nil {
		e.startNext()
		return
	}
	if a.paused {
		return
	}

	a.move(dt)
	e.applyState(a)
	e.emitUpdate(a)

	if a.finished() {
		if !a.reverse {
			e.applyAll(a)
		}
		e.current = nil
		e.emit(Event{Type: EventAnimationComplete, Control: a})
		future := a.future
		e.outbox = append(e.outbox, func() { future.Finish(nil) })
		e.log.Debugw("animation complete", "id", a.id)
		e.startNext()
	}
}

func (e *SimEngine) startNext() {
	if len(e.pending) == 0 {
		return
	}
	a := e.pending[0]
	e.pending = e.pending[1:]

	if err := e.rejectNext; err != nil {
		e.rejectNext = nil
		e.log.Warnw("animation activation rejected", "id", a.id, "error", err)
		cb, future := a.onActivated, a.future
		e.outbox = append(e.outbox, func() {
			if cb != nil {
				cb(nil, err)
			}
			future.Finish(err)
		})
		return
	}

	a.base = chartState{
		config: maps.Clone(e.config),
		style:  maps.Clone(e.style),
		data:   maps.Clone(e.data),
	}
	a.timeline = renderer.NewTimeline(a.steps, a.opts, e.defaultDuration)
	a.total = a.timeline.Total()
	if a.total > 0 {
		a.tween = gween.New(0, 1, float32(a.total.Seconds()), renderer.Easing(a.opts.Easing))
	}
	a.reverse = a.opts.IsReverse()
	a.paused = a.opts.PlayState == anim.PlayStatePaused
	switch {
	case a.opts.Position != nil:
		a.elapsed = time.Duration(clamp01(*a.opts.Position) * float64(a.total))
	case a.reverse:
		a.elapsed = a.total
	}
	a.activated = true
	e.current = a
	e.applyState(a)

	cb, future := a.onActivated, a.future
	e.outbox = append(e.outbox, func() {
		if cb != nil {
			cb(a, nil)
		}
		future.Activate(a)
	})
	e.emit(Event{Type: EventAnimationBegin, Control: a})
	e.log.Debugw("animation activated", "id", a.id, "total", a.total, "reverse", a.reverse, "paused", a.paused)
}

// discard removes a from the engine without a completion event
func (e *SimEngine) discard(a *simAnimation, err error, revert bool) {
	if e.current == a {
		e.current = nil
		if revert {
			e.config = maps.Clone(a.base.config)
			e.style = maps.Clone(a.base.style)
			e.data = maps.Clone(a.base.data)
		}
	} else {
		for i, p := range e.pending {
			if p == a {
				e.pending = append(e.pending[:i:i], e.pending[i+1:]...)
				break
			}
		}
	}
	a.discarded = true
	a.future.Finish(err)
	e.log.Debugw("animation discarded", "id", a.id, "reason", err)
}

// applyState rebuilds the chart from the animation's base plus every step
// that has fully played at the current offset
func (e *SimEngine) applyState(a *simAnimation) {
	e.config = maps.Clone(a.base.config)
	e.style = maps.Clone(a.base.style)
	e.data = maps.Clone(a.base.data)
	n := a.timeline.Completed(a.elapsed)
	for i := 0; i < n && i < len(a.steps); i++ {
		e.applyTarget(a.steps[i].Target)
	}
}

func (e *SimEngine) applyAll(a *simAnimation) {
	for _, kf := range a.steps {
		e.applyTarget(kf.Target)
	}
}

func (e *SimEngine) applyTarget(t anim.Target) {
	maps.Copy(e.config, t.Config)
	maps.Copy(e.style, t.Style)
	maps.Copy(e.data, t.Data)
	if t.Filter != nil {
		if *t.Filter == "" {
			delete(e.data, "filter")
		} else {
			e.data["filter"] = *t.Filter
		}
	}
}

func (e *SimEngine) emitUpdate(a *simAnimation) {
	if !e.features[FeatureRendering] {
		return
	}
	e.emit(Event{Type: EventUpdate, Control: a, Progress: a.easedProgress()})
}

// emit queues handlers registered at emit time
func (e *SimEngine) emit(ev Event) {
	hs := e.handlers[ev.Type]
	if len(hs) == 0 {
		return
	}
	ids := make([]int, 0, len(hs))
	for id := range hs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		h := hs[id]
		e.outbox = append(e.outbox, func() { h(ev) })
	}
}

type chartState struct {
	config map[string]any
	style  map[string]any
	data   map[string]any
}

// simAnimation is both the engine's record of an animation and its Control
type simAnimation struct {
	eng         *SimEngine
	id          int
	steps       []anim.Keyframe
	opts        anim.Options
	future      *Animation
	onActivated ActivationFunc

	base      chartState
	timeline  renderer.Timeline
	tween     *gween.Tween
	total     time.Duration
	elapsed   time.Duration
	reverse   bool
	paused    bool
	activated bool
	discarded bool
}

func (a *simAnimation) move(dt time.Duration) {
	if a.reverse {
		a.elapsed -= dt
	} else {
		a.elapsed += dt
	}
	if a.elapsed < 0 {
		a.elapsed = 0
	}
	if a.elapsed > a.total {
		a.elapsed = a.total
	}
}

func (a *simAnimation) finished() bool {
	if a.reverse {
		return a.elapsed <= 0
	}
	return a.elapsed >= a.total
}

func (a *simAnimation) rawProgress() float64 {
	if a.total <= 0 {
		if a.reverse {
			return 0
		}
		return 1
	}
	return float64(a.elapsed) / float64(a.total)
}

func (a *simAnimation) easedProgress() float64 {
	if a.tween == nil {
		return a.rawProgress()
	}
	v, _ := a.tween.Set(float32(a.elapsed.Seconds()))
	return clamp01(float64(v))
}

// Pause freezes the animation
func (a *simAnimation) Pause() {
	a.eng.mu.Lock()
	defer a.eng.mu.Unlock()
	a.paused = true
}

// Play resumes the animation
func (a *simAnimation) Play() {
	a.eng.mu.Lock()
	defer a.eng.mu.Unlock()
	a.paused = false
}

// Stop discards the animation where it is, without a completion event
func (a *simAnimation) Stop() {
	a.eng.mu.Lock()
	defer a.eng.mu.Unlock()
	if a.discarded || a.future.isDone() {
		return
	}
	a.eng.discard(a, ErrStopped, false)
}

// Cancel discards the animation and reverts the chart to where it started
func (a *simAnimation) Cancel() {
	a.eng.mu.Lock()
	defer a.eng.mu.Unlock()
	if a.discarded || a.future.isDone() {
		return
	}
	a.eng.discard(a, ErrCanceled, a.activated)
}

// Seek jumps to a relative position
func (a *simAnimation) Seek(position string) {
	p, err := ParsePosition(position)
	if err != nil {
		a.eng.log.Warnw("seek ignored", "id", a.id, "error", err)
		return
	}

	a.eng.mu.Lock()
	defer a.eng.mu.Unlock()
	if a.discarded {
		return
	}
	a.elapsed = time.Duration(p * float64(a.total))
	if a.eng.current == a {
		a.eng.applyState(a)
	}
}

// Reverse makes the animation play backwards from where it is.
// Calling it again keeps the direction.
func (a *simAnimation) Reverse() {
	a.eng.mu.Lock()
	defer a.eng.mu.Unlock()
	a.reverse = true
}

func (f *Animation) isDone() bool {
	select {
	case <-f.completed:
		return true
	default:
		return false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
