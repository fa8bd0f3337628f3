package director

import (
	"context"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ivlev/vizdeck/internal/anim"
	"github.com/ivlev/vizdeck/internal/config"
	"github.com/ivlev/vizdeck/internal/engine"
	"github.com/ivlev/vizdeck/internal/queue"
)

var ErrNoSlides = errors.New("story has no slides")

// State is a snapshot of the presentation
type State struct {
	CurrentSlide int
	Length       int
	Direction    anim.Direction
	SeekPosition *float64 // Set while a scrub is held
	Progress     float64  // 0..1 of the animation in flight
	Playing      bool
	Paused       bool
	ScrubEnabled bool
	Slide        []anim.Keyframe
}

// Director drives a slide presentation on top of an animation queue
type Director struct {
	eng    engine.Engine
	params config.QueueParams
	log    *zap.SugaredLogger
	offs   []func()

	mu            sync.Mutex
	q             *queue.Queue
	slides        [][]anim.Keyframe
	current       int
	direction     anim.Direction
	seekPosition  *float64
	progress      float64
	lastAnimation []anim.Keyframe

	lmu          sync.Mutex
	listeners    map[int]func(State)
	nextListener int
}

// New creates a director for eng. Slides are loaded with SetStory.
func New(eng engine.Engine, params config.QueueParams, log *zap.SugaredLogger) *Director {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	d := &Director{
		eng:       eng,
		params:    params,
		log:       log,
		direction: anim.DirectionNormal,
		listeners: map[int]func(State){},
	}
	d.offs = append(d.offs,
		eng.On(engine.EventUpdate, d.onProgress),
		eng.On(engine.EventAnimationComplete, func(engine.Event) { d.notify(d.State()) }),
	)
	return d
}

// Close detaches the director and its queue from the engine
func (d *Director) Close() {
	for _, off := range d.offs {
		off()
	}
	d.offs = nil

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.q != nil {
		d.q.Close()
	}
}

// SetStory converts the story's slides on the engine and shows slide start
func (d *Director) SetStory(ctx context.Context, story *Story, start int) error {
	if story == nil || len(story.Slides) == 0 {
		return ErrNoSlides
	}

	normalized := story.Normalize()
	start = clampIndex(start, len(normalized.Slides))

	d.mu.Lock()
	if d.q != nil {
		d.q.Reset()
		d.q.Close()
		d.q = nil
	}
	d.mu.Unlock()

	// The engine has to keep dispatching while phases play, so no lock here
	slides, err := ConvertSlides(ctx, d.eng, normalized, start)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.q = queue.New(d.eng, d.params, d.log)
	d.slides = slides
	d.current = start
	d.direction = anim.DirectionNormal
	d.seekPosition = nil
	d.progress = 0
	d.lastAnimation = slides[start]
	d.mu.Unlock()

	d.log.Infow("story loaded", "slides", len(slides), "start", start)

	d.SetSlide(start)
	d.notify(d.State())
	return nil
}

// SetSlide navigates to slide i
func (d *Director) SetSlide(i int) {
	d.mu.Lock()

	n := len(d.slides)
	if n == 0 || d.q == nil {
		d.mu.Unlock()
		return
	}
	if d.seekPosition != nil &&
		((i <= 0 && d.current == 0) || (i >= n && d.current == n-1) || i == d.current) {
		d.mu.Unlock()
		d.log.Debugw("navigation dropped while scrubbing", "slide", i, "current", d.current)
		return
	}

	plan, ok := PlanTransition(d.slides, d.current, i)
	if !ok {
		d.mu.Unlock()
		return
	}

	before := d.state()
	from := d.current
	d.current = plan.Target
	d.direction = plan.Direction
	d.lastAnimation = plan.LastAnimation
	d.q.Enqueue(plan.Request())
	after := d.state()
	d.mu.Unlock()

	d.log.Debugw("slide requested", "from", from, "to", plan.Target, "direction", plan.Direction, "steps", len(plan.Steps))
	d.notify(before)
	d.notify(after)
}

func (d *Director) Next() {
	d.SetSlide(d.CurrentSlide() + 1)
}

func (d *Director) Previous() {
	d.SetSlide(d.CurrentSlide() - 1)
}

func (d *Director) ToStart() {
	d.SetSlide(0)
}

func (d *Director) ToEnd() {
	d.SetSlide(d.Length() - 1)
}

// Seek moves the animation in flight to percent (0..100)
func (d *Director) Seek(percent float64) {
	d.control(func(q *queue.Queue) { q.Seek(percent) })
}

func (d *Director) Pause() {
	d.control((*queue.Queue).Pause)
}

func (d *Director) Resume() {
	d.control((*queue.Queue).Continue)
}

func (d *Director) Reverse() {
	d.control((*queue.Queue).Reverse)
}

// Abort drops the animation in flight and moves on
func (d *Director) Abort() {
	d.control((*queue.Queue).Abort)
}

func (d *Director) control(fn func(*queue.Queue)) {
	d.mu.Lock()
	if d.q == nil {
		d.mu.Unlock()
		return
	}
	fn(d.q)
	st := d.state()
	d.mu.Unlock()

	d.notify(st)
}

// BeginScrub starts dragging the position slider: the last animation is
// replayed paused at percent and queued navigation is dropped
func (d *Director) BeginScrub(percent float64) {
	d.mu.Lock()
	if d.q == nil {
		d.mu.Unlock()
		return
	}
	if v, ok := d.q.Parameter(anim.ParamCurrentSlide); ok {
		if idx, ok := v.(int); ok && idx >= 0 && idx < len(d.slides) {
			d.current = idx
		}
	}
	d.q.Clear()
	d.q.SeekStart(percent)
	d.seekPosition = anim.Pos(percent)
	st := d.state()
	d.mu.Unlock()

	d.notify(st)
}

// Scrub follows the slider while it is dragged
func (d *Director) Scrub(percent float64) {
	d.mu.Lock()
	if d.q == nil {
		d.mu.Unlock()
		return
	}
	d.q.Seek(percent)
	if d.seekPosition != nil {
		d.seekPosition = anim.Pos(percent)
	}
	st := d.state()
	d.mu.Unlock()

	d.notify(st)
}

// EndScrub releases the slider and lets the animation play on
func (d *Director) EndScrub() {
	d.mu.Lock()
	if d.q == nil {
		d.mu.Unlock()
		return
	}
	d.q.Continue()
	d.seekPosition = nil
	st := d.state()
	d.mu.Unlock()

	d.notify(st)
}

// Settled reports whether nothing is queued or playing
func (d *Director) Settled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.q == nil {
		return true
	}
	return d.q.IsEmpty() && d.q.Phase() == queue.PhaseIdle
}

func (d *Director) CurrentSlide() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *Director) Length() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.slides)
}

// LastAnimation returns the keyframes of the slide last navigated to
func (d *Director) LastAnimation() []anim.Keyframe {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastAnimation
}

func (d *Director) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state()
}

func (d *Director) state() State {
	st := State{
		CurrentSlide: d.current,
		Length:       len(d.slides),
		Direction:    d.direction,
		Progress:     d.progress,
	}
	if d.seekPosition != nil {
		st.SeekPosition = anim.Pos(*d.seekPosition)
	}
	if d.current < len(d.slides) {
		st.Slide = d.slides[d.current]
	}
	if d.q != nil {
		st.Playing = d.q.IsPlaying()
		st.Paused = d.q.IsPaused()
	}
	st.ScrubEnabled = st.Length > 0 && !(d.direction == anim.DirectionNormal && d.current == 0)
	return st
}

func (d *Director) onProgress(ev engine.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.q != nil && d.q.IsPlaying() {
		d.progress = ev.Progress
	}
}

// OnUpdate registers fn for state changes. Listeners run outside the
// director's locks, on the goroutine that caused the change.
func (d *Director) OnUpdate(fn func(State)) (off func()) {
	d.lmu.Lock()
	defer d.lmu.Unlock()

	id := d.nextListener
	d.nextListener++
	d.listeners[id] = fn

	return func() {
		d.lmu.Lock()
		defer d.lmu.Unlock()
		delete(d.listeners, id)
	}
}

func (d *Director) notify(st State) {
	d.lmu.Lock()
	ids := make([]int, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, d.listeners[id])
	}
	d.lmu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
