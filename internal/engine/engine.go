package engine

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/ivlev/vizdeck/internal/anim"
)

// FeatureRendering toggles the engine's drawing pass. Turned off while the
// chart is pre-seated so intermediate states are not shown.
const FeatureRendering = "rendering"

var (
	ErrStopped  = errors.New("animation stopped")
	ErrCanceled = errors.New("animation canceled")
)

// EventType names an engine lifecycle event
type EventType string

const (
	EventAnimationBegin    EventType = "animation-begin"
	EventAnimationComplete EventType = "animation-complete"
	EventUpdate            EventType = "update"
)

// Event is delivered to handlers registered with Engine.On
type Event struct {
	Type     EventType
	Control  Control // Animation the event belongs to
	Progress float64 // 0..1, set for EventUpdate
}

// Handler receives engine events
type Handler func(Event)

// ActivationFunc is called once when a submitted animation starts rendering,
// or fails to. Exactly one of ctrl and err is set.
type ActivationFunc func(ctrl Control, err error)

// Control is the handle of one activated animation
type Control interface {
	Pause()
	Play()
	Stop()
	Cancel()
	// Seek moves to a relative position given as a percentage string, e.g. "40%"
	Seek(position string)
	// Reverse switches playback to the backward direction
	Reverse()
}

// Engine is the rendering engine consumed by the queue and the director.
//
// Callbacks (activation functions and event handlers) run on the engine's own
// dispatch goroutine, never synchronously inside a call made into the engine.
// For one animation the activation callback runs before any of its events.
type Engine interface {
	Animate(steps []anim.Keyframe, opts anim.Options, onActivated ActivationFunc) *Animation
	Feature(name string, enabled bool)
	On(t EventType, h Handler) (off func())
	// Config returns the resolved chart config
	Config() map[string]any
	// ComputedStyle returns the resolved chart style
	ComputedStyle() map[string]any
}

// Animation is the engine-side future for a submitted animation.
// Engines resolve it; callers wait on it.
type Animation struct {
	activated chan struct{}
	completed chan struct{}

	mu      sync.Mutex
	ctrl    Control
	err     error
	actOnce sync.Once
	endOnce sync.Once
}

// NewAnimation creates an unresolved animation future
func NewAnimation() *Animation {
	return &Animation{
		activated: make(chan struct{}),
		completed: make(chan struct{}),
	}
}

// Activate resolves the activation with ctrl
func (a *Animation) Activate(ctrl Control) {
	a.actOnce.Do(func() {
		a.mu.Lock()
		a.ctrl = ctrl
		a.mu.Unlock()
		close(a.activated)
	})
}

// Finish resolves completion. A nil err means the animation played to its end.
// An animation that never activated is failed with err as well.
func (a *Animation) Finish(err error) {
	a.endOnce.Do(func() {
		a.mu.Lock()
		if a.err == nil {
			a.err = err
		}
		a.mu.Unlock()
		a.actOnce.Do(func() { close(a.activated) })
		close(a.completed)
	})
}

// Activated is closed once the animation activated or failed
func (a *Animation) Activated() <-chan struct{} {
	return a.activated
}

// Done is closed once the animation finished, was stopped or failed
func (a *Animation) Done() <-chan struct{} {
	return a.completed
}

// Control returns the activation handle, nil before activation
func (a *Animation) Control() Control {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctrl
}

// Err returns the completion error, if any
func (a *Animation) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// WaitActivated blocks until activation or ctx is done
func (a *Animation) WaitActivated(ctx context.Context) (Control, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.activated:
	}
	ctrl := a.Control()
	if ctrl == nil {
		return nil, a.Err()
	}
	return ctrl, nil
}

// Wait blocks until the animation is done or ctx is done
func (a *Animation) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.completed:
		return a.Err()
	}
}

// FormatPosition renders a 0..100 percentage as the engine's seek argument
func FormatPosition(percent float64) string {
	return strconv.FormatFloat(percent, 'f', -1, 64) + "%"
}

// ParsePosition parses a seek argument ("40%", "40") into a 0..1 fraction
func ParsePosition(position string) (float64, error) {
	s := strings.TrimSpace(position)
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid seek position %q", position)
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return v / 100, nil
}
