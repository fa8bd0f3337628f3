package anim

import "time"

// Direction of playback for an animation request
type Direction string

const (
	DirectionNormal  Direction = "normal"
	DirectionReverse Direction = "reverse"
)

// PlayState the engine should start an animation in
type PlayState string

const (
	PlayStateRunning PlayState = "running"
	PlayStatePaused  PlayState = "paused"
)

// Target is one chart state description: config, style and data deltas.
// The engine interprets it; this package only carries it around.
type Target struct {
	Config map[string]any `yaml:"config,omitempty"`
	Style  map[string]any `yaml:"style,omitempty"`
	Data   map[string]any `yaml:"data,omitempty"`
	// Filter is an engine filter expression. An empty string clears the filter.
	Filter *string `yaml:"filter,omitempty"`
}

// Options controls how the engine plays a request or a single step.
// Nil fields mean "no override".
type Options struct {
	Direction Direction      `yaml:"direction,omitempty"`
	PlayState PlayState      `yaml:"playState,omitempty"`
	Position  *float64       `yaml:"position,omitempty"` // 0..1
	Duration  *time.Duration `yaml:"duration,omitempty"`
	Delay     *time.Duration `yaml:"delay,omitempty"`
	Easing    string         `yaml:"easing,omitempty"`
}

// Keyframe is a target plus optional per-step options
type Keyframe struct {
	Target  Target   `yaml:"target"`
	Options *Options `yaml:"options,omitempty"`
}

// Clone returns a shallow copy; pointer fields are copied by value.
func (o Options) Clone() Options {
	c := o
	if o.Position != nil {
		p := *o.Position
		c.Position = &p
	}
	if o.Duration != nil {
		d := *o.Duration
		c.Duration = &d
	}
	if o.Delay != nil {
		d := *o.Delay
		c.Delay = &d
	}
	return c
}

// IsReverse reports whether the options request reverse playback
func (o Options) IsReverse() bool {
	return o.Direction == DirectionReverse
}

// Dur returns a pointer to d, for filling optional duration fields.
func Dur(d time.Duration) *time.Duration {
	return &d
}

// Pos returns a pointer to p, for filling Options.Position.
func Pos(p float64) *float64 {
	return &p
}

// StringPtr returns a pointer to s, for filling Target.Filter.
func StringPtr(s string) *string {
	return &s
}
