package renderer

import (
	"strings"
	"time"

	"github.com/tanema/gween/ease"

	"github.com/ivlev/vizdeck/internal/anim"
)

// Timeline lays the steps of one animation end to end on a time axis
type Timeline struct {
	starts  []time.Duration // Step start, delay included
	lengths []time.Duration // Delay + duration
	delays  []time.Duration
	total   time.Duration
}

// NewTimeline resolves step timing. A step's own duration wins, then the
// request duration split evenly across steps, then fallback.
func NewTimeline(steps []anim.Keyframe, opts anim.Options, fallback time.Duration) Timeline {
	tl := Timeline{
		starts:  make([]time.Duration, len(steps)),
		lengths: make([]time.Duration, len(steps)),
		delays:  make([]time.Duration, len(steps)),
	}

	shared := fallback
	if opts.Duration != nil && len(steps) > 0 {
		shared = *opts.Duration / time.Duration(len(steps))
	}

	var cursor time.Duration
	for i, kf := range steps {
		d := shared
		var delay time.Duration
		if kf.Options != nil {
			if kf.Options.Duration != nil {
				d = *kf.Options.Duration
			}
			if kf.Options.Delay != nil {
				delay = *kf.Options.Delay
			}
		}
		if i == 0 && opts.Delay != nil {
			delay += *opts.Delay
		}
		if d < 0 {
			d = 0
		}

		tl.starts[i] = cursor
		tl.delays[i] = delay
		tl.lengths[i] = delay + d
		cursor += delay + d
	}
	tl.total = cursor

	return tl
}

// Total returns the summed length of all steps
func (tl Timeline) Total() time.Duration {
	return tl.total
}

// Len returns the number of steps
func (tl Timeline) Len() int {
	return len(tl.starts)
}

// Locate finds the step in progress at offset t and the step's local progress (0..1).
// Delay time counts as local progress 0.
func (tl Timeline) Locate(t time.Duration) (index int, local float64) {
	if len(tl.starts) == 0 {
		return 0, 0
	}

	// Before first step
	if t <= 0 {
		return 0, 0
	}

	// After last step
	if t >= tl.total {
		return len(tl.starts) - 1, 1
	}

	for i := range tl.starts {
		end := tl.starts[i] + tl.lengths[i]
		if t >= tl.starts[i] && t < end {
			active := t - tl.starts[i] - tl.delays[i]
			if active <= 0 {
				return i, 0
			}
			span := tl.lengths[i] - tl.delays[i]
			if span <= 0 {
				return i, 1
			}
			return i, float64(active) / float64(span)
		}
	}

	return len(tl.starts) - 1, 1
}

// Completed returns how many steps have fully played at offset t
func (tl Timeline) Completed(t time.Duration) int {
	if t <= 0 {
		return 0
	}
	n := 0
	for i := range tl.starts {
		if tl.starts[i]+tl.lengths[i] <= t {
			n++
		}
	}
	return n
}

// Easing maps an easing option name to a tween function.
// Unknown and empty names use the smooth in-out curve.
func Easing(name string) ease.TweenFunc {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear":
		return ease.Linear
	case "in", "ease-in", "cubic-in":
		return ease.InCubic
	case "out", "ease-out", "cubic-out":
		return ease.OutCubic
	case "quad", "ease-in-out-quad":
		return ease.InOutQuad
	case "sine", "ease-in-out-sine":
		return ease.InOutSine
	default:
		return ease.InOutCubic
	}
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Progress converts a local step position into overall animation progress (0..1)
func (tl Timeline) Progress(index int, local float64) float64 {
	if tl.total <= 0 || len(tl.starts) == 0 {
		return 1
	}
	if index < 0 {
		return 0
	}
	if index >= len(tl.starts) {
		return 1
	}
	start := float64(tl.starts[index]+tl.delays[index]) / float64(tl.total)
	end := float64(tl.starts[index]+tl.lengths[index]) / float64(tl.total)
	return lerp(start, end, local)
}
