package anim

import "time"

// DefaultSpeedUpDuration is the per-step duration forced on requests that have
// other requests queued behind them
const DefaultSpeedUpDuration = 500 * time.Millisecond

// SpeedUp returns a new sequence with every target preserved and every step's
// options replaced by a fixed short duration. The input is not modified.
// Applying it twice gives the same result as applying it once.
func SpeedUp(steps []Keyframe, d time.Duration) []Keyframe {
	out := make([]Keyframe, len(steps))
	for i, kf := range steps {
		out[i] = Keyframe{
			Target:  kf.Target,
			Options: &Options{Duration: Dur(d)},
		}
	}
	return out
}

// SpeedUpTarget wraps a single target into a one-step sped-up sequence
func SpeedUpTarget(t Target, d time.Duration) []Keyframe {
	return SpeedUp([]Keyframe{{Target: t}}, d)
}
