package director

import "github.com/ivlev/vizdeck/internal/anim"

// Plan is the animation that moves the presentation from one slide to another
type Plan struct {
	Target    int // Slide index after the transition
	Direction anim.Direction
	Steps     []anim.Keyframe
	Options   anim.Options
	// LastAnimation is the keyframe list of the slide being navigated to
	LastAnimation []anim.Keyframe
}

// Request wraps the plan into a queue request tagged with the target slide
func (p Plan) Request() anim.Request {
	return anim.NewRequest(p.Steps, p.Options, anim.SlideTag(p.Target))
}

// PlanTransition picks the animation for going from current to requested.
// requested is clamped into range. ok is false when there is nothing to do.
func PlanTransition(slides [][]anim.Keyframe, current, requested int) (plan Plan, ok bool) {
	if len(slides) == 0 {
		return Plan{}, false
	}
	requested = clampIndex(requested, len(slides))
	current = clampIndex(current, len(slides))
	if requested == current {
		return Plan{}, false
	}

	plan = Plan{Target: requested, Direction: anim.DirectionNormal}

	switch requested - current {
	case -1:
		// One step back replays the current slide backwards
		plan.Direction = anim.DirectionReverse
		plan.Steps = slides[current]
		plan.Options = anim.Options{Position: anim.Pos(1), Direction: anim.DirectionReverse}
		plan.LastAnimation = slides[current]
	case 1:
		plan.Steps = slides[requested]
		plan.LastAnimation = slides[requested]
	default:
		from := slides[current]
		steps := make([]anim.Keyframe, 0, len(slides[requested])+1)
		if len(from) > 0 {
			steps = append(steps, from[len(from)-1])
		}
		plan.Steps = append(steps, slides[requested]...)
		plan.LastAnimation = slides[requested]
	}

	return plan, true
}

func clampIndex(i, length int) int {
	if i < 0 {
		return 0
	}
	if i >= length {
		return length - 1
	}
	return i
}

// NormalizeSlideNumber turns a 1-based slide number into an index.
// 0 means the first slide and negative numbers count from the end.
func NormalizeSlideNumber(nr, length int) int {
	if nr == 0 || length <= 0 {
		return 0
	}
	if nr < 0 {
		return max(length+nr, 0)
	}
	return min(nr-1, length-1)
}
