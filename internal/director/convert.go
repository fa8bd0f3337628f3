package director

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ivlev/vizdeck/internal/anim"
	"github.com/ivlev/vizdeck/internal/engine"
)

// ConvertSlides plays every phase of a normalized story on eng, jumping each
// animation to its end, and records the resolved chart state as keyframes.
// Each slide after the first starts with the last keyframe of the slide before.
// The chart is left on slide start.
func ConvertSlides(ctx context.Context, eng engine.Engine, story *Story, start int) ([][]anim.Keyframe, error) {
	off := eng.On(engine.EventAnimationBegin, func(ev engine.Event) {
		ev.Control.Seek(engine.FormatPosition(100))
	})
	defer off()

	converted := make([][]anim.Keyframe, 0, len(story.Slides))
	var lastFilter *string

	for i, slide := range story.Slides {
		var steps []anim.Keyframe
		if n := len(converted); n > 0 {
			if prev := converted[n-1]; len(prev) > 0 {
				steps = append(steps, prev[len(prev)-1])
			}
		}

		for j, phase := range slide.Phases {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			fut := eng.Animate([]anim.Keyframe{{Target: phase.Target()}}, anim.Options{}, nil)
			if err := fut.Wait(ctx); err != nil {
				return nil, errors.Wrapf(err, "slide %d phase %d", i+1, j+1)
			}

			kf := anim.Keyframe{
				Target: anim.Target{
					Config: eng.Config(),
					Style:  eng.ComputedStyle(),
				},
			}
			if phase.AnimOptions != nil {
				opts := phase.AnimOptions.Clone()
				kf.Options = &opts
			}
			switch {
			case phase.Filter != nil:
				kf.Target.Filter = phase.Filter
				lastFilter = phase.Filter
			case lastFilter != nil:
				kf.Target.Filter = lastFilter
			}

			steps = append(steps, kf)
		}
		converted = append(converted, steps)
	}

	if len(converted) > 0 {
		seat := converted[clampIndex(start, len(converted))]
		if err := eng.Animate(seat, anim.Options{}, nil).Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "failed to seat start slide")
		}
	}

	return converted, nil
}
