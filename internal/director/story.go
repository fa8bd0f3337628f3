package director

import (
	"maps"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/vizdeck/internal/anim"
)

// Story is a whole presentation: the data, the initial style and the slides
type Story struct {
	Data   map[string]any `yaml:"data,omitempty"`  // Copied into the first phase when it has none
	Style  map[string]any `yaml:"style,omitempty"` // Copied into the first phase when it has none
	Slides []Slide        `yaml:"slides"`
}

// Slide is one navigable unit made of one or more phases
type Slide struct {
	Phases []Phase
}

// Phase is one chart state of a slide
type Phase struct {
	Config      map[string]any `yaml:"config,omitempty"`
	Style       map[string]any `yaml:"style,omitempty"`
	Data        map[string]any `yaml:"data,omitempty"`
	Filter      *string        `yaml:"filter,omitempty"` // "" clears the filter
	AnimOptions *anim.Options  `yaml:"animOptions,omitempty"`
}

// UnmarshalYAML accepts a single phase mapping or a sequence of phases
func (s *Slide) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&s.Phases)
	case yaml.MappingNode:
		var p Phase
		if err := node.Decode(&p); err != nil {
			return err
		}
		s.Phases = []Phase{p}
		return nil
	default:
		return errors.Errorf("line %d: slide must be a phase or a list of phases", node.Line)
	}
}

// MarshalYAML writes single-phase slides as a plain mapping
func (s Slide) MarshalYAML() (any, error) {
	if len(s.Phases) == 1 {
		return s.Phases[0], nil
	}
	return s.Phases, nil
}

// Target converts the phase into an engine target
func (p Phase) Target() anim.Target {
	return anim.Target{
		Config: p.Config,
		Style:  p.Style,
		Data:   p.Data,
		Filter: p.Filter,
	}
}

// Normalize returns a copy ready for conversion. The story style gets a
// default font size and the first phase of the first slide inherits the
// story data and style when it has none.
func (s *Story) Normalize() *Story {
	out := &Story{
		Data:   maps.Clone(s.Data),
		Style:  maps.Clone(s.Style),
		Slides: make([]Slide, len(s.Slides)),
	}
	for i, slide := range s.Slides {
		out.Slides[i] = Slide{Phases: append([]Phase(nil), slide.Phases...)}
	}

	if out.Style == nil {
		out.Style = map[string]any{}
	}
	if _, ok := out.Style["fontSize"]; !ok {
		out.Style["fontSize"] = "100%"
	}

	if len(out.Slides) == 0 {
		return out
	}
	if len(out.Slides[0].Phases) == 0 {
		out.Slides[0].Phases = []Phase{{}}
	}
	first := &out.Slides[0].Phases[0]
	if first.Data == nil {
		first.Data = maps.Clone(out.Data)
	}
	if first.Style == nil {
		first.Style = maps.Clone(out.Style)
	}

	return out
}
