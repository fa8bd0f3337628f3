package anim

import "sync/atomic"

// ParamCurrentSlide is the tag key carrying the slide index a request belongs to
const ParamCurrentSlide = "currentSlide"

// Tag holds free-form parameters attached to a request
type Tag map[string]any

// SlideTag builds the tag used for slide navigation requests
func SlideTag(index int) Tag {
	return Tag{ParamCurrentSlide: index}
}

var lastRequestID atomic.Uint64

// Request is one unit of work for the animation queue.
// Copies of a Request share its ID, and the queue compares requests by ID.
type Request struct {
	id      uint64
	Steps   []Keyframe
	Options Options
	Tag     Tag
}

// NewRequest creates a request with a fresh identity
func NewRequest(steps []Keyframe, opts Options, tag Tag) Request {
	return Request{
		id:      lastRequestID.Add(1),
		Steps:   steps,
		Options: opts,
		Tag:     tag,
	}
}

// ID returns the request identity. Zero means the request was not built by NewRequest.
func (r Request) ID() uint64 {
	return r.id
}

// Same reports whether both values are copies of one request
func (r Request) Same(other Request) bool {
	return r.id != 0 && r.id == other.id
}
