package engine

import (
	"testing"
	"time"

	"github.com/ivlev/vizdeck/internal/anim"
)

func TestSimDurations(t *testing.T) {
	eng := NewSimEngine(WithDefaultDuration(time.Second))

	steps := []anim.Keyframe{
		{Target: anim.Target{Config: map[string]any{"x": "Year"}}},
		{Target: anim.Target{Config: map[string]any{"y": "Value"}}},
		{Target: anim.Target{Config: map[string]any{"color": "Country"}}},
		{Target: anim.Target{Config: map[string]any{"label": "Value"}}},
	}

	// Request duration is split evenly across the steps
	fut := eng.Animate(steps, anim.Options{Duration: anim.Dur(2 * time.Second)}, nil)
	eng.Step(0)

	eng.Step(time.Second)
	cfg := eng.Config()
	if cfg["y"] != "Value" || cfg["color"] != nil {
		t.Errorf("Expected two steps applied after half the duration, got %v", cfg)
	}
	select {
	case <-fut.Done():
		t.Fatal("Animation finished too early")
	default:
	}

	eng.Step(time.Second)
	select {
	case <-fut.Done():
	default:
		t.Fatal("Expected animation to finish after the request duration")
	}
	if len(eng.Config()) != 4 {
		t.Errorf("Expected every step applied, got %v", eng.Config())
	}
}

func TestSimDefaultDuration(t *testing.T) {
	eng := NewSimEngine(WithDefaultDuration(300 * time.Millisecond))

	steps := []anim.Keyframe{{}, {Options: &anim.Options{Duration: anim.Dur(time.Second)}}}
	fut := eng.Animate(steps, anim.Options{}, nil)
	eng.Step(0)

	// 300ms default + 1s override
	eng.Step(1200 * time.Millisecond)
	if st := eng.Status(); !st.Running {
		t.Fatalf("Expected animation still running, got %+v", st)
	}
	eng.Step(100 * time.Millisecond)
	if err := fut.Err(); err != nil {
		t.Fatalf("Expected clean finish, got %v", err)
	}
	if !eng.Idle() {
		t.Errorf("Expected idle engine, got %+v", eng.Status())
	}
}

func TestSimZeroDuration(t *testing.T) {
	eng := NewSimEngine()

	target := anim.Target{Config: map[string]any{"geometry": "circle"}}
	fut := eng.Animate(anim.SpeedUpTarget(target, 0), anim.Options{}, nil)

	eng.Step(0) // activation
	eng.Step(0) // completion

	select {
	case <-fut.Done():
	default:
		t.Fatal("Expected a zero length animation to finish on the next step")
	}
	if eng.Config()["geometry"] != "circle" {
		t.Errorf("Expected target applied, got %v", eng.Config())
	}
}
