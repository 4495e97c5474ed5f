package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countStepper struct {
	n      int
	failAt int
}

var errBoom = errors.New("boom")

func (s *countStepper) Step(dt float64) error {
	s.n++
	if s.failAt > 0 && s.n == s.failAt {
		return errBoom
	}
	return nil
}

const frame = time.Second / 60

func TestToggle(t *testing.T) {
	tests := []struct {
		name    string
		toggles int
		want    State
	}{
		{"initial", 0, Stopped},
		{"once", 1, Running},
		{"twice", 2, Stopped},
		{"three times", 3, Running},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{})
			for i := 0; i < tt.toggles; i++ {
				c.Toggle()
			}
			if c.State() != tt.want {
				t.Errorf("State() = %v, want %v", c.State(), tt.want)
			}
		})
	}
}

func TestPressEdgeTriggered(t *testing.T) {
	c := New(Options{HoldTimeout: -1})
	t0 := time.Unix(0, 0)

	if !c.Press(" ", t0) {
		t.Fatal("first press did not toggle")
	}
	for i := 1; i <= 5; i++ {
		if c.Press(" ", t0.Add(time.Duration(i)*30*time.Millisecond)) {
			t.Fatalf("repeat %d toggled", i)
		}
	}
	if c.State() != Running {
		t.Fatalf("State() = %v, want running", c.State())
	}
	c.Release(" ")
	if !c.Press(" ", t0.Add(time.Second)) {
		t.Fatal("press after release did not toggle")
	}
	if c.State() != Stopped {
		t.Errorf("State() = %v, want stopped", c.State())
	}
}

func TestPressHoldTimeout(t *testing.T) {
	c := New(Options{HoldTimeout: 100 * time.Millisecond})
	t0 := time.Unix(0, 0)
	c.Press(" ", t0)
	if c.Press(" ", t0.Add(50*time.Millisecond)) {
		t.Error("repeat inside timeout toggled")
	}
	if !c.Press(" ", t0.Add(300*time.Millisecond)) {
		t.Error("press after timeout did not toggle")
	}
	if c.Press("a", t0.Add(time.Second)) {
		t.Error("other key toggled")
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name    string
		running bool
		elapsed []time.Duration
		want    int
	}{
		{"stopped", false, []time.Duration{frame, frame}, 0},
		{"one frame", true, []time.Duration{frame}, 1},
		{"sixty frames", true, repeat(frame, 60), 60},
		{"half frames", true, repeat(frame/2, 4), 2},
		{"capped", true, []time.Duration{time.Second}, DefaultMaxSubSteps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{})
			if tt.running {
				c.Start()
			}
			s := &countStepper{}
			for _, e := range tt.elapsed {
				if _, err := c.Advance(s, e); err != nil {
					t.Fatal(err)
				}
			}
			if s.n != tt.want || c.Steps() != tt.want {
				t.Errorf("steps = %d (clock %d), want %d", s.n, c.Steps(), tt.want)
			}
		})
	}
}

func TestAdvanceStopsOnError(t *testing.T) {
	c := New(Options{})
	c.Start()
	s := &countStepper{failAt: 2}
	n, err := c.Advance(s, 4*frame)
	if !errors.Is(err, errBoom) || n != 2 {
		t.Errorf("Advance() = %d, %v; want 2, errBoom", n, err)
	}
	if !c.Running() {
		t.Error("clock stopped after a step error")
	}
}

func TestRun(t *testing.T) {
	c := New(Options{})
	c.Start()
	s := &countStepper{}
	var seen int
	err := c.Run(context.Background(), s, 30, frame, func(i int, stepErr error) error {
		seen++
		return stepErr
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 30 || s.n != 30 {
		t.Errorf("frames %d steps %d, want 30 and 30", seen, s.n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx, s, 10, frame, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() on canceled ctx = %v", err)
	}
	if err := c.Run(context.Background(), s, 1, 0, nil); err == nil {
		t.Error("Run() accepted zero frame duration")
	}
}

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}
