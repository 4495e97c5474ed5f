// Package clock drives a world at a fixed step while running and freezes it
// while stopped.
//
// The clock is not safe for concurrent use; the owning event loop calls it.
package clock

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Stepper is advanced by the clock. *world.World satisfies it.
type Stepper interface {
	Step(dt float64) error
}

const (
	DefaultDt          = 1.0 / 60
	DefaultToggleKey   = " "
	DefaultHoldTimeout = 550 * time.Millisecond
	DefaultMaxSubSteps = 5
)

type Options struct {
	Dt        float64
	ToggleKey string
	// HoldTimeout ends a hold when no repeat arrives in time. Zero uses the
	// default; a negative value means only Release ends a hold.
	HoldTimeout time.Duration
	// MaxSubSteps caps the steps taken for one Advance call.
	MaxSubSteps int
	Logger      *log.Logger
}

type Clock struct {
	opts     Options
	state    State
	acc      float64
	steps    int
	held     bool
	lastSeen time.Time
	logger   *log.Logger
}

func New(opts Options) *Clock {
	if opts.Dt <= 0 {
		opts.Dt = DefaultDt
	}
	if opts.ToggleKey == "" {
		opts.ToggleKey = DefaultToggleKey
	}
	if opts.HoldTimeout == 0 {
		opts.HoldTimeout = DefaultHoldTimeout
	}
	if opts.MaxSubSteps <= 0 {
		opts.MaxSubSteps = DefaultMaxSubSteps
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Clock{opts: opts, logger: opts.Logger}
}

func (c *Clock) State() State      { return c.state }
func (c *Clock) Running() bool     { return c.state == Running }
func (c *Clock) Dt() float64       { return c.opts.Dt }
func (c *Clock) ToggleKey() string { return c.opts.ToggleKey }

// Steps returns the number of steps taken since creation.
func (c *Clock) Steps() int { return c.steps }

// Toggle flips between Stopped and Running and returns the new state.
func (c *Clock) Toggle() State {
	if c.state == Running {
		c.Stop()
	} else {
		c.Start()
	}
	return c.state
}

func (c *Clock) Start() {
	if c.state == Running {
		return
	}
	c.state = Running
	c.logger.Debug("clock started")
}

// Stop freezes the simulation. A step already in progress finishes; the
// accumulated remainder is dropped.
func (c *Clock) Stop() {
	if c.state == Stopped {
		return
	}
	c.state = Stopped
	c.acc = 0
	c.logger.Debug("clock stopped", "steps", c.steps)
}

// Press handles a key press at time at. It toggles on the first press of
// the toggle key and ignores repeats until the key is released or the hold
// times out. It reports whether the state changed.
func (c *Clock) Press(key string, at time.Time) bool {
	if key != c.opts.ToggleKey {
		return false
	}
	if c.held && (c.opts.HoldTimeout < 0 || at.Sub(c.lastSeen) < c.opts.HoldTimeout) {
		c.lastSeen = at
		return false
	}
	c.held = true
	c.lastSeen = at
	c.Toggle()
	return true
}

func (c *Clock) Release(key string) {
	if key == c.opts.ToggleKey {
		c.held = false
	}
}

// Advance feeds elapsed wall time into the accumulator and takes as many
// fixed steps as fit. Stopped clocks take none. On a step error it stops
// early and returns the steps taken so far, including the failed one.
func (c *Clock) Advance(s Stepper, elapsed time.Duration) (int, error) {
	if c.state != Running || elapsed <= 0 {
		return 0, nil
	}
	dt := c.opts.Dt
	c.acc += elapsed.Seconds()
	if limit := dt * float64(c.opts.MaxSubSteps); c.acc > limit {
		c.acc = limit
	}
	n := 0
	// frame durations are truncated to whole nanoseconds
	for c.acc >= dt-1e-6 {
		c.acc -= dt
		n++
		c.steps++
		if err := s.Step(dt); err != nil {
			c.logger.Warn("step failed", "step", c.steps, "err", err)
			return n, err
		}
	}
	return n, nil
}

// Run drives s for the given number of frames of frameDur each without
// waiting on wall time. each is called after every frame with the frame
// index and any step error; returning a non-nil error ends the run.
func (c *Clock) Run(ctx context.Context, s Stepper, frames int, frameDur time.Duration, each func(frame int, stepErr error) error) error {
	if frames < 0 {
		return fmt.Errorf("clock: frames must be non-negative, got %d", frames)
	}
	if frameDur <= 0 {
		return fmt.Errorf("clock: frame duration must be positive, got %v", frameDur)
	}
	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, stepErr := c.Advance(s, frameDur)
		if each != nil {
			if err := each(i, stepErr); err != nil {
				return err
			}
		}
	}
	return nil
}
