package world

import (
	"errors"
	"fmt"
)

var (
	// ErrDestroyed indicates use of a world after Destroy.
	ErrDestroyed = errors.New("world: world destroyed")

	// ErrInvalidSpec indicates degenerate or non-finite dynamic geometry.
	ErrInvalidSpec = errors.New("world: invalid body spec")

	// ErrUnstable indicates a body whose position or velocity is NaN or Inf.
	ErrUnstable = errors.New("world: body state diverged (NaN or Inf)")

	// ErrEnginePanic wraps a panic raised inside the physics engine.
	ErrEnginePanic = errors.New("world: physics engine panic")

	// ErrForeignBody indicates a body that is not registered in this world.
	ErrForeignBody = errors.New("world: body not in this world")
)

// BuildError wraps a failure while populating a world.
type BuildError struct {
	Stage   string
	Wrapped error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Stage, e.Wrapped)
}

func (e *BuildError) Unwrap() error {
	return e.Wrapped
}

// StepError reports the bodies that diverged during a step.
type StepError struct {
	Bodies  []*Body
	Wrapped error
}

func (e *StepError) Error() string {
	if len(e.Bodies) == 0 {
		return e.Wrapped.Error()
	}
	return fmt.Sprintf("%v (%d bodies)", e.Wrapped, len(e.Bodies))
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}

// Guard runs fn and turns both returned errors and engine panics into a
// *BuildError tagged with stage.
func Guard(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &BuildError{Stage: stage, Wrapped: fmt.Errorf("%w: %v", ErrEnginePanic, r)}
		}
	}()
	if ferr := fn(); ferr != nil {
		return &BuildError{Stage: stage, Wrapped: ferr}
	}
	return nil
}
