package world

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

// ConstraintSpec links two points. A nil A pins PointA to a fixed world
// position; otherwise PointA is an offset in A's local frame, as is PointB
// for B.
//
// Stiffness 1 gives a rigid link: a pivot when Length is 0, a fixed-length
// rod otherwise. Lower stiffness gives a damped spring whose rate scales with
// it. A negative Length means the distance between the points at creation.
type ConstraintSpec struct {
	A, B      *Body
	PointA    cp.Vector
	PointB    cp.Vector
	Stiffness float64
	Length    float64
}

type Constraint struct {
	spec   ConstraintSpec
	c      *cp.Constraint
	length float64
}

func (c *Constraint) Spec() ConstraintSpec { return c.spec }

// Length is the rest length resolved at creation.
func (c *Constraint) Length() float64 { return c.length }

func (c *Constraint) Rigid() bool { return c.spec.Stiffness >= 1 }

// Endpoints returns both attachment points in world space.
func (c *Constraint) Endpoints() (a, b cp.Vector) {
	if c.spec.A == nil {
		a = c.spec.PointA
	} else {
		a = c.spec.A.LocalToWorld(c.spec.PointA)
	}
	return a, c.spec.B.LocalToWorld(c.spec.PointB)
}

// AddConstraint adds a constraint between registered bodies.
func (w *World) AddConstraint(spec ConstraintSpec) (*Constraint, error) {
	if w.destroyed {
		return nil, ErrDestroyed
	}
	if w.index(spec.B) < 0 || (spec.A != nil && w.index(spec.A) < 0) {
		return nil, ErrForeignBody
	}
	if math.IsNaN(spec.Stiffness) || spec.Stiffness <= 0 {
		return nil, fmt.Errorf("%w: stiffness %v", ErrInvalidSpec, spec.Stiffness)
	}

	bodyA, anchorA := w.engineAnchor(spec.A, spec.PointA)
	bodyB, anchorB := w.engineAnchor(spec.B, spec.PointB)

	length := spec.Length
	if length < 0 {
		var pa cp.Vector
		if spec.A == nil {
			pa = spec.PointA
		} else {
			pa = spec.A.LocalToWorld(spec.PointA)
		}
		length = pa.Distance(spec.B.LocalToWorld(spec.PointB))
	}

	var c *cp.Constraint
	switch {
	case spec.Stiffness >= 1 && length == 0:
		c = cp.NewPivotJoint2(bodyA, bodyB, anchorA, anchorB)
	case spec.Stiffness >= 1:
		c = cp.NewSlideJoint(bodyA, bodyB, anchorA, anchorB, length, length)
	default:
		k := spec.Stiffness * w.opts.SpringRate
		c = cp.NewDampedSpring(bodyA, bodyB, anchorA, anchorB, length, k, w.opts.SpringDamping)
	}
	w.space.AddConstraint(c)

	out := &Constraint{spec: spec, c: c, length: length}
	w.constraints = append(w.constraints, out)
	return out, nil
}

func (w *World) RemoveConstraint(c *Constraint) error {
	if w.destroyed {
		return ErrDestroyed
	}
	for i, x := range w.constraints {
		if x == c {
			w.space.RemoveConstraint(c.c)
			w.constraints = append(w.constraints[:i], w.constraints[i+1:]...)
			return nil
		}
	}
	return ErrForeignBody
}

func (w *World) Constraints() []*Constraint {
	out := make([]*Constraint, len(w.constraints))
	copy(out, w.constraints)
	return out
}

// engineAnchor maps a body and local offset onto the engine. Static bodies
// share the space's static body, whose frame is the world frame.
func (w *World) engineAnchor(b *Body, p cp.Vector) (*cp.Body, cp.Vector) {
	if b == nil {
		return w.space.StaticBody, p
	}
	if b.spec.Static {
		return w.space.StaticBody, b.Position().Add(p)
	}
	return b.body, p
}
