package world

import (
	"math"

	"github.com/jakecoffman/cp"
)

const pointerMaxForce = 50000.0

// Pointer drags dynamic bodies with a stiff pivot to a kinematic handle.
// The handle body never enters the space.
type Pointer struct {
	w         *World
	handle    *cp.Body
	joint     *cp.Constraint
	grabbed   *Body
	stiffness float64
}

// NewPointer returns a pointer whose pull is set by stiffness in (0, 1].
func (w *World) NewPointer(stiffness float64) *Pointer {
	if stiffness <= 0 || stiffness > 1 {
		stiffness = 0.2
	}
	p := &Pointer{w: w, handle: cp.NewKinematicBody(), stiffness: stiffness}
	w.pointers = append(w.pointers, p)
	return p
}

// Grab picks the dynamic body under (x, y). It reports false when there is
// none or the world is gone.
func (p *Pointer) Grab(x, y float64) (*Body, bool) {
	p.Release()
	if p.w.destroyed {
		return nil, false
	}
	at := cp.Vector{X: x, Y: y}
	p.handle.SetPosition(at)
	p.handle.SetVelocity(0, 0)

	info := p.w.space.PointQueryNearest(at, 0, grabFilter)
	if info == nil || info.Shape == nil {
		return nil, false
	}
	b, ok := p.w.byEngine[info.Shape.Body()]
	if !ok {
		return nil, false
	}
	nearest := at
	if info.Distance > 0 {
		nearest = info.Point
	}
	p.joint = cp.NewPivotJoint2(p.handle, b.body, cp.Vector{}, b.body.WorldToLocal(nearest))
	p.joint.SetMaxForce(pointerMaxForce)
	p.joint.SetErrorBias(math.Pow(1-p.stiffness, 60))
	p.w.space.AddConstraint(p.joint)
	p.grabbed = b
	return b, true
}

// Move drags the handle to (x, y). It gives the handle the velocity of one
// frame at 60 Hz so contacts feel the motion.
func (p *Pointer) Move(x, y float64) {
	to := cp.Vector{X: x, Y: y}
	from := p.handle.Position()
	p.handle.SetVelocityVector(to.Sub(from).Mult(60))
	p.handle.SetPosition(to)
}

func (p *Pointer) Release() {
	if p.joint != nil && !p.w.destroyed {
		p.w.space.RemoveConstraint(p.joint)
	}
	p.joint = nil
	p.grabbed = nil
}

func (p *Pointer) Grabbed() *Body { return p.grabbed }

func (p *Pointer) Position() cp.Vector { return p.handle.Position() }
