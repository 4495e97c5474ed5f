package world

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"
)

const (
	DefaultGravity       = 1000.0
	DefaultIterations    = 10
	DefaultSpringRate    = 400.0
	DefaultSpringDamping = 10.0
)

// grabBit marks shapes a pointer may pick up. Static shapes clear it.
const grabBit uint = 1 << 31

var (
	grabFilter   = cp.ShapeFilter{Group: cp.NO_GROUP, Categories: grabBit, Mask: grabBit}
	staticFilter = cp.ShapeFilter{Group: cp.NO_GROUP, Categories: ^grabBit, Mask: ^grabBit}
)

type Options struct {
	// Gravity is the downward acceleration before scaling, in units/s².
	Gravity       float64
	Iterations    uint
	SpringRate    float64
	SpringDamping float64
	Logger        *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Gravity == 0 {
		o.Gravity = DefaultGravity
	}
	if o.Iterations == 0 {
		o.Iterations = DefaultIterations
	}
	if o.SpringRate <= 0 {
		o.SpringRate = DefaultSpringRate
	}
	if o.SpringDamping < 0 {
		o.SpringDamping = 0
	} else if o.SpringDamping == 0 {
		o.SpringDamping = DefaultSpringDamping
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// World owns one physics space and every body and constraint in it.
// Bodies are tracked in insertion order so counts and rendering are stable.
type World struct {
	opts        Options
	space       *cp.Space
	bodies      []*Body
	byEngine    map[*cp.Body]*Body
	constraints []*Constraint
	pointers    []*Pointer
	scale       float64
	nextID      uint64
	nextGroup   uint
	destroyed   bool
	logger      *log.Logger
}

func New(opts Options) *World {
	opts = opts.withDefaults()
	space := cp.NewSpace()
	space.Iterations = opts.Iterations
	w := &World{
		opts:     opts,
		space:    space,
		byEngine: make(map[*cp.Body]*Body),
		scale:    1,
		logger:   opts.Logger,
	}
	w.applyGravity()
	return w
}

func (w *World) Destroyed() bool { return w.destroyed }

// AddBody creates a body from spec. Static specs with zero area are
// registered without engine geometry.
func (w *World) AddBody(spec BodySpec) (*Body, error) {
	if w.destroyed {
		return nil, ErrDestroyed
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	w.nextID++
	b := &Body{id: w.nextID, spec: spec, world: w}

	if spec.Static {
		if !spec.degenerate() {
			b.shape = w.staticShape(spec)
		}
	} else {
		mass := spec.Material.Mass
		if mass <= 0 {
			mass = spec.area() * DefaultDensity
		}
		var moment float64
		if spec.Geometry == GeomCircle {
			moment = cp.MomentForCircle(mass, 0, spec.Radius, cp.Vector{})
		} else {
			moment = cp.MomentForBox(mass, spec.Width, spec.Height)
		}
		b.body = w.space.AddBody(cp.NewBody(mass, moment))
		b.body.SetPosition(cp.Vector{X: spec.X, Y: spec.Y})
		if spec.Geometry == GeomCircle {
			b.shape = cp.NewCircle(b.body, spec.Radius, cp.Vector{})
		} else {
			r := spec.Radius
			b.shape = cp.NewBox(b.body, spec.Width-2*r, spec.Height-2*r, r)
		}
		w.space.AddShape(b.shape)
		w.byEngine[b.body] = b
		if spec.Group != 0 {
			b.shape.SetFilter(cp.NewShapeFilter(spec.Group, cp.ALL_CATEGORIES, cp.ALL_CATEGORIES))
		}
	}
	if b.shape != nil {
		b.shape.SetElasticity(spec.Material.Restitution)
		b.shape.SetFriction(spec.Material.Friction)
	}
	w.bodies = append(w.bodies, b)
	return b, nil
}

// staticShape attaches geometry to the space's static body, offset to the
// spec position.
func (w *World) staticShape(spec BodySpec) *cp.Shape {
	center := cp.Vector{X: spec.X, Y: spec.Y}
	var shape *cp.Shape
	if spec.Geometry == GeomCircle {
		shape = cp.NewCircle(w.space.StaticBody, spec.Radius, center)
	} else {
		hw, hh := spec.Width/2, spec.Height/2
		verts := []cp.Vector{{X: -hw, Y: -hh}, {X: -hw, Y: hh}, {X: hw, Y: hh}, {X: hw, Y: -hh}}
		shape = cp.NewPolyShape(w.space.StaticBody, len(verts), verts, cp.NewTransformTranslate(center), 0)
	}
	shape.SetFilter(staticFilter)
	return w.space.AddShape(shape)
}

// RemoveBody removes b together with every constraint attached to it.
func (w *World) RemoveBody(b *Body) error {
	if w.destroyed {
		return ErrDestroyed
	}
	idx := w.index(b)
	if idx < 0 {
		return ErrForeignBody
	}
	for _, p := range w.pointers {
		if p.grabbed == b {
			p.Release()
		}
	}
	kept := w.constraints[:0]
	for _, c := range w.constraints {
		if c.spec.A == b || c.spec.B == b {
			w.space.RemoveConstraint(c.c)
			continue
		}
		kept = append(kept, c)
	}
	w.constraints = kept
	w.detach(b)
	w.bodies = append(w.bodies[:idx], w.bodies[idx+1:]...)
	return nil
}

func (w *World) detach(b *Body) {
	if b.shape != nil {
		w.space.RemoveShape(b.shape)
	}
	if b.body != nil {
		delete(w.byEngine, b.body)
		w.space.RemoveBody(b.body)
	}
	b.world = nil
}

// Clear removes every constraint and then every body. The world stays usable.
func (w *World) Clear() {
	if w.destroyed {
		return
	}
	for _, p := range w.pointers {
		p.Release()
	}
	for _, c := range w.constraints {
		w.space.RemoveConstraint(c.c)
	}
	w.constraints = nil
	for _, b := range w.bodies {
		w.detach(b)
	}
	w.logger.Debug("world cleared", "bodies", len(w.bodies))
	w.bodies = nil
}

// Destroy clears the world and releases the engine. Later calls that
// mutate or step return ErrDestroyed.
func (w *World) Destroy() {
	if w.destroyed {
		return
	}
	w.Clear()
	w.pointers = nil
	w.space = nil
	w.destroyed = true
}

// Step advances the simulation by dt seconds. Engine panics and diverged
// bodies come back as a *StepError.
func (w *World) Step(dt float64) (err error) {
	if w.destroyed {
		return ErrDestroyed
	}
	defer func() {
		if r := recover(); r != nil {
			err = &StepError{Wrapped: fmt.Errorf("%w: %v", ErrEnginePanic, r)}
		}
	}()
	w.space.Step(dt)

	var bad []*Body
	for _, b := range w.bodies {
		if !b.spec.Static && !b.valid() {
			bad = append(bad, b)
		}
	}
	if len(bad) > 0 {
		return &StepError{Bodies: bad, Wrapped: ErrUnstable}
	}
	return nil
}

// SetGravityScale multiplies the base gravity. The default scale is 1.
func (w *World) SetGravityScale(s float64) {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return
	}
	w.scale = s
	if !w.destroyed {
		w.applyGravity()
	}
}

func (w *World) GravityScale() float64 { return w.scale }

// Gravity returns the effective gravity vector.
func (w *World) Gravity() cp.Vector {
	return cp.Vector{X: 0, Y: w.opts.Gravity * w.scale}
}

func (w *World) applyGravity() {
	w.space.SetGravity(w.Gravity())
}

// Bodies returns the registered bodies in insertion order.
func (w *World) Bodies() []*Body {
	out := make([]*Body, len(w.bodies))
	copy(out, w.bodies)
	return out
}

func (w *World) Count() int { return len(w.bodies) }

func (w *World) CountKind(k Kind) int {
	n := 0
	for _, b := range w.bodies {
		if b.spec.Kind == k {
			n++
		}
	}
	return n
}


// NextGroup returns a fresh collision group. Bodies sharing a group never
// collide with each other.
func (w *World) NextGroup() uint {
	w.nextGroup++
	return w.nextGroup
}

func (w *World) index(b *Body) int {
	if b == nil || b.world != w {
		return -1
	}
	for i, x := range w.bodies {
		if x == b {
			return i
		}
	}
	return -1
}
