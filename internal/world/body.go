package world

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

// Kind records why a body exists.
type Kind int

const (
	KindWall Kind = iota
	KindShape
	KindLink
	KindPlank
	KindSpawned
)

var kindNames = [...]string{"wall", "shape", "link", "plank", "spawned"}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Geometry int

const (
	GeomCircle Geometry = iota
	GeomBox
)

// DefaultDensity gives a body its mass from its area when Material.Mass is 0.
const DefaultDensity = 0.001

type Material struct {
	Mass        float64
	Restitution float64
	Friction    float64
}

// BodySpec describes a body before it enters a world. For GeomBox, Radius is
// the corner rounding; Width and Height stay the outer extents.
type BodySpec struct {
	Kind     Kind
	Geometry Geometry
	X, Y     float64
	Radius   float64
	Width    float64
	Height   float64
	Static   bool
	Material Material
	// Group suppresses collisions among bodies sharing the same non-zero value.
	Group uint
	// Origin is the id of the scene shape this body was generated from.
	Origin uint64
}

// Extent returns the bounding box size at rest.
func (s BodySpec) Extent() (w, h float64) {
	if s.Geometry == GeomCircle {
		return 2 * s.Radius, 2 * s.Radius
	}
	return s.Width, s.Height
}

func (s BodySpec) area() float64 {
	if s.Geometry == GeomCircle {
		return math.Pi * s.Radius * s.Radius
	}
	return s.Width * s.Height
}

func (s BodySpec) degenerate() bool {
	w, h := s.Extent()
	return !(w > 0 && h > 0)
}

func (s BodySpec) validate() error {
	for _, v := range []float64{s.X, s.Y, s.Radius, s.Width, s.Height, s.Material.Mass} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite field", ErrInvalidSpec)
		}
	}
	if s.Static {
		return nil
	}
	if s.degenerate() {
		return fmt.Errorf("%w: %s body needs positive size", ErrInvalidSpec, s.Kind)
	}
	if s.Geometry == GeomBox && 2*s.Radius > math.Min(s.Width, s.Height) {
		return fmt.Errorf("%w: corner radius %.1f too large", ErrInvalidSpec, s.Radius)
	}
	return nil
}

// Body is a live body owned by exactly one World.
type Body struct {
	id    uint64
	spec  BodySpec
	body  *cp.Body
	shape *cp.Shape
	world *World
}

func (b *Body) ID() uint64     { return b.id }
func (b *Body) Kind() Kind     { return b.spec.Kind }
func (b *Body) Spec() BodySpec { return b.spec }
func (b *Body) Static() bool   { return b.spec.Static }
func (b *Body) Origin() uint64 { return b.spec.Origin }
func (b *Body) Group() uint    { return b.spec.Group }

// Live reports whether the body is still registered in a world.
func (b *Body) Live() bool { return b.world != nil }

// Relabel changes the bookkeeping tags of a body without touching physics.
func (b *Body) Relabel(kind Kind, origin uint64) {
	b.spec.Kind = kind
	b.spec.Origin = origin
}

func (b *Body) Position() cp.Vector {
	if b.spec.Static || b.body == nil {
		return cp.Vector{X: b.spec.X, Y: b.spec.Y}
	}
	return b.body.Position()
}

func (b *Body) Velocity() cp.Vector {
	if b.spec.Static || b.body == nil {
		return cp.Vector{}
	}
	return b.body.Velocity()
}

func (b *Body) Angle() float64 {
	if b.spec.Static || b.body == nil {
		return 0
	}
	return b.body.Angle()
}

func (b *Body) Mass() float64 {
	if b.spec.Static {
		return math.Inf(1)
	}
	return b.body.Mass()
}

// KineticEnergy returns the translational kinetic energy; static bodies have none.
func (b *Body) KineticEnergy() float64 {
	if b.spec.Static {
		return 0
	}
	v := b.Velocity()
	return 0.5 * b.Mass() * (v.X*v.X + v.Y*v.Y)
}

// LocalToWorld maps a body-local offset to world space.
func (b *Body) LocalToWorld(p cp.Vector) cp.Vector {
	return b.Position().Add(rotate(p, b.Angle()))
}

func (b *Body) valid() bool {
	p, v := b.Position(), b.Velocity()
	for _, f := range []float64{p.X, p.Y, v.X, v.Y, b.Angle()} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func rotate(p cp.Vector, angle float64) cp.Vector {
	if angle == 0 {
		return p
	}
	s, c := math.Sincos(angle)
	return cp.Vector{X: p.X*c - p.Y*s, Y: p.X*s + p.Y*c}
}
