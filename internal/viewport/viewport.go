package viewport

import (
	"errors"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"

	"github.com/san-kum/scenelab/internal/builder"
	"github.com/san-kum/scenelab/internal/world"
)

var ErrActive = errors.New("viewport: already active")

const (
	DefaultGravityDivisor = 10.0
	circleSegments        = 16
)

var (
	DefaultLookMin = cp.Vector{X: 0, Y: 0}
	DefaultLookMax = cp.Vector{X: 700, Y: 600}
)

type Options struct {
	CellWidth, CellHeight int
	LookMin, LookMax      cp.Vector
	// GravityDivisor divides the world's base gravity on activation.
	GravityDivisor float64
	Logger         *log.Logger
}

// Viewport binds a world to a host container: it owns the render surface
// mounted on the host and the camera that frames the world on it.
type Viewport struct {
	host      *Host
	opts      Options
	surface   *Surface
	unmount   func()
	camera    Camera
	width     float64
	height    float64
	active    bool
	rendering bool
	logger    *log.Logger
}

func New(host *Host, opts Options) *Viewport {
	if opts.LookMin == opts.LookMax {
		opts.LookMin, opts.LookMax = DefaultLookMin, DefaultLookMax
	}
	if opts.GravityDivisor <= 0 {
		opts.GravityDivisor = DefaultGravityDivisor
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Viewport{host: host, opts: opts, logger: opts.Logger}
}

// Activate measures the container, mounts a surface of exactly that size
// and starts rendering.
func (v *Viewport) Activate() error {
	if v.active {
		return ErrActive
	}
	v.width, v.height = v.host.Measure()
	v.surface = NewSurface(v.width, v.height, v.opts.CellWidth, v.opts.CellHeight)
	v.unmount = v.host.Mount(v.surface)
	v.camera = LookAt(v.opts.LookMin, v.opts.LookMax, v.width, v.height)
	v.active, v.rendering = true, true
	v.logger.Debug("viewport active", "width", v.width, "height", v.height)
	return nil
}

// Size returns the container size measured on activation.
func (v *Viewport) Size() (width, height float64) { return v.width, v.height }

// Walls returns the container walls for the measured size.
func (v *Viewport) Walls() []world.BodySpec { return builder.Walls(v.width, v.height) }

func (v *Viewport) Camera() Camera        { return v.camera }
func (v *Viewport) Surface() *Surface     { return v.surface }
func (v *Viewport) Rendering() bool       { return v.rendering }
func (v *Viewport) Active() bool          { return v.active }
func (v *Viewport) GravityScale() float64 { return 1 / v.opts.GravityDivisor }

// ScreenToWorld maps a container pixel to world coordinates.
func (v *Viewport) ScreenToWorld(x, y float64) cp.Vector {
	return v.camera.ScreenToWorld(cp.Vector{X: x, Y: y})
}

// ApplyGravity scales the world's gravity down by the configured divisor.
func (v *Viewport) ApplyGravity(w *world.World) {
	w.SetGravityScale(v.GravityScale())
}

// Render redraws every body and constraint of w. highlight, if non-nil, is
// drawn with the grabbed tint. Rendering is a no-op once stopped.
func (v *Viewport) Render(w *world.World, highlight *world.Body) {
	if !v.rendering || w.Destroyed() {
		return
	}
	v.surface.Clear()
	for _, b := range w.Bodies() {
		t := tintFor(b.Kind())
		if b == highlight {
			t = TintGrabbed
		}
		v.drawBody(b, t)
	}
	for _, c := range w.Constraints() {
		a, b := c.Endpoints()
		v.line(a, b, TintConstraint)
	}
}

func (v *Viewport) drawBody(b *world.Body, t Tint) {
	spec := b.Spec()
	if spec.Static && (spec.Width <= 0 && spec.Radius <= 0) {
		return
	}
	if spec.Geometry == world.GeomCircle {
		prev := b.LocalToWorld(cp.Vector{X: spec.Radius})
		for i := 1; i <= circleSegments; i++ {
			s, c := math.Sincos(2 * math.Pi * float64(i) / circleSegments)
			next := b.LocalToWorld(cp.Vector{X: spec.Radius * c, Y: spec.Radius * s})
			v.line(prev, next, t)
			prev = next
		}
		// spoke shows rotation
		v.line(b.Position(), b.LocalToWorld(cp.Vector{X: spec.Radius}), t)
		return
	}
	hw, hh := spec.Width/2, spec.Height/2
	corners := [4]cp.Vector{
		b.LocalToWorld(cp.Vector{X: -hw, Y: -hh}),
		b.LocalToWorld(cp.Vector{X: hw, Y: -hh}),
		b.LocalToWorld(cp.Vector{X: hw, Y: hh}),
		b.LocalToWorld(cp.Vector{X: -hw, Y: hh}),
	}
	for i := range corners {
		v.line(corners[i], corners[(i+1)%4], t)
	}
}

func (v *Viewport) line(a, b cp.Vector, t Tint) {
	sa, sb := v.camera.WorldToScreen(a), v.camera.WorldToScreen(b)
	v.surface.Line(sa.X, sa.Y, sb.X, sb.Y, t)
}

// Deactivate stops rendering, clears and destroys w, detaches the surface
// and releases its textures. It is safe to call more than once.
func (v *Viewport) Deactivate(w *world.World) {
	v.rendering = false
	if w != nil {
		w.Clear()
		w.Destroy()
	}
	if !v.active {
		return
	}
	if v.unmount != nil {
		v.unmount()
		v.unmount = nil
	}
	v.surface.ReleaseTextures()
	v.active = false
	v.logger.Debug("viewport released")
}

func tintFor(k world.Kind) Tint {
	switch k {
	case world.KindWall:
		return TintWall
	case world.KindShape:
		return TintShape
	case world.KindLink:
		return TintLink
	case world.KindPlank:
		return TintPlank
	case world.KindSpawned:
		return TintSpawned
	}
	return TintNone
}
