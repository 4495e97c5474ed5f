// Package interact turns pointer and key events into world mutations:
// spawning bodies under the pointer, dragging existing ones, and reporting
// committed or deleted bodies back to the scene.
package interact

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"

	"github.com/san-kum/scenelab/internal/builder"
	"github.com/san-kum/scenelab/internal/scene"
	"github.com/san-kum/scenelab/internal/viewport"
	"github.com/san-kum/scenelab/internal/world"
)

type Mode int

const (
	ModeSpawn Mode = iota
	ModeDrag
)

func (m Mode) String() string {
	if m == ModeDrag {
		return "drag"
	}
	return "spawn"
}

// ShapeSink receives shape edits produced by interaction. *scene.Store
// satisfies it.
type ShapeSink interface {
	AddShape(sceneID uint64, sh scene.Shape) (scene.Shape, error)
	RemoveShape(sceneID, shapeID uint64) error
}

// Projector maps container pixels to world coordinates.
type Projector interface {
	ScreenToWorld(x, y float64) cp.Vector
}

type Keys struct {
	Mode   string
	Commit string
	Delete string
}

var DefaultKeys = Keys{Mode: "m", Commit: "p", Delete: "x"}

// SpawnOptions sizes spawned bodies. A size is drawn uniformly from
// [MinSize, MaxSize); circles use it as the radius and rectangles as half
// the side. Shape is "circle", "rectangle" or "mixed".
type SpawnOptions struct {
	MinSize float64
	MaxSize float64
	Shape   string
}

var DefaultSpawn = SpawnOptions{MinSize: 10, MaxSize: 40, Shape: "circle"}

const DefaultDragStiffness = 0.2

type Options struct {
	SceneID       uint64
	Keys          Keys
	Spawn         SpawnOptions
	DragStiffness float64
	Sink          ShapeSink
	Rand          *rand.Rand
	Logger        *log.Logger
}

type Controller struct {
	w       *world.World
	proj    Projector
	opts    Options
	pointer *world.Pointer
	mode    Mode
	armed   bool
	spawned []*world.Body
	rng     *rand.Rand
	logger  *log.Logger
}

func New(w *world.World, proj Projector, opts Options) *Controller {
	if opts.Keys == (Keys{}) {
		opts.Keys = DefaultKeys
	}
	if opts.Spawn.MaxSize <= opts.Spawn.MinSize || opts.Spawn.MinSize <= 0 {
		shape := opts.Spawn.Shape
		opts.Spawn = DefaultSpawn
		if shape != "" {
			opts.Spawn.Shape = shape
		}
	}
	if opts.DragStiffness <= 0 {
		opts.DragStiffness = DefaultDragStiffness
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Controller{
		w:       w,
		proj:    proj,
		opts:    opts,
		pointer: w.NewPointer(opts.DragStiffness),
		rng:     opts.Rand,
		logger:  opts.Logger,
	}
}

// Attach registers the controller's handlers on h. The returned func
// removes all of them.
func (c *Controller) Attach(h *viewport.Host) func() {
	offs := []func(){
		h.Listen(viewport.PointerDown, func(ev viewport.Event) { c.PointerDown(ev.X, ev.Y) }),
		h.Listen(viewport.PointerMove, func(ev viewport.Event) { c.PointerMove(ev.X, ev.Y) }),
		h.Listen(viewport.PointerUp, func(ev viewport.Event) { c.PointerUp(ev.X, ev.Y) }),
		h.Listen(viewport.KeyPress, func(ev viewport.Event) { c.Key(ev.Key) }),
	}
	return func() {
		for _, off := range offs {
			off()
		}
		c.pointer.Release()
		c.armed = false
	}
}

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) SetMode(m Mode) {
	if m == c.mode {
		return
	}
	c.pointer.Release()
	c.armed = false
	c.mode = m
	c.logger.Debug("mode", "mode", m)
}

func (c *Controller) Armed() bool          { return c.armed }
func (c *Controller) Grabbed() *world.Body { return c.pointer.Grabbed() }

// Spawned returns the bodies spawned since the last commit, oldest first.
func (c *Controller) Spawned() []*world.Body {
	return append([]*world.Body(nil), c.spawned...)
}

func (c *Controller) PointerDown(x, y float64) {
	switch c.mode {
	case ModeSpawn:
		c.armed = true
	case ModeDrag:
		p := c.proj.ScreenToWorld(x, y)
		if b, ok := c.pointer.Grab(p.X, p.Y); ok {
			c.logger.Debug("grabbed", "body", b.ID(), "kind", b.Kind())
		}
	}
}

// PointerMove spawns one body per move while armed, or drags the grabbed
// body. Positions outside the container are not rejected.
func (c *Controller) PointerMove(x, y float64) {
	p := c.proj.ScreenToWorld(x, y)
	switch c.mode {
	case ModeSpawn:
		if c.armed {
			c.spawn(p)
		}
	case ModeDrag:
		c.pointer.Move(p.X, p.Y)
	}
}

func (c *Controller) PointerUp(x, y float64) {
	c.armed = false
	c.pointer.Release()
}

// Key handles the mode, commit and delete keys and reports whether the key
// was one of them.
func (c *Controller) Key(key string) bool {
	switch key {
	case c.opts.Keys.Mode:
		if c.mode == ModeSpawn {
			c.SetMode(ModeDrag)
		} else {
			c.SetMode(ModeSpawn)
		}
	case c.opts.Keys.Commit:
		if n, err := c.Commit(); err != nil {
			c.logger.Warn("commit failed", "committed", n, "err", err)
		}
	case c.opts.Keys.Delete:
		if err := c.DeleteGrabbed(); err != nil {
			c.logger.Warn("delete failed", "err", err)
		}
	default:
		return false
	}
	return true
}

func (c *Controller) spawn(at cp.Vector) {
	o := c.opts.Spawn
	size := o.MinSize + c.rng.Float64()*(o.MaxSize-o.MinSize)
	spec := world.BodySpec{Kind: world.KindSpawned, X: at.X, Y: at.Y, Material: builder.Material}
	if c.spawnKind() == scene.KindRectangle {
		spec.Geometry = world.GeomBox
		spec.Width, spec.Height = 2*size, 2*size
	} else {
		spec.Geometry = world.GeomCircle
		spec.Radius = size
	}
	b, err := c.w.AddBody(spec)
	if err != nil {
		c.logger.Warn("spawn failed", "x", at.X, "y", at.Y, "err", err)
		return
	}
	c.spawned = append(c.spawned, b)
}

func (c *Controller) spawnKind() scene.Kind {
	switch c.opts.Spawn.Shape {
	case "mixed":
		if c.rng.Intn(2) == 0 {
			return scene.KindCircle
		}
		return scene.KindRectangle
	default:
		k, err := scene.ParseKind(c.opts.Spawn.Shape)
		if err != nil {
			return scene.KindCircle
		}
		return k
	}
}

// Commit sends every live spawned body to the sink as a shape at its
// current position. Committed bodies are relabeled as scene shapes and
// forgotten by the controller. It returns how many were committed.
func (c *Controller) Commit() (int, error) {
	if c.opts.Sink == nil {
		return 0, nil
	}
	c.Settle()
	var errs []error
	n := 0
	for _, b := range c.spawned {
		sh, err := c.opts.Sink.AddShape(c.opts.SceneID, ShapeOf(b))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.Relabel(world.KindShape, sh.ID)
		n++
	}
	c.spawned = nil
	c.logger.Info("committed spawned bodies", "count", n)
	return n, errors.Join(errs...)
}

// DeleteGrabbed removes the grabbed body from the world. A body generated
// from a scene shape is also removed from the scene.
func (c *Controller) DeleteGrabbed() error {
	b := c.pointer.Grabbed()
	if c.mode != ModeDrag || b == nil {
		return nil
	}
	origin := b.Origin()
	if err := c.w.RemoveBody(b); err != nil {
		return fmt.Errorf("interact: delete body %d: %w", b.ID(), err)
	}
	c.Settle()
	if origin == 0 || c.opts.Sink == nil {
		return nil
	}
	return c.opts.Sink.RemoveShape(c.opts.SceneID, origin)
}

// Settle forgets spawned bodies that have left the world.
func (c *Controller) Settle() {
	kept := c.spawned[:0]
	for _, b := range c.spawned {
		if b.Live() {
			kept = append(kept, b)
		}
	}
	for i := len(kept); i < len(c.spawned); i++ {
		c.spawned[i] = nil
	}
	c.spawned = kept
}

// ShapeOf describes a body as a scene shape at its current position.
func ShapeOf(b *world.Body) scene.Shape {
	spec := b.Spec()
	p := b.Position()
	if spec.Geometry == world.GeomCircle {
		return scene.Circle(p.X, p.Y, spec.Radius)
	}
	return scene.Rectangle(p.X, p.Y, spec.Width, spec.Height)
}
