// Package chain builds rope composites: grids of linked bodies hung from a
// fixed point, plus the static plank they swing above.
package chain

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"

	"github.com/san-kum/scenelab/internal/world"
)

// Composite groups the bodies and constraints of one rope.
type Composite struct {
	Label       string
	Group       uint
	Bodies      []*world.Body
	Constraints []*world.Constraint
}

// Factory returns the body for grid cell (col, row) whose bounding box has
// its top-left corner at (x, y) once laid out. Specs are created around
// (x, y) and shifted by half their extent, so factories may offset them.
type Factory func(x, y float64, col, row int) world.BodySpec

// LinkOptions configures the constraints Chain creates.
type LinkOptions struct {
	Stiffness float64
	Length    float64
}

// Stack lays out cols×rows bodies row-major starting at (x, y). Each body is
// placed by its bounding box; the next column starts colGap past its right
// edge and each row starts rowGap below the tallest body of the last one.
func Stack(w *world.World, label string, x, y float64, cols, rows int, colGap, rowGap float64, group uint, factory Factory) (*Composite, error) {
	c := &Composite{Label: label, Group: group}
	cy := y
	for row := 0; row < rows; row++ {
		cx := x
		maxHeight := 0.0
		for col := 0; col < cols; col++ {
			spec := factory(cx, cy, col, row)
			bw, bh := spec.Extent()
			spec.X += bw / 2
			spec.Y += bh / 2
			spec.Kind = world.KindLink
			spec.Group = group
			b, err := w.AddBody(spec)
			if err != nil {
				return c, fmt.Errorf("%s [%d,%d]: %w", label, col, row, err)
			}
			c.Bodies = append(c.Bodies, b)
			if bh > maxHeight {
				maxHeight = bh
			}
			cx = spec.X + bw/2 + colGap
		}
		cy += maxHeight + rowGap
	}
	return c, nil
}

// Chain links each body to the next. Offsets are fractions of the body
// extents: (xA, yA) on the earlier body, (xB, yB) on the later one.
func (c *Composite) Chain(w *world.World, xA, yA, xB, yB float64, opts LinkOptions) error {
	for i := 1; i < len(c.Bodies); i++ {
		a, b := c.Bodies[i-1], c.Bodies[i]
		aw, ah := a.Spec().Extent()
		bw, bh := b.Spec().Extent()
		con, err := w.AddConstraint(world.ConstraintSpec{
			A:         a,
			B:         b,
			PointA:    cp.Vector{X: xA * aw, Y: yA * ah},
			PointB:    cp.Vector{X: xB * bw, Y: yB * bh},
			Stiffness: opts.Stiffness,
			Length:    opts.Length,
		})
		if err != nil {
			return fmt.Errorf("%s link %d: %w", c.Label, i, err)
		}
		c.Constraints = append(c.Constraints, con)
	}
	return nil
}

// Anchor pins the first body's offset point to where the body's center is
// now. The rest length is the distance at creation.
func (c *Composite) Anchor(w *world.World, offset cp.Vector, stiffness float64) error {
	if len(c.Bodies) == 0 {
		return nil
	}
	first := c.Bodies[0]
	con, err := w.AddConstraint(world.ConstraintSpec{
		B:         first,
		PointA:    first.Position(),
		PointB:    offset,
		Stiffness: stiffness,
		Length:    -1,
	})
	if err != nil {
		return fmt.Errorf("%s anchor: %w", c.Label, err)
	}
	c.Constraints = append(c.Constraints, con)
	return nil
}

var linkMaterial = world.Material{Restitution: 0, Friction: 0.1}

// Attach adds the three demonstration ropes and the ground plank. Each rope
// is built inside its own guard so one failure leaves the others in place.
func Attach(w *world.World) ([]*Composite, error) {
	var (
		out  []*Composite
		errs []error
	)
	for _, r := range ropes {
		var c *Composite
		err := world.Guard(r.label, func() error {
			var err error
			c, err = r.build(w, w.NextGroup())
			return err
		})
		if c != nil {
			out = append(out, c)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	err := world.Guard("plank", func() error {
		_, err := w.AddBody(Plank())
		return err
	})
	if err != nil {
		errs = append(errs, err)
	}
	return out, errors.Join(errs...)
}

// Plank is the static ground beam under the ropes.
func Plank() world.BodySpec {
	return world.BodySpec{
		Kind: world.KindPlank, Geometry: world.GeomBox,
		X: 400, Y: 600, Width: 1200, Height: 50.5, Static: true,
	}
}

type rope struct {
	label string
	build func(w *world.World, group uint) (*Composite, error)
}

var ropes = []rope{
	{"rope A", func(w *world.World, group uint) (*Composite, error) {
		c, err := Stack(w, "rope A", 100, 50, 8, 2, 10, 10, group, func(x, y float64, _, _ int) world.BodySpec {
			return world.BodySpec{Geometry: world.GeomBox, X: x, Y: y, Width: 50, Height: 20, Material: linkMaterial}
		})
		if err != nil {
			return c, err
		}
		if err := c.Chain(w, 0.5, 0, -0.5, 0, LinkOptions{Stiffness: 0.8, Length: 2}); err != nil {
			return c, err
		}
		return c, c.Anchor(w, cp.Vector{X: -25}, 0.5)
	}},
	{"rope B", func(w *world.World, group uint) (*Composite, error) {
		c, err := Stack(w, "rope B", 350, 50, 10, 1, 10, 10, group, func(x, y float64, _, _ int) world.BodySpec {
			return world.BodySpec{Geometry: world.GeomCircle, X: x, Y: y, Radius: 20, Material: linkMaterial}
		})
		if err != nil {
			return c, err
		}
		if err := c.Chain(w, 0.5, 0, -0.5, 0, LinkOptions{Stiffness: 0.8, Length: 2}); err != nil {
			return c, err
		}
		return c, c.Anchor(w, cp.Vector{X: -20}, 0.5)
	}},
	{"rope C", func(w *world.World, group uint) (*Composite, error) {
		c, err := Stack(w, "rope C", 600, 50, 13, 1, 10, 10, group, func(x, y float64, _, _ int) world.BodySpec {
			return world.BodySpec{Geometry: world.GeomBox, X: x - 20, Y: y, Width: 50, Height: 20, Radius: 5, Material: linkMaterial}
		})
		if err != nil {
			return c, err
		}
		if err := c.Chain(w, 0.3, 0, -0.3, 0, LinkOptions{Stiffness: 1, Length: 0}); err != nil {
			return c, err
		}
		return c, c.Anchor(w, cp.Vector{X: -20}, 0.5)
	}},
}
