// Package builder turns a scene's shape list into bodies inside a world.
package builder

import (
	"errors"
	"fmt"

	"github.com/san-kum/scenelab/internal/scene"
	"github.com/san-kum/scenelab/internal/world"
)

// WallThickness is the depth of the four container walls.
const WallThickness = 20.0

// Material is shared by scene shapes and spawned bodies.
var Material = world.Material{Mass: 10, Restitution: 0.9, Friction: 0.005}

// Walls returns the four static walls just outside a width×height container,
// in the order top, bottom, left, right.
func Walls(width, height float64) []world.BodySpec {
	t := WallThickness
	wall := func(x, y, w, h float64) world.BodySpec {
		return world.BodySpec{
			Kind: world.KindWall, Geometry: world.GeomBox,
			X: x, Y: y, Width: w, Height: h, Static: true,
		}
	}
	return []world.BodySpec{
		wall(width/2, -t/2, width, t),
		wall(width/2, height+t/2, width, t),
		wall(-t/2, height/2, t, height),
		wall(width+t/2, height/2, t, height),
	}
}

// ShapeSpec maps one scene shape to a dynamic body.
func ShapeSpec(sh scene.Shape) (world.BodySpec, error) {
	spec := world.BodySpec{
		Kind:     world.KindShape,
		X:        sh.X,
		Y:        sh.Y,
		Material: Material,
		Origin:   sh.ID,
	}
	switch sh.Kind {
	case scene.KindCircle:
		spec.Geometry = world.GeomCircle
		spec.Radius = sh.Radius
	case scene.KindRectangle:
		spec.Geometry = world.GeomBox
		spec.Width = sh.Width
		spec.Height = sh.Height
	default:
		return world.BodySpec{}, fmt.Errorf("%w: %d", scene.ErrUnknownKind, int(sh.Kind))
	}
	return spec, nil
}

// Build adds walls and one body per shape. A shape that fails is skipped
// and reported; the rest are still built. Engine panics come back as a
// *world.BuildError.
func Build(w *world.World, walls []world.BodySpec, shapes []scene.Shape) error {
	var errs []error
	err := world.Guard("walls", func() error {
		for _, spec := range walls {
			if _, err := w.AddBody(spec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	for i, sh := range shapes {
		err := world.Guard(fmt.Sprintf("shape %d", i), func() error {
			spec, err := ShapeSpec(sh)
			if err != nil {
				return err
			}
			_, err = w.AddBody(spec)
			return err
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
