package scene

import (
	"fmt"
	"math"
)

type Kind int

const (
	KindCircle Kind = iota
	KindRectangle
)

func (k Kind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindRectangle:
		return "rectangle"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the names produced by Kind.String plus the short forms
// used in config files.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "circle", "ball":
		return KindCircle, nil
	case "rectangle", "rect", "box":
		return KindRectangle, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Shape is a Circle or a Rectangle. Only the fields of its Kind are meaningful.
// X and Y are the center in scene units.
type Shape struct {
	ID     uint64
	Kind   Kind
	X, Y   float64
	Radius float64
	Width  float64
	Height float64
}

func Circle(x, y, radius float64) Shape {
	return Shape{Kind: KindCircle, X: x, Y: y, Radius: radius}
}

func Rectangle(x, y, width, height float64) Shape {
	return Shape{Kind: KindRectangle, X: x, Y: y, Width: width, Height: height}
}

// Extent returns the bounding box size of the shape.
func (s Shape) Extent() (w, h float64) {
	switch s.Kind {
	case KindCircle:
		return 2 * s.Radius, 2 * s.Radius
	case KindRectangle:
		return s.Width, s.Height
	}
	return 0, 0
}

// Validate rejects unknown kinds, non-finite fields and sizes that are not
// positive, so every valid shape becomes exactly one body.
func (s Shape) Validate() error {
	var sizes []float64
	switch s.Kind {
	case KindCircle:
		sizes = []float64{s.Radius}
	case KindRectangle:
		sizes = []float64{s.Width, s.Height}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(s.Kind))
	}
	for _, v := range append([]float64{s.X, s.Y}, sizes...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidShape
		}
	}
	for _, v := range sizes {
		if v <= 0 {
			return fmt.Errorf("%w: size %v", ErrInvalidShape, v)
		}
	}
	return nil
}

func (s Shape) String() string {
	switch s.Kind {
	case KindCircle:
		return fmt.Sprintf("circle(%.0f,%.0f r=%.0f)", s.X, s.Y, s.Radius)
	case KindRectangle:
		return fmt.Sprintf("rect(%.0f,%.0f %.0fx%.0f)", s.X, s.Y, s.Width, s.Height)
	}
	return s.Kind.String()
}
