package viewport

import "github.com/jakecoffman/cp"

// Camera stretches the world rectangle Min..Max over a screen of the given
// pixel size. Aspect ratio is not preserved.
type Camera struct {
	Min, Max      cp.Vector
	Width, Height float64
}

// LookAt returns a camera framing min..max on a width×height screen.
func LookAt(min, max cp.Vector, width, height float64) Camera {
	return Camera{Min: min, Max: max, Width: width, Height: height}
}

func (c Camera) scale() (sx, sy float64) {
	dx, dy := c.Max.X-c.Min.X, c.Max.Y-c.Min.Y
	if dx == 0 || dy == 0 {
		return 0, 0
	}
	return c.Width / dx, c.Height / dy
}

func (c Camera) WorldToScreen(p cp.Vector) cp.Vector {
	sx, sy := c.scale()
	return cp.Vector{X: (p.X - c.Min.X) * sx, Y: (p.Y - c.Min.Y) * sy}
}

// ScreenToWorld inverts WorldToScreen. A zero-sized screen maps everything
// to Min.
func (c Camera) ScreenToWorld(p cp.Vector) cp.Vector {
	sx, sy := c.scale()
	if sx == 0 || sy == 0 {
		return c.Min
	}
	return cp.Vector{X: p.X/sx + c.Min.X, Y: p.Y/sy + c.Min.Y}
}
