package viewport

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Tint selects the texture a canvas cell is drawn with.
type Tint int

const (
	TintNone Tint = iota
	TintWall
	TintShape
	TintLink
	TintPlank
	TintSpawned
	TintConstraint
	TintGrabbed
)

var tintColors = map[Tint]lipgloss.Color{
	TintWall:       lipgloss.Color("238"),
	TintShape:      lipgloss.Color("33"),
	TintLink:       lipgloss.Color("86"),
	TintPlank:      lipgloss.Color("242"),
	TintSpawned:    lipgloss.Color("213"),
	TintConstraint: lipgloss.Color("220"),
	TintGrabbed:    lipgloss.Color("82"),
}

// Surface is a transparent render target of a fixed pixel size. Pixels map
// onto braille dots of a canvas whose cells are cellW×cellH pixels.
type Surface struct {
	Width, Height float64
	canvas        *Canvas
	textures      map[Tint]lipgloss.Style
}

func NewSurface(width, height float64, cellW, cellH int) *Surface {
	if cellW <= 0 {
		cellW = 8
	}
	if cellH <= 0 {
		cellH = 16
	}
	return &Surface{
		Width:    width,
		Height:   height,
		canvas:   NewCanvas(int(width)/cellW, int(height)/cellH),
		textures: make(map[Tint]lipgloss.Style),
	}
}

func (s *Surface) Canvas() *Canvas { return s.canvas }

func (s *Surface) Clear() { s.canvas.Clear() }

// dot maps a pixel to canvas dot coordinates.
func (s *Surface) dot(x, y float64) (int, int) {
	if s.Width <= 0 || s.Height <= 0 {
		return -1, -1
	}
	return int(x * float64(s.canvas.DotsWide()) / s.Width), int(y * float64(s.canvas.DotsHigh()) / s.Height)
}

// Line draws between two pixel positions. Segments entirely outside the
// surface are skipped.
func (s *Surface) Line(x0, y0, x1, y1 float64, t Tint) {
	if math.IsNaN(x0+y0+x1+y1) || math.IsInf(x0+y0+x1+y1, 0) {
		return
	}
	if (x0 < 0 && x1 < 0) || (y0 < 0 && y1 < 0) ||
		(x0 > s.Width && x1 > s.Width) || (y0 > s.Height && y1 > s.Height) {
		return
	}
	ax, ay := s.dot(clamp(x0, -s.Width, 2*s.Width), clamp(y0, -s.Height, 2*s.Height))
	bx, by := s.dot(clamp(x1, -s.Width, 2*s.Width), clamp(y1, -s.Height, 2*s.Height))
	s.canvas.Line(ax, ay, bx, by, t)
}

// Texture returns the cached style for t, creating it on first use.
func (s *Surface) Texture(t Tint) lipgloss.Style {
	if st, ok := s.textures[t]; ok {
		return st
	}
	st := lipgloss.NewStyle().Foreground(tintColors[t])
	s.textures[t] = st
	return st
}

func (s *Surface) Textures() int { return len(s.textures) }

// ReleaseTextures drops every cached style.
func (s *Surface) ReleaseTextures() {
	s.textures = make(map[Tint]lipgloss.Style)
}

// String renders the canvas with each cell styled by its tint. Runs of the
// same tint share one styled span.
func (s *Surface) String() string {
	c := s.canvas
	var b strings.Builder
	for i := 0; i < c.Rows; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for j := 1; j <= c.Cols; j++ {
			if j < c.Cols && c.tints[i][j] == c.tints[i][start] {
				continue
			}
			run := string(c.grid[i][start:j])
			if t := c.tints[i][start]; t == TintNone {
				b.WriteString(run)
			} else {
				b.WriteString(s.Texture(t).Render(run))
			}
			start = j
		}
	}
	return b.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
