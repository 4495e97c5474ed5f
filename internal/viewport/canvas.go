package viewport

import (
	"strings"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells addressed in dots. Every cell also
// carries the tint of the last dot drawn into it.
type Canvas struct {
	Cols, Rows int
	grid       [][]rune
	tints      [][]Tint
}

func NewCanvas(cols, rows int) *Canvas {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	c := &Canvas{Cols: cols, Rows: rows, grid: make([][]rune, rows), tints: make([][]Tint, rows)}
	for i := range c.grid {
		c.grid[i] = make([]rune, cols)
		c.tints[i] = make([]Tint, cols)
	}
	c.Clear()
	return c
}

// DotsWide and DotsHigh give the canvas size in dots.
func (c *Canvas) DotsWide() int { return c.Cols * 2 }
func (c *Canvas) DotsHigh() int { return c.Rows * 4 }

// Set lights the dot at (x, y). Out of range dots are dropped.
func (c *Canvas) Set(x, y int, t Tint) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Cols || row >= c.Rows {
		return
	}
	c.grid[row][col] |= dotBits[y%4][x%2]
	c.tints[row][col] = t
}

// Lit reports whether the dot at (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Cols || y/4 >= c.Rows {
		return false
	}
	return c.grid[y/4][x/2]&dotBits[y%4][x%2] != 0
}

// TintAt returns the tint of the cell holding dot (x, y).
func (c *Canvas) TintAt(x, y int) Tint {
	if x < 0 || y < 0 || x/2 >= c.Cols || y/4 >= c.Rows {
		return TintNone
	}
	return c.tints[y/4][x/2]
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = blank
			c.tints[i][j] = TintNone
		}
	}
}

// Line draws with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int, t Tint) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	// lines far off canvas are clipped by Set; bound the walk
	for n := 0; n <= dx+dy; n++ {
		c.Set(x0, y0, t)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Plain renders the canvas without color.
func (c *Canvas) Plain() string {
	var b strings.Builder
	for i, row := range c.grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
