// Package export writes rendered frames to files outside the terminal.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/scenelab/internal/viewport"
)

var svgColors = map[viewport.Tint]string{
	viewport.TintNone:       "#cccccc",
	viewport.TintWall:       "#444444",
	viewport.TintShape:      "#0087ff",
	viewport.TintLink:       "#5fd7d7",
	viewport.TintPlank:      "#6c6c6c",
	viewport.TintSpawned:    "#ff87ff",
	viewport.TintConstraint: "#ffd700",
	viewport.TintGrabbed:    "#5fff00",
}

// CanvasToSVG draws every lit braille dot of canvas as a circle, scale
// pixels apart, coloured by its cell's tint.
func CanvasToSVG(canvas *viewport.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	if scale <= 0 {
		scale = 4
	}
	width := float64(canvas.DotsWide()) * scale
	height := float64(canvas.DotsHigh()) * scale

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	dotRadius := scale * 0.4
	// one group per tint keeps the file small
	groups := map[viewport.Tint]*strings.Builder{}
	order := []viewport.Tint{}
	for y := 0; y < canvas.DotsHigh(); y++ {
		for x := 0; x < canvas.DotsWide(); x++ {
			if !canvas.Lit(x, y) {
				continue
			}
			t := canvas.TintAt(x, y)
			g, ok := groups[t]
			if !ok {
				g = &strings.Builder{}
				groups[t] = g
				order = append(order, t)
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			g.WriteString(fmt.Sprintf("<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius))
		}
	}
	for _, t := range order {
		sb.WriteString(fmt.Sprintf("<g fill=%q>\n", svgColors[t]))
		sb.WriteString(groups[t].String())
		sb.WriteString("</g>\n")
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// WriteSVG writes CanvasToSVG(canvas, scale) to w.
func WriteSVG(w io.Writer, canvas *viewport.Canvas, scale float64) error {
	_, err := io.WriteString(w, CanvasToSVG(canvas, scale))
	return err
}
