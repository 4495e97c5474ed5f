package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/scenelab/internal/sandbox"
)

const (
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer prints a session's surface to a plain terminal during a
// headless run, at most frameRate times per second of wall time.
type LiveRenderer struct {
	out       io.Writer
	frameRate int
	lastFrame time.Time
	drawn     int
}

func NewLiveRenderer(out io.Writer, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{out: out, frameRate: frameRate}
}

// Draw renders the session unless the previous draw was too recent. It
// reports whether anything was written.
func (r *LiveRenderer) Draw(s *sandbox.Session, frame int, t float64) bool {
	if !r.lastFrame.IsZero() && time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return false
	}
	r.lastFrame = time.Now()
	r.render(s, frame, t)
	r.drawn++
	return true
}

func (r *LiveRenderer) render(s *sandbox.Session, frame int, t float64) {
	canvas := s.Viewport().Surface().Canvas()
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  frame=%d  t=%.2fs  %s\n", s.Snapshot().Name, frame, t, s.Clock().State()))
	b.WriteString("  " + strings.Repeat("-", canvas.Cols) + "\n")
	for _, row := range strings.Split(canvas.Plain(), "\n") {
		b.WriteString("  " + row + "\n")
	}
	b.WriteString("  " + strings.Repeat("-", canvas.Cols) + "\n")
	b.WriteString(fmt.Sprintf("  bodies=%d removed=%d\n", s.World().Count(), s.Removed()))
	fmt.Fprint(r.out, b.String())
}

// Drawn counts frames actually written.
func (r *LiveRenderer) Drawn() int { return r.drawn }

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
