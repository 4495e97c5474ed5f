// Package tui is the full-screen terminal front end and the plain live
// renderer used by headless runs.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/scenelab/internal/sandbox"
	"github.com/san-kum/scenelab/internal/scene"
	"github.com/san-kum/scenelab/internal/telemetry"
	"github.com/san-kum/scenelab/internal/viewport"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))

	canvasStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
)

const (
	sidebarWidth = 34
	historyLen   = 120
)

type Options struct {
	Store   *scene.Store
	Session sandbox.Options
	FPS     int
	// CellWidth and CellHeight map one terminal cell to container pixels.
	CellWidth, CellHeight int
	Logger                *log.Logger
}

// model is the bubbletea model: the scene list on the left, the live
// surface of the current scene on the right.
type model struct {
	store    *scene.Store
	opts     sandbox.Options
	host     *viewport.Host
	stage    *sandbox.Stage
	rec      *telemetry.Recorder
	cellW    int
	cellH    int
	frameDur time.Duration
	lastTick time.Time
	frame    int
	simTime  float64

	renaming  bool
	renameBuf string
	status    string
	err       error

	width  int
	height int
	logger *log.Logger
}

func newModel(opts Options) model {
	if opts.Store == nil {
		opts.Store = scene.NewDefaultStore(nil)
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = 8
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = 16
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	sopts := opts.Session
	sopts.Viewport.CellWidth, sopts.Viewport.CellHeight = opts.CellWidth, opts.CellHeight
	if sopts.Logger == nil {
		sopts.Logger = opts.Logger
	}
	return model{
		store:    opts.Store,
		opts:     sopts,
		rec:      telemetry.NewRecorder(historyLen, telemetry.DefaultMetrics()...),
		cellW:    opts.CellWidth,
		cellH:    opts.CellHeight,
		frameDur: time.Second / time.Duration(opts.FPS),
		width:    80,
		height:   24,
		logger:   opts.Logger,
	}
}

type tickMsg time.Time

func (m model) tick() tea.Cmd {
	return tea.Tick(m.frameDur, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return m.tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tickMsg:
		m.advance(time.Time(msg))
		return m, m.tick()
	}
	return m, nil
}

// canvasSize is the canvas area in cells, inside the border.
func (m model) canvasSize() (cols, rows int) {
	cols = m.width - sidebarWidth - 2
	rows = m.height - 3
	return max(cols, 0), max(rows, 0)
}

func (m *model) resize() {
	cols, rows := m.canvasSize()
	w, h := float64(cols*m.cellW), float64(rows*m.cellH)
	if m.stage == nil {
		m.host = viewport.NewHost(w, h)
		stage, err := sandbox.NewStage(m.host, m.store, m.opts)
		if err != nil {
			m.fail(err)
			return
		}
		m.stage = stage
		m.logger.Info("stage ready", "width", w, "height", h)
		return
	}
	if err := m.stage.Resize(w, h); err != nil {
		m.fail(err)
	}
	m.resetRun()
}

func (m *model) fail(err error) {
	m.err = err
	m.status = err.Error()
	m.logger.Error("tui", "err", err)
}

func (m *model) resetRun() {
	m.rec.Reset()
	m.frame, m.simTime = 0, 0
}

func (m *model) advance(now time.Time) {
	elapsed := m.frameDur
	if !m.lastTick.IsZero() {
		elapsed = now.Sub(m.lastTick)
	}
	m.lastTick = now
	if m.stage == nil || m.stage.Session() == nil {
		return
	}
	s := m.stage.Session()
	n, err := s.Frame(elapsed)
	if err != nil {
		m.fail(err)
		return
	}
	if n == 0 {
		return
	}
	m.simTime += float64(n) * s.Clock().Dt()
	m.rec.Observe(s.World(), m.frame, m.simTime)
	m.frame++
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.renaming {
		return m.renameKey(msg), nil
	}
	cur, hasCur := m.store.Current()
	switch msg.String() {
	case "q", "ctrl+c":
		if m.stage != nil {
			if err := m.stage.Close(); err != nil {
				m.logger.Error("close stage", "err", err)
			}
		}
		return m, tea.Quit
	case "n":
		sc := m.store.Add(fmt.Sprintf("Experiment %d", m.store.Len()+1))
		m.selectScene(sc.ID)
	case "d":
		if m.store.Len() <= 1 || !hasCur {
			m.status = "cannot delete the last scene"
			return m, nil
		}
		if err := m.store.Remove(cur.ID); err != nil {
			m.fail(err)
		}
		m.resetRun()
	case "e":
		if hasCur {
			m.renaming, m.renameBuf = true, cur.Name
		}
	case "down", "j":
		m.moveCursor(1)
	case "up", "k":
		m.moveCursor(-1)
	case "c", "b":
		if !hasCur {
			return m, nil
		}
		sh := scene.Circle(350, 100, 25)
		if msg.String() == "b" {
			sh = scene.Rectangle(350, 100, 60, 60)
		}
		if _, err := m.store.AddShape(cur.ID, sh); err != nil {
			m.fail(err)
			return m, nil
		}
		m.status = fmt.Sprintf("added %s, r to rebuild", sh.Kind)
	case "r":
		if m.stage != nil {
			if err := m.stage.Reload(); err != nil {
				m.fail(err)
			}
		}
		m.resetRun()
		m.status = ""
	default:
		if m.host != nil {
			m.host.Dispatch(viewport.Event{Type: viewport.KeyPress, Key: msg.String(), At: time.Now()})
		}
	}
	return m, nil
}

func (m *model) moveCursor(delta int) {
	scenes := m.store.Scenes()
	if len(scenes) == 0 {
		return
	}
	cur, _ := m.store.Current()
	idx := 0
	for i, sc := range scenes {
		if sc.ID == cur.ID {
			idx = i
		}
	}
	idx = (idx + delta + len(scenes)) % len(scenes)
	m.selectScene(scenes[idx].ID)
}

func (m *model) selectScene(id uint64) {
	if err := m.store.Select(id); err != nil {
		m.fail(err)
		return
	}
	m.resetRun()
}

func (m model) renameKey(msg tea.KeyMsg) model {
	switch msg.Type {
	case tea.KeyEnter:
		if cur, ok := m.store.Current(); ok && strings.TrimSpace(m.renameBuf) != "" {
			if err := m.store.Rename(cur.ID, strings.TrimSpace(m.renameBuf)); err != nil {
				m.fail(err)
			}
		}
		m.renaming, m.renameBuf = false, ""
	case tea.KeyEsc:
		m.renaming, m.renameBuf = false, ""
	case tea.KeyBackspace:
		if r := []rune(m.renameBuf); len(r) > 0 {
			m.renameBuf = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.renameBuf += " "
	case tea.KeyRunes:
		m.renameBuf += string(msg.Runes)
	}
	return m
}

// handleMouse maps a terminal cell to the centre of its pixel block in the
// container and forwards it to the host.
func (m *model) handleMouse(msg tea.MouseMsg) {
	if m.host == nil {
		return
	}
	// one cell of border around the canvas
	col, row := msg.X-sidebarWidth-1, msg.Y-1
	x := (float64(col) + 0.5) * float64(m.cellW)
	y := (float64(row) + 0.5) * float64(m.cellH)
	ev := viewport.Event{X: x, Y: y, At: time.Now()}
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		ev.Type = viewport.PointerDown
	case msg.Action == tea.MouseActionRelease:
		ev.Type = viewport.PointerUp
	case msg.Action == tea.MouseActionMotion:
		ev.Type = viewport.PointerMove
	default:
		return
	}
	m.host.Dispatch(ev)
}

func (m model) View() string {
	cols, rows := m.canvasSize()
	canvas := strings.Repeat(strings.Repeat(" ", cols)+"\n", max(rows-1, 0)) + strings.Repeat(" ", cols)
	if m.host != nil {
		if s := m.host.Surface(); s != nil {
			canvas = s.String()
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), canvasStyle.Render(canvas))
}

func (m model) viewSidebar() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + cyan.Render("s c e n e l a b") + "\n")
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", sidebarWidth-4)) + "\n\n")

	cur, _ := m.store.Current()
	for _, sc := range m.store.Scenes() {
		name := sc.Name
		if m.renaming && sc.ID == cur.ID {
			name = m.renameBuf + "▋"
		}
		label := fmt.Sprintf("%-20s", truncate(name, 20))
		count := fmt.Sprintf("%2d", len(sc.Shapes))
		if sc.ID == cur.ID {
			b.WriteString("  " + cyan.Render("▸ ") + white.Render(label) + magenta.Render(count) + "\n")
		} else {
			b.WriteString("    " + dim.Render(label) + dimmer.Render(count) + "\n")
		}
	}
	b.WriteString("\n")

	if m.stage != nil && m.stage.Session() != nil {
		s := m.stage.Session()
		icon, state := yellow.Render("○"), yellow.Render("stopped")
		if s.Clock().Running() {
			icon, state = green.Render("●"), green.Render("running")
		}
		b.WriteString(fmt.Sprintf("  %s %s  %s\n", icon, state, dim.Render(s.Controller().Mode().String())))
		b.WriteString(fmt.Sprintf("  %s %s  %s %s\n",
			dim.Render("bodies"), white.Render(fmt.Sprintf("%d", s.World().Count())),
			dim.Render("spawned"), white.Render(fmt.Sprintf("%d", len(s.Controller().Spawned())))))
		b.WriteString(fmt.Sprintf("  %s %s\n\n", dim.Render("t"), white.Render(fmt.Sprintf("%.2fs", m.simTime))))
	}

	if energy := m.rec.Energy(); len(energy) > 1 {
		chart := asciigraph.Plot(energy, asciigraph.Height(4), asciigraph.Width(sidebarWidth-12), asciigraph.Caption("Energy"))
		for _, line := range strings.Split(chart, "\n") {
			b.WriteString("  " + cyan.Render(line) + "\n")
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("  " + yellow.Render(truncate(m.status, sidebarWidth-4)) + "\n\n")
	}
	hints := []string{
		"space run/stop  m spawn/drag",
		"p commit  x delete  r reload",
		"n new  d del  e rename  j/k",
		"c circle  b box  q quit",
	}
	for _, h := range hints {
		b.WriteString(dim.Render("  "+h) + "\n")
	}
	return lipgloss.NewStyle().Width(sidebarWidth).Render(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the full-screen program and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if m, ok := final.(model); ok && m.stage != nil {
		m.stage.Close()
	}
	return err
}
