// Package sandbox wires one scene into a running simulation on a host and
// tears it down again. A Session is one activation; a Stage follows the
// scene store and replaces its Session whenever the current scene changes.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"

	"github.com/san-kum/scenelab/internal/builder"
	"github.com/san-kum/scenelab/internal/chain"
	"github.com/san-kum/scenelab/internal/clock"
	"github.com/san-kum/scenelab/internal/config"
	"github.com/san-kum/scenelab/internal/interact"
	"github.com/san-kum/scenelab/internal/scene"
	"github.com/san-kum/scenelab/internal/viewport"
	"github.com/san-kum/scenelab/internal/world"
)

var ErrClosed = errors.New("sandbox: session closed")

// Options configures every component of a session. Interact.SceneID is
// overwritten with the snapshot's id.
type Options struct {
	World    world.Options
	Clock    clock.Options
	Viewport viewport.Options
	Interact interact.Options
	Logger   *log.Logger
}

// OptionsFromConfig maps a loaded config onto session options.
func OptionsFromConfig(cfg *config.Config, sink interact.ShapeSink, rng *rand.Rand, logger *log.Logger) Options {
	return Options{
		World: world.Options{
			Gravity:       cfg.Physics.Gravity,
			Iterations:    uint(cfg.Physics.Iterations),
			SpringRate:    cfg.Physics.SpringRate,
			SpringDamping: cfg.Physics.SpringDamping,
			Logger:        logger,
		},
		Clock: clock.Options{
			Dt:          cfg.Physics.Dt,
			ToggleKey:   cfg.Keys.Toggle,
			HoldTimeout: cfg.Keys.HoldTimeout,
			Logger:      logger,
		},
		Viewport: viewport.Options{
			CellWidth:      cfg.Viewport.CellWidth,
			CellHeight:     cfg.Viewport.CellHeight,
			LookMin:        cp.Vector{X: cfg.Camera.MinX, Y: cfg.Camera.MinY},
			LookMax:        cp.Vector{X: cfg.Camera.MaxX, Y: cfg.Camera.MaxY},
			GravityDivisor: cfg.Physics.GravityDivisor,
			Logger:         logger,
		},
		Interact: interact.Options{
			Keys: interact.Keys{Mode: cfg.Keys.Mode, Commit: cfg.Keys.Commit, Delete: cfg.Keys.Delete},
			Spawn: interact.SpawnOptions{
				MinSize: cfg.Spawn.MinSize,
				MaxSize: cfg.Spawn.MaxSize,
				Shape:   cfg.Spawn.Shape,
			},
			Sink:   sink,
			Rand:   rng,
			Logger: logger,
		},
		Logger: logger,
	}
}

// Session is one activated scene: a viewport mounted on the host, the world
// built from the scene, the interaction controller and the clock.
type Session struct {
	host     *viewport.Host
	snap     scene.Snapshot
	vp       *viewport.Viewport
	world    *world.World
	ctrl     *interact.Controller
	clock    *clock.Clock
	releases []release
	buildErr error
	frames   int
	removed  int
	closed   bool
	logger   *log.Logger
}

type release struct {
	name string
	fn   func()
}

// Activate builds snap on host. Every resource acquired here registers a
// release that Close runs in reverse order, so a failed activation leaves
// the host as it found it. Construction errors from the builder or the
// chains are logged and kept in BuildErr; the session still starts.
func Activate(host *viewport.Host, snap scene.Snapshot, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = logger.With("scene", snap.ID)
	s := &Session{host: host, snap: snap, logger: logger}

	s.vp = viewport.New(host, opts.Viewport)
	if err := s.vp.Activate(); err != nil {
		return nil, errors.Join(fmt.Errorf("sandbox: activate viewport: %w", err), s.Close())
	}
	s.world = world.New(opts.World)
	w, vp := s.world, s.vp
	s.onClose("viewport", func() { vp.Deactivate(w) })
	s.vp.ApplyGravity(s.world)

	if err := builder.Build(s.world, s.vp.Walls(), snap.Shapes); err != nil {
		logger.Error("scene build incomplete", "err", err)
		s.buildErr = err
	}
	if _, err := chain.Attach(s.world); err != nil {
		logger.Error("chains incomplete", "err", err)
		s.buildErr = errors.Join(s.buildErr, err)
	}

	iopts := opts.Interact
	iopts.SceneID = snap.ID
	if iopts.Logger == nil {
		iopts.Logger = logger
	}
	s.ctrl = interact.New(s.world, s.vp, iopts)
	s.onClose("controller", s.ctrl.Attach(host))

	copts := opts.Clock
	if copts.Logger == nil {
		copts.Logger = logger
	}
	s.clock = clock.New(copts)
	clk := s.clock
	s.onClose("clock press", host.Listen(viewport.KeyPress, func(ev viewport.Event) { clk.Press(ev.Key, ev.At) }))
	s.onClose("clock release", host.Listen(viewport.KeyRelease, func(ev viewport.Event) { clk.Release(ev.Key) }))

	s.vp.Render(s.world, nil)
	width, height := s.vp.Size()
	logger.Info("session active", "bodies", s.world.Count(), "shapes", len(snap.Shapes), "width", width, "height", height)
	return s, nil
}

func (s *Session) onClose(name string, fn func()) {
	s.releases = append(s.releases, release{name: name, fn: fn})
}

// Frame advances the clock by elapsed wall time and renders. Bodies that
// diverged during a step are removed and the frame carries on.
func (s *Session) Frame(elapsed time.Duration) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.clock.Advance(s.world, elapsed)
	return n, s.settle(err)
}

// Run plays frames of frameDur each without waiting on wall time. each, if
// set, sees every frame after it has been rendered.
func (s *Session) Run(ctx context.Context, frames int, frameDur time.Duration, each func(frame int) error) error {
	if s.closed {
		return ErrClosed
	}
	return s.clock.Run(ctx, s.world, frames, frameDur, func(frame int, stepErr error) error {
		if err := s.settle(stepErr); err != nil {
			return err
		}
		if each != nil {
			return each(frame)
		}
		return nil
	})
}

// settle finishes a frame: it drops diverged bodies, prunes the
// controller and renders. Errors other than step failures are returned.
func (s *Session) settle(err error) error {
	var stepErr *world.StepError
	switch {
	case errors.As(err, &stepErr):
		for _, b := range stepErr.Bodies {
			if rmErr := s.world.RemoveBody(b); rmErr == nil {
				s.removed++
			}
		}
		s.logger.Warn("step failed", "err", err, "removed", len(stepErr.Bodies))
	case err != nil:
		return err
	}
	s.ctrl.Settle()
	s.vp.Render(s.world, s.ctrl.Grabbed())
	s.frames++
	return nil
}

// Close runs the registered releases in reverse order. A release that
// panics is reported and the rest still run. Close is safe to call more
// than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for i := len(s.releases) - 1; i >= 0; i-- {
		r := s.releases[i]
		errs = append(errs, world.Guard("release "+r.name, func() error {
			r.fn()
			return nil
		}))
	}
	s.releases = nil
	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("session teardown", "err", err)
	} else {
		s.logger.Debug("session closed", "frames", s.frames)
	}
	return err
}

func (s *Session) SceneID() uint64                  { return s.snap.ID }
func (s *Session) Snapshot() scene.Snapshot         { return s.snap }
func (s *Session) World() *world.World              { return s.world }
func (s *Session) Clock() *clock.Clock              { return s.clock }
func (s *Session) Controller() *interact.Controller { return s.ctrl }
func (s *Session) Viewport() *viewport.Viewport     { return s.vp }
func (s *Session) Closed() bool                     { return s.closed }

// BuildErr is the joined construction error, or nil when everything was
// built.
func (s *Session) BuildErr() error { return s.buildErr }

// Removed counts bodies dropped after diverging.
func (s *Session) Removed() int { return s.removed }

func (s *Session) Frames() int { return s.frames }
