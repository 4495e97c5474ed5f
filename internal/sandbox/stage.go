package sandbox

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/scenelab/internal/scene"
	"github.com/san-kum/scenelab/internal/viewport"
)

// Stage keeps exactly one session alive for the store's current scene.
// Switching scenes closes the old session before the new one is built, so
// two worlds never coexist.
type Stage struct {
	host        *viewport.Host
	store       *scene.Store
	opts        Options
	session     *Session
	unsubscribe func()
	activations int
	lastErr     error
	logger      *log.Logger
}

// NewStage subscribes to store and activates its current scene, if any.
func NewStage(host *viewport.Host, store *scene.Store, opts Options) (*Stage, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
		opts.Logger = logger
	}
	if opts.Interact.Sink == nil {
		opts.Interact.Sink = store
	}
	st := &Stage{host: host, store: store, opts: opts, logger: logger}
	st.unsubscribe = store.Subscribe(st.onEvent)
	if err := st.Reload(); err != nil {
		st.unsubscribe()
		return nil, err
	}
	return st, nil
}

func (st *Stage) onEvent(ev scene.Event) {
	switch ev.Kind {
	case scene.CurrentChanged:
		if err := st.switchTo(ev.SceneID); err != nil {
			st.lastErr = err
			st.logger.Error("scene switch failed", "scene", ev.SceneID, "err", err)
		}
	case scene.ShapesChanged:
		// edits to the running scene take effect on the next rebuild
		st.logger.Debug("shapes changed", "scene", ev.SceneID)
	}
}

// Reload rebuilds the current scene from scratch.
func (st *Stage) Reload() error {
	cur, ok := st.store.Current()
	if !ok {
		return st.switchTo(0)
	}
	return st.switchTo(cur.ID)
}

// Resize changes the host container and rebuilds, since walls and the
// surface are sized on activation.
func (st *Stage) Resize(width, height float64) error {
	st.host.Resize(width, height)
	return st.Reload()
}

func (st *Stage) switchTo(id uint64) error {
	var errs []error
	if st.session != nil {
		errs = append(errs, st.session.Close())
		st.session = nil
	}
	if id == 0 {
		return errors.Join(errs...)
	}
	sc, ok := st.store.Get(id)
	if !ok {
		return errors.Join(append(errs, fmt.Errorf("%w: %d", scene.ErrSceneNotFound, id))...)
	}
	s, err := Activate(st.host, sc.Snapshot(), st.opts)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	st.session = s
	st.activations++
	return errors.Join(errs...)
}

// Frame advances the active session, if there is one.
func (st *Stage) Frame(elapsed time.Duration) (int, error) {
	if st.session == nil {
		return 0, nil
	}
	return st.session.Frame(elapsed)
}

// Session returns the active session or nil when the store is empty.
func (st *Stage) Session() *Session { return st.session }

func (st *Stage) Store() *scene.Store  { return st.store }
func (st *Stage) Host() *viewport.Host { return st.host }

// Activations counts sessions started over the stage's lifetime.
func (st *Stage) Activations() int { return st.activations }

// Err returns the last error raised by a store-driven switch.
func (st *Stage) Err() error { return st.lastErr }

// Close stops following the store and tears down the active session.
func (st *Stage) Close() error {
	if st.unsubscribe != nil {
		st.unsubscribe()
		st.unsubscribe = nil
	}
	if st.session == nil {
		return nil
	}
	err := st.session.Close()
	st.session = nil
	return err
}
