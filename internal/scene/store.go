package scene

import (
	"fmt"
	"math/rand"
)

// Scene is a named, ordered shape list. Ordering matters for display only.
type Scene struct {
	ID     uint64
	Name   string
	Shapes []Shape
}

// Clone returns a deep copy safe to hand to readers.
func (s Scene) Clone() Scene {
	c := s
	c.Shapes = make([]Shape, len(s.Shapes))
	copy(c.Shapes, s.Shapes)
	return c
}

// Snapshot is the part of a scene a simulation is built from.
type Snapshot struct {
	ID     uint64
	Name   string
	Shapes []Shape
}

func (s Scene) Snapshot() Snapshot {
	c := s.Clone()
	return Snapshot{ID: c.ID, Name: c.Name, Shapes: c.Shapes}
}

type EventKind int

const (
	SceneAdded EventKind = iota
	SceneRemoved
	SceneRenamed
	CurrentChanged
	ShapesChanged
)

func (k EventKind) String() string {
	switch k {
	case SceneAdded:
		return "scene-added"
	case SceneRemoved:
		return "scene-removed"
	case SceneRenamed:
		return "scene-renamed"
	case CurrentChanged:
		return "current-changed"
	case ShapesChanged:
		return "shapes-changed"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event describes one store mutation. SceneID is the scene that changed;
// for CurrentChanged it is the new current scene (0 when none is left).
type Event struct {
	Kind    EventKind
	SceneID uint64
}

type subscriber struct {
	id uint64
	fn func(Event)
}

type Store struct {
	scenes    []*Scene
	current   *Scene
	nextScene uint64
	nextShape uint64
	nextSub   uint64
	subs      []subscriber
	rng       *rand.Rand
}

// NewStore returns an empty store. rng drives the jitter of default shapes;
// nil uses a time-independent source seeded with 1.
func NewStore(rng *rand.Rand) *Store {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Store{rng: rng}
}

// NewDefaultStore returns a store with two fresh scenes, the first selected.
func NewDefaultStore(rng *rand.Rand) *Store {
	s := NewStore(rng)
	s.Add("Experiment 1")
	s.Add("Experiment 2")
	return s
}

// DefaultShapes returns the two shapes every new scene starts with.
func DefaultShapes(rng *rand.Rand) []Shape {
	return []Shape{
		Rectangle(rng.Float64()*100+100, 50, 100, 100),
		Circle(100, 100, 50),
	}
}

// Add creates a scene with the default shapes. The first scene added to an
// empty store becomes current.
func (s *Store) Add(name string) Scene {
	return s.AddScene(name, DefaultShapes(s.rng))
}

// AddScene creates a scene with exactly the given shapes.
func (s *Store) AddScene(name string, shapes []Shape) Scene {
	s.nextScene++
	sc := &Scene{ID: s.nextScene, Name: name, Shapes: make([]Shape, 0, len(shapes))}
	for _, sh := range shapes {
		sc.Shapes = append(sc.Shapes, s.stamp(sh))
	}
	s.scenes = append(s.scenes, sc)
	s.emit(Event{Kind: SceneAdded, SceneID: sc.ID})
	if s.current == nil {
		s.current = sc
		s.emit(Event{Kind: CurrentChanged, SceneID: sc.ID})
	}
	return sc.Clone()
}

// Remove deletes a scene. When the current scene is removed the previous
// entry becomes current, or the first one if there is no previous entry.
func (s *Store) Remove(id uint64) error {
	idx := s.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrSceneNotFound, id)
	}
	removed := s.scenes[idx]
	s.scenes = append(s.scenes[:idx], s.scenes[idx+1:]...)
	s.emit(Event{Kind: SceneRemoved, SceneID: id})

	if s.current != removed {
		return nil
	}
	switch {
	case idx-1 >= 0 && idx-1 < len(s.scenes):
		s.current = s.scenes[idx-1]
	case len(s.scenes) > 0:
		s.current = s.scenes[0]
	default:
		s.current = nil
	}
	next := uint64(0)
	if s.current != nil {
		next = s.current.ID
	}
	s.emit(Event{Kind: CurrentChanged, SceneID: next})
	return nil
}

// Select makes id the current scene. Selecting the current scene is a no-op
// and emits nothing.
func (s *Store) Select(id uint64) error {
	idx := s.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrSceneNotFound, id)
	}
	if s.current == s.scenes[idx] {
		return nil
	}
	s.current = s.scenes[idx]
	s.emit(Event{Kind: CurrentChanged, SceneID: id})
	return nil
}

func (s *Store) Rename(id uint64, name string) error {
	idx := s.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrSceneNotFound, id)
	}
	s.scenes[idx].Name = name
	s.emit(Event{Kind: SceneRenamed, SceneID: id})
	return nil
}

// AddShape appends a shape to a scene and returns it with its assigned id.
func (s *Store) AddShape(sceneID uint64, sh Shape) (Shape, error) {
	idx := s.index(sceneID)
	if idx < 0 {
		return Shape{}, fmt.Errorf("%w: %d", ErrSceneNotFound, sceneID)
	}
	if err := sh.Validate(); err != nil {
		return Shape{}, err
	}
	sh = s.stamp(sh)
	s.scenes[idx].Shapes = append(s.scenes[idx].Shapes, sh)
	s.emit(Event{Kind: ShapesChanged, SceneID: sceneID})
	return sh, nil
}

func (s *Store) RemoveShape(sceneID, shapeID uint64) error {
	idx := s.index(sceneID)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrSceneNotFound, sceneID)
	}
	sc := s.scenes[idx]
	for i, sh := range sc.Shapes {
		if sh.ID == shapeID {
			sc.Shapes = append(sc.Shapes[:i], sc.Shapes[i+1:]...)
			s.emit(Event{Kind: ShapesChanged, SceneID: sceneID})
			return nil
		}
	}
	return fmt.Errorf("%w: %d in scene %d", ErrShapeNotFound, shapeID, sceneID)
}

// Current returns a copy of the current scene.
func (s *Store) Current() (Scene, bool) {
	if s.current == nil {
		return Scene{}, false
	}
	return s.current.Clone(), true
}

func (s *Store) Get(id uint64) (Scene, bool) {
	idx := s.index(id)
	if idx < 0 {
		return Scene{}, false
	}
	return s.scenes[idx].Clone(), true
}

// Scenes returns copies of all scenes in display order.
func (s *Store) Scenes() []Scene {
	out := make([]Scene, len(s.scenes))
	for i, sc := range s.scenes {
		out[i] = sc.Clone()
	}
	return out
}

func (s *Store) Len() int { return len(s.scenes) }

// Subscribe registers fn for every later mutation. The returned func removes
// the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) Subscribers() int { return len(s.subs) }

func (s *Store) stamp(sh Shape) Shape {
	s.nextShape++
	sh.ID = s.nextShape
	return sh
}

func (s *Store) index(id uint64) int {
	for i, sc := range s.scenes {
		if sc.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) emit(ev Event) {
	// a subscriber may unsubscribe while being notified
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	for _, sub := range subs {
		sub.fn(ev)
	}
}
