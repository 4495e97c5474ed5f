package sandbox

import (
	"context"
	"math"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/scenelab/internal/clock"
	"github.com/san-kum/scenelab/internal/config"
	"github.com/san-kum/scenelab/internal/interact"
	"github.com/san-kum/scenelab/internal/scene"
	"github.com/san-kum/scenelab/internal/viewport"
	"github.com/san-kum/scenelab/internal/world"
)

// links and plank added to every scene
const fixtureBodies = 39 + 1

func exampleSnapshot() scene.Snapshot {
	return scene.Snapshot{ID: 1, Name: "Example", Shapes: []scene.Shape{
		scene.Circle(100, 100, 50),
		scene.Rectangle(150, 50, 100, 100),
	}}
}

func testOptions() Options {
	return OptionsFromConfig(config.DefaultConfig(), nil, rand.New(rand.NewSource(3)), nil)
}

var _ = Describe("Session", func() {
	var (
		host *viewport.Host
		s    *Session
	)

	BeforeEach(func() {
		host = viewport.NewHost(700, 600)
		var err error
		s, err = Activate(host, exampleSnapshot(), testOptions())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("builds walls, shapes, chains and the plank", func() {
		w := s.World()
		Expect(w.Count()).To(Equal(46))
		Expect(w.CountKind(world.KindWall)).To(Equal(4))
		Expect(w.CountKind(world.KindShape)).To(Equal(2))
		Expect(w.CountKind(world.KindLink)).To(Equal(39))
		Expect(w.CountKind(world.KindPlank)).To(Equal(1))
		Expect(s.BuildErr()).NotTo(HaveOccurred())
	})

	It("scales gravity down by the divisor", func() {
		Expect(s.World().GravityScale()).To(BeNumerically("~", 0.1, 1e-12))
		Expect(s.World().Gravity().Y).To(BeNumerically("~", world.DefaultGravity/10, 1e-9))
	})

	It("mounts one surface and starts stopped", func() {
		Expect(host.Surfaces()).To(Equal(1))
		Expect(s.Clock().State()).To(Equal(clock.Stopped))
		Expect(s.Viewport().Rendering()).To(BeTrue())
	})

	It("returns to stopped after two toggles", func() {
		at := time.Unix(0, 0)
		host.Dispatch(viewport.Event{Type: viewport.KeyPress, Key: " ", At: at})
		Expect(s.Clock().State()).To(Equal(clock.Running))
		host.Dispatch(viewport.Event{Type: viewport.KeyRelease, Key: " ", At: at})
		host.Dispatch(viewport.Event{Type: viewport.KeyPress, Key: " ", At: at.Add(100 * time.Millisecond)})
		Expect(s.Clock().State()).To(Equal(clock.Stopped))
	})

	It("ignores a repeated press while the toggle key is held", func() {
		at := time.Unix(0, 0)
		host.Dispatch(viewport.Event{Type: viewport.KeyPress, Key: " ", At: at})
		host.Dispatch(viewport.Event{Type: viewport.KeyPress, Key: " ", At: at.Add(30 * time.Millisecond)})
		Expect(s.Clock().State()).To(Equal(clock.Running))
	})

	It("spawns one body per armed move, in order", func() {
		const moves = 7
		host.Dispatch(viewport.Event{Type: viewport.PointerDown, X: 300, Y: 200})
		for i := 0; i < moves; i++ {
			host.Dispatch(viewport.Event{Type: viewport.PointerMove, X: 300 + float64(i)*20, Y: 200})
		}
		host.Dispatch(viewport.Event{Type: viewport.PointerUp, X: 440, Y: 200})
		host.Dispatch(viewport.Event{Type: viewport.PointerMove, X: 500, Y: 200})

		spawned := s.Controller().Spawned()
		Expect(spawned).To(HaveLen(moves))
		for i := 1; i < moves; i++ {
			Expect(spawned[i].Position().X).To(BeNumerically(">", spawned[i-1].Position().X))
		}
		Expect(s.World().Count()).To(Equal(46 + moves))
	})

	It("leaves the world frozen while stopped", func() {
		before := s.World().Bodies()[4].Position()
		for i := 0; i < 10; i++ {
			_, err := s.Frame(time.Second / 60)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(s.Clock().Steps()).To(BeZero())
		Expect(s.World().Bodies()[4].Position()).To(Equal(before))
	})

	It("steps the world while running", func() {
		s.Clock().Start()
		body := s.World().Bodies()[4]
		y0 := body.Position().Y
		for i := 0; i < 30; i++ {
			_, err := s.Frame(time.Second / 60)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(s.Clock().Steps()).To(Equal(30))
		Expect(body.Position().Y).To(BeNumerically(">", y0))
		Expect(s.Frames()).To(Equal(30))
	})

	It("plays a fixed number of frames", func() {
		s.Clock().Start()
		seen := 0
		err := s.Run(context.Background(), 60, time.Second/60, func(frame int) error {
			Expect(frame).To(Equal(seen))
			seen++
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal(60))
		Expect(s.Clock().Steps()).To(Equal(60))
		Expect(s.World().Count()).To(Equal(46))
	})

	It("stops a run when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		err := s.Run(ctx, 100, time.Second/60, func(frame int) error {
			if frame == 4 {
				cancel()
			}
			return nil
		})
		Expect(err).To(MatchError(context.Canceled))
		Expect(s.Frames()).To(Equal(5))
	})

	It("tears everything down on close", func() {
		w := s.World()
		Expect(s.Close()).To(Succeed())
		Expect(w.Destroyed()).To(BeTrue())
		Expect(w.Count()).To(BeZero())
		Expect(host.Listeners()).To(BeZero())
		Expect(host.Surfaces()).To(BeZero())
		Expect(s.Viewport().Rendering()).To(BeFalse())

		_, err := s.Frame(time.Second / 60)
		Expect(err).To(MatchError(ErrClosed))
	})

	It("leaves nothing behind after repeated activation", func() {
		Expect(s.Close()).To(Succeed())
		for i := 0; i < 10; i++ {
			next, err := Activate(host, exampleSnapshot(), testOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(host.Surfaces()).To(Equal(1))
			Expect(next.Close()).To(Succeed())
		}
		Expect(host.Listeners()).To(BeZero())
		Expect(host.Surfaces()).To(BeZero())
	})
})

var _ = Describe("Session divergence", func() {
	It("removes a diverged body and keeps running", func() {
		host := viewport.NewHost(700, 600)
		snap := scene.Snapshot{ID: 1, Name: "Lone box", Shapes: []scene.Shape{scene.Rectangle(350, 450, 60, 60)}}
		s, err := Activate(host, snap, testOptions())
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()
		Expect(s.World().Count()).To(Equal(4 + fixtureBodies + 1))

		s.Controller().SetMode(interact.ModeDrag)
		host.Dispatch(viewport.Event{Type: viewport.PointerDown, X: 350, Y: 450})
		Expect(s.Controller().Grabbed()).NotTo(BeNil())
		host.Dispatch(viewport.Event{Type: viewport.PointerMove, X: math.NaN(), Y: 450})
		s.Clock().Start()

		for i := 0; i < 2; i++ {
			_, err := s.Frame(time.Second / 60)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(s.Removed()).To(Equal(1))
		Expect(s.World().Count()).To(Equal(4 + fixtureBodies))
		Expect(s.World().CountKind(world.KindShape)).To(BeZero())
		Expect(s.Controller().Grabbed()).To(BeNil())
		Expect(s.Frames()).To(Equal(2))
	})
})

var _ = Describe("Session edge cases", func() {
	It("tolerates an empty scene in a zero-sized container", func() {
		host := viewport.NewHost(0, 0)
		s, err := Activate(host, scene.Snapshot{ID: 9}, testOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.World().CountKind(world.KindShape)).To(BeZero())
		Expect(s.World().CountKind(world.KindLink)).To(Equal(39))
		Expect(s.Close()).To(Succeed())
		Expect(host.Listeners()).To(BeZero())
	})

	It("skips an invalid shape and keeps the rest", func() {
		host := viewport.NewHost(700, 600)
		snap := scene.Snapshot{ID: 2, Shapes: []scene.Shape{
			scene.Circle(100, 100, 20),
			{ID: 5, Kind: scene.Kind(42), X: 10, Y: 10},
		}}
		s, err := Activate(host, snap, testOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.BuildErr()).To(HaveOccurred())
		Expect(s.World().CountKind(world.KindShape)).To(Equal(1))
		Expect(s.Close()).To(Succeed())
	})
})

var _ = Describe("Stage", func() {
	var (
		host  *viewport.Host
		store *scene.Store
		stage *Stage
	)

	BeforeEach(func() {
		host = viewport.NewHost(700, 600)
		store = scene.NewDefaultStore(rand.New(rand.NewSource(5)))
		var err error
		stage, err = NewStage(host, store, testOptions())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(stage.Close()).To(Succeed())
		Expect(host.Listeners()).To(BeZero())
		Expect(host.Surfaces()).To(BeZero())
		Expect(store.Subscribers()).To(BeZero())
	})

	It("activates the current scene", func() {
		cur, _ := store.Current()
		Expect(stage.Session()).NotTo(BeNil())
		Expect(stage.Session().SceneID()).To(Equal(cur.ID))
		Expect(stage.Session().World().Count()).To(Equal(4 + len(cur.Shapes) + fixtureBodies))
	})

	It("keeps exactly one live world across scene switches", func() {
		old := stage.Session().World()
		sc := store.AddScene("Third", []scene.Shape{
			scene.Circle(100, 100, 10), scene.Circle(200, 100, 10), scene.Circle(300, 100, 10),
		})
		Expect(store.Select(sc.ID)).To(Succeed())

		Expect(old.Destroyed()).To(BeTrue())
		Expect(stage.Session().SceneID()).To(Equal(sc.ID))
		Expect(stage.Session().World().Count()).To(Equal(4 + 3 + fixtureBodies))
		Expect(host.Surfaces()).To(Equal(1))
		Expect(stage.Activations()).To(Equal(2))
	})

	It("drops the session when the last scene is removed", func() {
		for _, sc := range store.Scenes() {
			Expect(store.Remove(sc.ID)).To(Succeed())
		}
		Expect(stage.Session()).To(BeNil())
		Expect(host.Surfaces()).To(BeZero())
		Expect(stage.Err()).NotTo(HaveOccurred())
	})

	It("commits spawned bodies without rebuilding until reload", func() {
		host.Dispatch(viewport.Event{Type: viewport.PointerDown, X: 400, Y: 100})
		host.Dispatch(viewport.Event{Type: viewport.PointerMove, X: 400, Y: 100})
		host.Dispatch(viewport.Event{Type: viewport.PointerMove, X: 450, Y: 100})
		host.Dispatch(viewport.Event{Type: viewport.PointerUp, X: 450, Y: 100})
		host.Dispatch(viewport.Event{Type: viewport.KeyPress, Key: "p", At: time.Unix(0, 0)})

		cur, _ := store.Current()
		Expect(cur.Shapes).To(HaveLen(4))
		Expect(stage.Activations()).To(Equal(1))

		Expect(stage.Reload()).To(Succeed())
		Expect(stage.Activations()).To(Equal(2))
		Expect(stage.Session().World().CountKind(world.KindShape)).To(Equal(4))
		Expect(stage.Session().World().CountKind(world.KindSpawned)).To(BeZero())
	})

	It("rebuilds on resize", func() {
		Expect(stage.Resize(400, 300)).To(Succeed())
		w, h := stage.Session().Viewport().Size()
		Expect(w).To(Equal(400.0))
		Expect(h).To(Equal(300.0))
		Expect(host.Surfaces()).To(Equal(1))
	})

	It("advances only the active session", func() {
		stage.Session().Clock().Start()
		n, err := stage.Frame(time.Second / 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})
})
