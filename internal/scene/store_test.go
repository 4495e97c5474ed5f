package scene

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	var (
		st     *Store
		events []Event
	)

	BeforeEach(func() {
		st = NewDefaultStore(rand.New(rand.NewSource(7)))
		events = nil
		st.Subscribe(func(ev Event) { events = append(events, ev) })
	})

	It("starts with two scenes and selects the first", func() {
		Expect(st.Len()).To(Equal(2))
		cur, ok := st.Current()
		Expect(ok).To(BeTrue())
		Expect(cur.Name).To(Equal("Experiment 1"))
	})

	It("pre-populates new scenes with a rectangle and a circle", func() {
		sc := st.Add("New Experiment")
		Expect(sc.Shapes).To(HaveLen(2))
		Expect(sc.Shapes[0].Kind).To(Equal(KindRectangle))
		Expect(sc.Shapes[0].X).To(BeNumerically(">=", 100))
		Expect(sc.Shapes[0].X).To(BeNumerically("<", 200))
		Expect(sc.Shapes[1]).To(Equal(Shape{ID: sc.Shapes[1].ID, Kind: KindCircle, X: 100, Y: 100, Radius: 50}))
	})

	It("assigns unique ids to scenes and shapes", func() {
		a := st.Add("a")
		b := st.Add("b")
		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(a.Shapes[0].ID).NotTo(Equal(b.Shapes[0].ID))
	})

	It("notifies subscribers on select and ignores reselecting the current scene", func() {
		scenes := st.Scenes()
		Expect(st.Select(scenes[0].ID)).To(Succeed())
		Expect(events).To(BeEmpty())

		Expect(st.Select(scenes[1].ID)).To(Succeed())
		Expect(events).To(ConsistOf(Event{Kind: CurrentChanged, SceneID: scenes[1].ID}))
	})

	It("selects the previous scene when the current one is removed", func() {
		c := st.Add("third")
		Expect(st.Select(c.ID)).To(Succeed())
		Expect(st.Remove(c.ID)).To(Succeed())

		cur, _ := st.Current()
		Expect(cur.Name).To(Equal("Experiment 2"))
	})

	It("falls back to the first scene when the first is removed while current", func() {
		first := st.Scenes()[0]
		Expect(st.Remove(first.ID)).To(Succeed())

		cur, ok := st.Current()
		Expect(ok).To(BeTrue())
		Expect(cur.Name).To(Equal("Experiment 2"))
	})

	It("leaves no current scene once the last one is removed", func() {
		for _, sc := range st.Scenes() {
			Expect(st.Remove(sc.ID)).To(Succeed())
		}
		_, ok := st.Current()
		Expect(ok).To(BeFalse())
		Expect(events[len(events)-1]).To(Equal(Event{Kind: CurrentChanged, SceneID: 0}))
	})

	It("keeps selection when a non-current scene is removed", func() {
		second := st.Scenes()[1]
		Expect(st.Remove(second.ID)).To(Succeed())
		cur, _ := st.Current()
		Expect(cur.Name).To(Equal("Experiment 1"))
	})

	It("rejects a shape without area", func() {
		cur, _ := st.Current()
		_, err := st.AddShape(cur.ID, Circle(10, 10, 0))
		Expect(err).To(MatchError(ErrInvalidShape))
		got, _ := st.Get(cur.ID)
		Expect(got.Shapes).To(HaveLen(2))
	})

	It("adds and removes shapes by id", func() {
		cur, _ := st.Current()
		sh, err := st.AddShape(cur.ID, Circle(10, 10, 5))
		Expect(err).NotTo(HaveOccurred())
		Expect(sh.ID).NotTo(BeZero())

		got, _ := st.Get(cur.ID)
		Expect(got.Shapes).To(HaveLen(3))

		Expect(st.RemoveShape(cur.ID, sh.ID)).To(Succeed())
		got, _ = st.Get(cur.ID)
		Expect(got.Shapes).To(HaveLen(2))
		Expect(st.RemoveShape(cur.ID, sh.ID)).To(MatchError(ErrShapeNotFound))
	})

	It("hands out copies that do not alias store state", func() {
		cur, _ := st.Current()
		cur.Shapes[0].X = -999
		again, _ := st.Current()
		Expect(again.Shapes[0].X).NotTo(Equal(-999.0))
	})

	It("renames scenes", func() {
		cur, _ := st.Current()
		Expect(st.Rename(cur.ID, "ramp")).To(Succeed())
		got, _ := st.Get(cur.ID)
		Expect(got.Name).To(Equal("ramp"))
		Expect(st.Rename(12345, "x")).To(MatchError(ErrSceneNotFound))
	})

	It("stops notifying after unsubscribe", func() {
		count := 0
		unsubscribe := st.Subscribe(func(Event) { count++ })
		st.Add("x")
		unsubscribe()
		unsubscribe()
		st.Add("y")
		Expect(count).To(Equal(1))
		Expect(st.Subscribers()).To(Equal(1))
	})
})
