package chain

import (
	"math"
	"testing"

	"github.com/jakecoffman/cp"

	"github.com/san-kum/scenelab/internal/world"
)

func TestAttachCounts(t *testing.T) {
	w := world.New(world.Options{})
	comps, err := Attach(w)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	want := []struct {
		bodies      int
		constraints int
	}{
		{16, 16},
		{10, 10},
		{13, 13},
	}
	if len(comps) != len(want) {
		t.Fatalf("composites = %d, want %d", len(comps), len(want))
	}
	for i, c := range comps {
		if len(c.Bodies) != want[i].bodies {
			t.Errorf("%s bodies = %d, want %d", c.Label, len(c.Bodies), want[i].bodies)
		}
		if len(c.Constraints) != want[i].constraints {
			t.Errorf("%s constraints = %d, want %d", c.Label, len(c.Constraints), want[i].constraints)
		}
	}
	if got := w.CountKind(world.KindLink); got != 39 {
		t.Errorf("links = %d, want 39", got)
	}
	if got := w.CountKind(world.KindPlank); got != 1 {
		t.Errorf("planks = %d, want 1", got)
	}
	if comps[0].Group == comps[1].Group || comps[1].Group == comps[2].Group {
		t.Errorf("groups not distinct: %d %d %d", comps[0].Group, comps[1].Group, comps[2].Group)
	}
}

func TestStackLayout(t *testing.T) {
	w := world.New(world.Options{})
	c, err := Stack(w, "grid", 100, 50, 3, 2, 10, 10, 1, func(x, y float64, _, _ int) world.BodySpec {
		return world.BodySpec{Geometry: world.GeomBox, X: x, Y: y, Width: 50, Height: 20}
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []cp.Vector{
		{X: 125, Y: 60}, {X: 185, Y: 60}, {X: 245, Y: 60},
		{X: 125, Y: 90}, {X: 185, Y: 90}, {X: 245, Y: 90},
	}
	for i, b := range c.Bodies {
		if p := b.Position(); p != want[i] {
			t.Errorf("body %d at %v, want %v", i, p, want[i])
		}
		if b.Group() != 1 || b.Kind() != world.KindLink {
			t.Errorf("body %d group %d kind %v", i, b.Group(), b.Kind())
		}
	}
}

func TestStackOffsetFactory(t *testing.T) {
	w := world.New(world.Options{})
	c, _ := Stack(w, "shifted", 600, 50, 2, 1, 10, 10, 1, func(x, y float64, _, _ int) world.BodySpec {
		return world.BodySpec{Geometry: world.GeomBox, X: x - 20, Y: y, Width: 50, Height: 20, Radius: 5}
	})
	if p := c.Bodies[0].Position(); p.X != 605 {
		t.Errorf("first X = %v, want 605", p.X)
	}
	if p := c.Bodies[1].Position(); p.X != 645 {
		t.Errorf("second X = %v, want 645", p.X)
	}
}

func TestAnchorRestLength(t *testing.T) {
	w := world.New(world.Options{})
	comps, _ := Attach(w)
	tests := []struct {
		label string
		want  float64
	}{
		{"rope A", 25},
		{"rope B", 20},
		{"rope C", 20},
	}
	for i, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			c := comps[i]
			anchor := c.Constraints[len(c.Constraints)-1]
			if anchor.Spec().A != nil {
				t.Fatal("anchor is not pinned to the world")
			}
			if math.Abs(anchor.Length()-tt.want) > 1e-9 {
				t.Errorf("anchor length = %v, want %v", anchor.Length(), tt.want)
			}
		})
	}
}

func TestAttachSurvivesSteps(t *testing.T) {
	w := world.New(world.Options{})
	w.SetGravityScale(0.1)
	if _, err := Attach(w); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 120; i++ {
		if err := w.Step(1.0 / 60); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}
