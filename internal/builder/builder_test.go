package builder

import (
	"errors"
	"testing"

	"github.com/san-kum/scenelab/internal/scene"
	"github.com/san-kum/scenelab/internal/world"
)

func TestWalls(t *testing.T) {
	walls := Walls(700, 600)
	want := []struct{ x, y, w, h float64 }{
		{350, -10, 700, 20},
		{350, 610, 700, 20},
		{-10, 300, 20, 600},
		{710, 300, 20, 600},
	}
	if len(walls) != len(want) {
		t.Fatalf("len(Walls) = %d, want %d", len(walls), len(want))
	}
	for i, w := range want {
		got := walls[i]
		if got.X != w.x || got.Y != w.y || got.Width != w.w || got.Height != w.h || !got.Static {
			t.Errorf("wall %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name   string
		shapes []scene.Shape
		width  float64
		height float64
	}{
		{"example scene", []scene.Shape{scene.Circle(100, 100, 50), scene.Rectangle(150, 50, 100, 100)}, 700, 600},
		{"empty", nil, 700, 600},
		{"zero container", []scene.Shape{scene.Circle(0, 0, 5)}, 0, 0},
		{"many", []scene.Shape{
			scene.Circle(10, 10, 5), scene.Circle(30, 10, 5), scene.Rectangle(60, 10, 10, 10),
			scene.Rectangle(90, 10, 20, 5), scene.Circle(120, 10, 8),
		}, 300, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := world.New(world.Options{})
			if err := Build(w, Walls(tt.width, tt.height), tt.shapes); err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := w.CountKind(world.KindShape); got != len(tt.shapes) {
				t.Errorf("shape bodies = %d, want %d", got, len(tt.shapes))
			}
			if got := w.CountKind(world.KindWall); got != 4 {
				t.Errorf("walls = %d, want 4", got)
			}
		})
	}
}

func TestBuildSkipsBadShape(t *testing.T) {
	w := world.New(world.Options{})
	shapes := []scene.Shape{scene.Circle(10, 10, 5), scene.Circle(20, 20, 0), scene.Rectangle(50, 50, 10, 10)}
	err := Build(w, Walls(100, 100), shapes)
	if !errors.Is(err, world.ErrInvalidSpec) {
		t.Fatalf("Build() error = %v, want ErrInvalidSpec", err)
	}
	var be *world.BuildError
	if !errors.As(err, &be) || be.Stage != "shape 1" {
		t.Errorf("Build() error = %v, want BuildError for shape 1", err)
	}
	if got := w.CountKind(world.KindShape); got != 2 {
		t.Errorf("shape bodies = %d, want 2", got)
	}
}

func TestShapeSpec(t *testing.T) {
	sh := scene.Rectangle(150, 50, 100, 100)
	sh.ID = 9
	spec, err := ShapeSpec(sh)
	if err != nil {
		t.Fatal(err)
	}
	if spec.Geometry != world.GeomBox || spec.Width != 100 || spec.Origin != 9 || spec.Material != Material {
		t.Errorf("ShapeSpec() = %+v", spec)
	}
	if _, err := ShapeSpec(scene.Shape{Kind: scene.Kind(9)}); !errors.Is(err, scene.ErrUnknownKind) {
		t.Errorf("unknown kind error = %v", err)
	}
}
