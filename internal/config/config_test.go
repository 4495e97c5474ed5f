package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/scenelab/internal/scene"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.Viewport.Width != 700 || cfg.Viewport.Height != 600 {
		t.Errorf("viewport = %vx%v, want 700x600", cfg.Viewport.Width, cfg.Viewport.Height)
	}
	if cfg.Keys.Toggle != " " {
		t.Errorf("toggle key = %q, want space", cfg.Keys.Toggle)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dt", func(c *Config) { c.Physics.Dt = 0 }},
		{"iterations", func(c *Config) { c.Physics.Iterations = -1 }},
		{"divisor", func(c *Config) { c.Physics.GravityDivisor = 0 }},
		{"spawn range", func(c *Config) { c.Spawn.MaxSize = c.Spawn.MinSize }},
		{"spawn shape", func(c *Config) { c.Spawn.Shape = "hexagon" }},
		{"camera", func(c *Config) { c.Camera.MaxX = c.Camera.MinX }},
		{"fps", func(c *Config) { c.FPS = 0 }},
		{"preset", func(c *Config) { c.Preset = "nope" }},
		{"scene shape", func(c *Config) {
			c.Scenes = []SceneConfig{{Name: "bad", Shapes: []ShapeConfig{{Kind: "triangle"}}}}
		}},
		{"zero radius", func(c *Config) {
			c.Scenes = []SceneConfig{{Name: "flat", Shapes: []ShapeConfig{{Kind: "circle", X: 10, Y: 10}}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) && !errors.Is(err, scene.ErrUnknownKind) && !errors.Is(err, scene.ErrInvalidShape) {
				t.Errorf("Validate() = %v, want an invalid-config error", err)
			}
		})
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenelab.yaml")
	cfg := DefaultConfig()
	cfg.Keys.HoldTimeout = 300 * time.Millisecond
	cfg.Scenes = []SceneConfig{{Name: "Mine", Shapes: []ShapeConfig{{Kind: "box", X: 1, Y: 2, Width: 3, Height: 4}}}}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Keys.HoldTimeout != 300*time.Millisecond {
		t.Errorf("hold_timeout = %v", got.Keys.HoldTimeout)
	}
	if len(got.Scenes) != 1 || got.Scenes[0].Shapes[0].Width != 3 {
		t.Errorf("scenes = %+v", got.Scenes)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("fps: 30\nphysics:\n  dt: 0.01\nkeys:\n  hold_timeout: 1s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FPS != 30 || cfg.Physics.Dt != 0.01 || cfg.Keys.HoldTimeout != time.Second {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Physics.Iterations != DefaultIterations || cfg.Keys.Toggle != " " {
		t.Errorf("defaults lost: iterations=%d toggle=%q", cfg.Physics.Iterations, cfg.Keys.Toggle)
	}
}

func TestSeedStore(t *testing.T) {
	tests := []struct {
		preset string
		scenes int
		shapes int
	}{
		{"default", 2, 2},
		{"example", 1, 2},
		{"empty", 1, 0},
		{"crowded", 2, 40},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Preset = tt.preset
			store := scene.NewStore(nil)
			if err := cfg.SeedStore(store); err != nil {
				t.Fatal(err)
			}
			if store.Len() != tt.scenes {
				t.Errorf("scenes = %d, want %d", store.Len(), tt.scenes)
			}
			cur, ok := store.Current()
			if !ok || len(cur.Shapes) != tt.shapes {
				t.Errorf("current shapes = %d, want %d", len(cur.Shapes), tt.shapes)
			}
		})
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) || names[0] != "crowded" {
		t.Errorf("ListPresets() = %v", names)
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestFromScene(t *testing.T) {
	sc := scene.Scene{Name: "s", Shapes: []scene.Shape{scene.Circle(1, 2, 3), scene.Rectangle(4, 5, 6, 7)}}
	got, err := FromScene(sc).ToShapes()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Radius != 3 || got[1].Height != 7 {
		t.Errorf("round trip = %v", got)
	}
}
