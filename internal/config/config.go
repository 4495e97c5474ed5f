package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/scenelab/internal/scene"
)

const (
	DefaultWidth          = 700.0
	DefaultHeight         = 600.0
	DefaultCellWidth      = 8
	DefaultCellHeight     = 16
	DefaultDt             = 1.0 / 60
	DefaultIterations     = 10
	DefaultGravity        = 1000.0
	DefaultGravityDivisor = 10.0
	DefaultSpringRate     = 400.0
	DefaultSpringDamping  = 10.0
	DefaultFPS            = 60
	DefaultHoldTimeout    = 550 * time.Millisecond
)

var ErrInvalidConfig = errors.New("config: invalid value")

type Config struct {
	Viewport ViewportConfig `yaml:"viewport"`
	Camera   CameraConfig   `yaml:"camera"`
	Physics  PhysicsConfig  `yaml:"physics"`
	Spawn    SpawnConfig    `yaml:"spawn"`
	Keys     KeysConfig     `yaml:"keys"`
	FPS      int            `yaml:"fps"`
	Seed     int64          `yaml:"seed"`
	LogLevel string         `yaml:"log_level"`
	LogFile  string         `yaml:"log_file,omitempty"`
	DataDir  string         `yaml:"data_dir"`
	// Preset names the seed scenes used when Scenes is empty.
	Preset string        `yaml:"preset"`
	Scenes []SceneConfig `yaml:"scenes,omitempty"`
}

// ViewportConfig sizes the headless container in pixels and maps terminal
// cells to pixels in the TUI.
type ViewportConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	CellWidth  int     `yaml:"cell_width"`
	CellHeight int     `yaml:"cell_height"`
}

type CameraConfig struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

type PhysicsConfig struct {
	Dt             float64 `yaml:"dt"`
	Iterations     int     `yaml:"iterations"`
	Gravity        float64 `yaml:"gravity"`
	GravityDivisor float64 `yaml:"gravity_divisor"`
	SpringRate     float64 `yaml:"spring_rate"`
	SpringDamping  float64 `yaml:"spring_damping"`
}

type SpawnConfig struct {
	MinSize float64 `yaml:"min_size"`
	MaxSize float64 `yaml:"max_size"`
	Shape   string  `yaml:"shape"`
}

type KeysConfig struct {
	Toggle      string        `yaml:"toggle"`
	Mode        string        `yaml:"mode"`
	Commit      string        `yaml:"commit"`
	Delete      string        `yaml:"delete"`
	HoldTimeout time.Duration `yaml:"hold_timeout"`
}

type SceneConfig struct {
	Name   string        `yaml:"name"`
	Shapes []ShapeConfig `yaml:"shapes"`
}

type ShapeConfig struct {
	Kind   string  `yaml:"kind"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius,omitempty"`
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Viewport: ViewportConfig{
			Width:      DefaultWidth,
			Height:     DefaultHeight,
			CellWidth:  DefaultCellWidth,
			CellHeight: DefaultCellHeight,
		},
		Camera: CameraConfig{MaxX: 700, MaxY: 600},
		Physics: PhysicsConfig{
			Dt:             DefaultDt,
			Iterations:     DefaultIterations,
			Gravity:        DefaultGravity,
			GravityDivisor: DefaultGravityDivisor,
			SpringRate:     DefaultSpringRate,
			SpringDamping:  DefaultSpringDamping,
		},
		Spawn: SpawnConfig{MinSize: 10, MaxSize: 40, Shape: "circle"},
		Keys: KeysConfig{
			Toggle:      " ",
			Mode:        "m",
			Commit:      "p",
			Delete:      "x",
			HoldTimeout: DefaultHoldTimeout,
		},
		FPS:      DefaultFPS,
		Seed:     1,
		LogLevel: "info",
		DataDir:  "runs",
		Preset:   "default",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every out-of-range value at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	if c.Viewport.Width < 0 || c.Viewport.Height < 0 {
		bad("viewport size %vx%v", c.Viewport.Width, c.Viewport.Height)
	}
	if c.Viewport.CellWidth <= 0 || c.Viewport.CellHeight <= 0 {
		bad("cell size %dx%d", c.Viewport.CellWidth, c.Viewport.CellHeight)
	}
	if c.Camera.MaxX <= c.Camera.MinX || c.Camera.MaxY <= c.Camera.MinY {
		bad("camera bounds (%v,%v)-(%v,%v)", c.Camera.MinX, c.Camera.MinY, c.Camera.MaxX, c.Camera.MaxY)
	}
	if c.Physics.Dt <= 0 {
		bad("physics.dt must be positive, got %v", c.Physics.Dt)
	}
	if c.Physics.Iterations <= 0 {
		bad("physics.iterations must be positive, got %d", c.Physics.Iterations)
	}
	if c.Physics.GravityDivisor <= 0 {
		bad("physics.gravity_divisor must be positive, got %v", c.Physics.GravityDivisor)
	}
	if c.Spawn.MinSize <= 0 || c.Spawn.MaxSize <= c.Spawn.MinSize {
		bad("spawn sizes [%v, %v)", c.Spawn.MinSize, c.Spawn.MaxSize)
	}
	switch c.Spawn.Shape {
	case "circle", "rectangle", "mixed":
	default:
		bad("spawn.shape %q", c.Spawn.Shape)
	}
	if c.Keys.Toggle == "" {
		bad("keys.toggle is empty")
	}
	if c.FPS <= 0 {
		bad("fps must be positive, got %d", c.FPS)
	}
	if len(c.Scenes) == 0 && GetPreset(c.Preset) == nil {
		bad("unknown preset %q", c.Preset)
	}
	for i, sc := range c.Scenes {
		if _, err := sc.ToShapes(); err != nil {
			errs = append(errs, fmt.Errorf("scene %d (%s): %w", i, sc.Name, err))
		}
	}
	return errors.Join(errs...)
}

// SeedScenes returns the configured scenes, or the preset's when none are
// listed.
func (c *Config) SeedScenes() []SceneConfig {
	if len(c.Scenes) > 0 {
		return c.Scenes
	}
	return GetPreset(c.Preset)
}

// SeedStore adds the seed scenes to store in order. The first becomes
// current.
func (c *Config) SeedStore(store *scene.Store) error {
	for _, sc := range c.SeedScenes() {
		if sc.Shapes == nil {
			store.Add(sc.Name)
			continue
		}
		shapes, err := sc.ToShapes()
		if err != nil {
			return fmt.Errorf("config: scene %q: %w", sc.Name, err)
		}
		store.AddScene(sc.Name, shapes)
	}
	return nil
}

// ToShapes converts the scene's shapes. A nil shape list means the store's
// default shapes and converts to nil.
func (sc SceneConfig) ToShapes() ([]scene.Shape, error) {
	if sc.Shapes == nil {
		return nil, nil
	}
	out := make([]scene.Shape, 0, len(sc.Shapes))
	for i, s := range sc.Shapes {
		sh, err := s.Shape()
		if err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		out = append(out, sh)
	}
	return out, nil
}

func (s ShapeConfig) Shape() (scene.Shape, error) {
	kind, err := scene.ParseKind(s.Kind)
	if err != nil {
		return scene.Shape{}, err
	}
	var sh scene.Shape
	if kind == scene.KindCircle {
		sh = scene.Circle(s.X, s.Y, s.Radius)
	} else {
		sh = scene.Rectangle(s.X, s.Y, s.Width, s.Height)
	}
	return sh, sh.Validate()
}

// FromScene describes a scene for the config file.
func FromScene(sc scene.Scene) SceneConfig {
	out := SceneConfig{Name: sc.Name, Shapes: make([]ShapeConfig, 0, len(sc.Shapes))}
	for _, sh := range sc.Shapes {
		out.Shapes = append(out.Shapes, ShapeConfig{
			Kind: sh.Kind.String(), X: sh.X, Y: sh.Y,
			Radius: sh.Radius, Width: sh.Width, Height: sh.Height,
		})
	}
	return out
}
