package config

import "sort"

// Presets are named seed scene lists. A scene with nil Shapes gets the
// store's default shapes.
var Presets = map[string][]SceneConfig{
	"default": {
		{Name: "Experiment 1"},
		{Name: "Experiment 2"},
	},
	"example": {
		{Name: "Example", Shapes: []ShapeConfig{
			{Kind: "circle", X: 100, Y: 100, Radius: 50},
			{Kind: "rectangle", X: 150, Y: 50, Width: 100, Height: 100},
		}},
	},
	"empty": {
		{Name: "Empty", Shapes: []ShapeConfig{}},
	},
	"crowded": {
		{Name: "Crowded", Shapes: crowded()},
		{Name: "Towers", Shapes: towers()},
	},
}

func GetPreset(name string) []SceneConfig {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// crowded fills the upper half of the default container with alternating
// circles and squares.
func crowded() []ShapeConfig {
	var out []ShapeConfig
	for row := 0; row < 4; row++ {
		for col := 0; col < 10; col++ {
			x, y := 60+float64(col)*60, 60+float64(row)*60
			if (row+col)%2 == 0 {
				out = append(out, ShapeConfig{Kind: "circle", X: x, Y: y, Radius: 20})
			} else {
				out = append(out, ShapeConfig{Kind: "rectangle", X: x, Y: y, Width: 40, Height: 40})
			}
		}
	}
	return out
}

func towers() []ShapeConfig {
	var out []ShapeConfig
	for _, x := range []float64{150, 350, 550} {
		for i := 0; i < 6; i++ {
			out = append(out, ShapeConfig{Kind: "rectangle", X: x, Y: 560 - float64(i)*40, Width: 80, Height: 38})
		}
	}
	return out
}
