package analysis

import (
	"math"
	"testing"
)

func TestPad(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1}, {1, 1}, {3, 4}, {4, 4}, {600, 1024},
	}
	for _, tt := range tests {
		if got := len(Pad(make([]float64, tt.in))); got != tt.want {
			t.Errorf("len(Pad(%d)) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFFTImpulse(t *testing.T) {
	out := FFT([]float64{1, 0, 0, 0, 0, 0, 0, 0})
	for i, c := range out {
		if math.Abs(real(c)-1) > 1e-12 || math.Abs(imag(c)) > 1e-12 {
			t.Errorf("FFT()[%d] = %v, want 1", i, c)
		}
	}
}

func TestDominant(t *testing.T) {
	const dt = 1.0 / 64
	tests := []struct {
		name string
		freq float64
	}{
		{"2hz", 2},
		{"4hz", 4},
		{"8hz", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := make([]float64, 256)
			for i := range series {
				series[i] = 10 + math.Sin(2*math.Pi*tt.freq*float64(i)*dt)
			}
			got, ok := Dominant(series, dt)
			if !ok || math.Abs(got-tt.freq) > 1e-9 {
				t.Errorf("Dominant() = %v, %v; want %v", got, ok, tt.freq)
			}
		})
	}
}

func TestDominantFlat(t *testing.T) {
	if _, ok := Dominant([]float64{3, 3, 3, 3, 3, 3}, 0.1); ok {
		t.Error("flat series should have no dominant frequency")
	}
	if _, ok := Dominant([]float64{1, 2}, 0.1); ok {
		t.Error("short series should have no dominant frequency")
	}
}
