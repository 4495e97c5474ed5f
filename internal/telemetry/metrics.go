// Package telemetry samples a world once per frame, folds the samples into
// summary metrics and saves runs to disk.
package telemetry

import (
	"github.com/san-kum/scenelab/internal/world"
)

// Frame is one per-frame sample of a world.
type Frame struct {
	Index         int     `json:"frame"`
	Time          float64 `json:"time"`
	Bodies        int     `json:"bodies"`
	Dynamic       int     `json:"dynamic"`
	KineticEnergy float64 `json:"kinetic_energy"`
	// MeanY is the mean height of dynamic bodies; it grows as they fall.
	MeanY float64 `json:"mean_y"`
}

// Sample measures w at frame index and simulated time t.
func Sample(w *world.World, index int, t float64) Frame {
	f := Frame{Index: index, Time: t}
	sumY := 0.0
	for _, b := range w.Bodies() {
		f.Bodies++
		if b.Static() {
			continue
		}
		f.Dynamic++
		f.KineticEnergy += b.KineticEnergy()
		sumY += b.Position().Y
	}
	if f.Dynamic > 0 {
		f.MeanY = sumY / float64(f.Dynamic)
	}
	return f
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type MeanEnergy struct {
	total   float64
	samples int
}

func (m *MeanEnergy) Name() string { return "mean_kinetic_energy" }

func (m *MeanEnergy) Observe(f Frame) {
	m.total += f.KineticEnergy
	m.samples++
}

func (m *MeanEnergy) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.total / float64(m.samples)
}

func (m *MeanEnergy) Reset() { *m = MeanEnergy{} }

type PeakEnergy struct {
	peak float64
}

func (m *PeakEnergy) Name() string { return "peak_kinetic_energy" }

func (m *PeakEnergy) Observe(f Frame) {
	if f.KineticEnergy > m.peak {
		m.peak = f.KineticEnergy
	}
}

func (m *PeakEnergy) Value() float64 { return m.peak }
func (m *PeakEnergy) Reset()         { m.peak = 0 }

// BodyLoss counts bodies that left the world between the first and the
// latest frame.
type BodyLoss struct {
	first, last int
	seen        bool
}

func (m *BodyLoss) Name() string { return "bodies_lost" }

func (m *BodyLoss) Observe(f Frame) {
	if !m.seen {
		m.first, m.seen = f.Bodies, true
	}
	m.last = f.Bodies
}

func (m *BodyLoss) Value() float64 {
	if m.last > m.first {
		return 0
	}
	return float64(m.first - m.last)
}

func (m *BodyLoss) Reset() { *m = BodyLoss{} }

// DefaultMetrics returns a fresh set of the standard metrics.
func DefaultMetrics() []Metric {
	return []Metric{&MeanEnergy{}, &PeakEnergy{}, &BodyLoss{}}
}

// Recorder keeps recent frames and feeds every frame to its metrics.
// A capacity of 0 keeps all frames.
type Recorder struct {
	frames   []Frame
	capacity int
	metrics  []Metric
}

func NewRecorder(capacity int, metrics ...Metric) *Recorder {
	return &Recorder{capacity: capacity, metrics: metrics}
}

// Observe samples w, records the frame and returns it.
func (r *Recorder) Observe(w *world.World, index int, t float64) Frame {
	f := Sample(w, index, t)
	r.Add(f)
	return f
}

func (r *Recorder) Add(f Frame) {
	r.frames = append(r.frames, f)
	if r.capacity > 0 && len(r.frames) > r.capacity {
		r.frames = r.frames[1:]
	}
	for _, m := range r.metrics {
		m.Observe(f)
	}
}

func (r *Recorder) Frames() []Frame { return r.frames }

func (r *Recorder) Last() (Frame, bool) {
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// Energy returns the kinetic energy series of the kept frames.
func (r *Recorder) Energy() []float64 {
	out := make([]float64, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.KineticEnergy
	}
	return out
}

func (r *Recorder) Metrics() map[string]float64 {
	out := make(map[string]float64, len(r.metrics))
	for _, m := range r.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (r *Recorder) Reset() {
	r.frames = nil
	for _, m := range r.metrics {
		m.Reset()
	}
}
