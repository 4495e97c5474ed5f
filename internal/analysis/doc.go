// Package analysis finds periodic motion in per-frame telemetry series,
// such as a rope swinging back and forth after a scene starts.
//
//	freq, ok := analysis.Dominant(energy, dt)
//	if ok {
//	    fmt.Printf("period: %.2fs\n", 1/freq)
//	}
package analysis
