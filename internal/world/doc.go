// Package world is the imperative half of a scene: an explicitly owned
// rigid-body container built on the Chipmunk2D port github.com/jakecoffman/cp.
//
// A [World] keeps its own registry of [Body] values on top of the cp space so
// that every body can be counted, tagged by [Kind] and torn down in a known
// order:
//
//	w := world.New(world.Options{})
//	b, _ := w.AddBody(world.BodySpec{Kind: world.KindShape, Geometry: world.GeomCircle, Radius: 10, Material: m})
//	_ = w.Step(1.0 / 60)
//	w.Destroy()
//
// Coordinates are screen-like: x grows right, y grows down, so gravity
// points toward +y.
//
// # Thread Safety
//
// World is NOT thread-safe. One event loop owns it.
package world
