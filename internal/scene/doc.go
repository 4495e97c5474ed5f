// Package scene holds the declarative side of a physics scene.
//
// A [Scene] is a named, ordered list of [Shape] values. Shapes form a closed
// tagged union over [KindCircle] and [KindRectangle]; consumers switch on
// [Shape.Kind] instead of inspecting concrete types.
//
// The [Store] is the explicit state container the UI edits. It keeps the
// scene list and the current selection, and notifies subscribers after every
// mutation. Readers take plain copies ([Store.Current], [Store.Get]) and never
// hold references into the store.
//
// # Thread Safety
//
// Store is NOT thread-safe. It is driven from a single event loop.
package scene
