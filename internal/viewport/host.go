package viewport

import (
	"fmt"
	"time"
)

type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	KeyPress
	KeyRelease
)

var eventNames = [...]string{"pointer-down", "pointer-move", "pointer-up", "key-press", "key-release"}

func (t EventType) String() string {
	if int(t) >= 0 && int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event is a pointer or key event. Pointer coordinates are pixels relative
// to the container's top-left corner.
type Event struct {
	Type EventType
	X, Y float64
	Key  string
	At   time.Time
}

type Handler func(Event)

type listener struct {
	id uint64
	fn Handler
}

// Host is the document a viewport lives in: a measurable container that
// accepts mounted surfaces and delivers pointer and key events to listeners.
type Host struct {
	width, height float64
	listeners     map[EventType][]listener
	surfaces      []*Surface
	nextID        uint64
}

func NewHost(width, height float64) *Host {
	h := &Host{listeners: make(map[EventType][]listener)}
	h.Resize(width, height)
	return h
}

// Measure returns the container size in pixels.
func (h *Host) Measure() (width, height float64) { return h.width, h.height }

// Resize changes the container size. Negative sizes become zero.
func (h *Host) Resize(width, height float64) {
	h.width, h.height = max(width, 0), max(height, 0)
}

// Listen registers fn for events of type t. The returned func removes it
// and may be called more than once.
func (h *Host) Listen(t EventType, fn Handler) func() {
	h.nextID++
	id := h.nextID
	h.listeners[t] = append(h.listeners[t], listener{id: id, fn: fn})
	return func() {
		ls := h.listeners[t]
		for i, l := range ls {
			if l.id == id {
				h.listeners[t] = append(ls[:i], ls[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers ev to every listener of its type in registration order.
func (h *Host) Dispatch(ev Event) {
	ls := append([]listener(nil), h.listeners[ev.Type]...)
	for _, l := range ls {
		l.fn(ev)
	}
}

// Listeners returns the number of registered listeners across all types.
func (h *Host) Listeners() int {
	n := 0
	for _, ls := range h.listeners {
		n += len(ls)
	}
	return n
}

// Mount attaches s to the container. The returned func detaches it.
func (h *Host) Mount(s *Surface) func() {
	h.surfaces = append(h.surfaces, s)
	return func() {
		for i, x := range h.surfaces {
			if x == s {
				h.surfaces = append(h.surfaces[:i], h.surfaces[i+1:]...)
				return
			}
		}
	}
}

func (h *Host) Surfaces() int { return len(h.surfaces) }

// Surface returns the most recently mounted surface, or nil.
func (h *Host) Surface() *Surface {
	if len(h.surfaces) == 0 {
		return nil
	}
	return h.surfaces[len(h.surfaces)-1]
}
