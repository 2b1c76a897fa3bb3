package watch

// Ring is a bounded channel-like buffer with overwrite-oldest semantics.
// Producers never block: when the buffer is full the oldest element is
// discarded. Readers consume through C() like a normal channel.
//
// Unlike Value, a Ring preserves a bounded history of distinct events; it
// backs event streams (e.g. scan sightings) where callers care about each
// occurrence, not just the latest state.
type Ring[T any] struct {
	ch chan T
}

// NewRing creates a Ring with the given capacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("watch: ring capacity must be > 0")
	}
	return &Ring[T]{ch: make(chan T, capacity)}
}

// C returns the underlying receive-only channel.
func (r *Ring[T]) C() <-chan T {
	return r.ch
}

// Send inserts v, discarding the oldest buffered element if full. It never
// blocks. Reports whether an element was dropped.
func (r *Ring[T]) Send(v T) bool {
	dropped := false
	select {
	case r.ch <- v:
	default:
		select {
		case <-r.ch:
			dropped = true
		default:
		}
		select {
		case r.ch <- v:
		default:
		}
	}
	return dropped
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	return len(r.ch)
}

// Cap returns the buffer capacity.
func (r *Ring[T]) Cap() int {
	return cap(r.ch)
}
