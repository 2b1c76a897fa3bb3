// Package watch provides last-value-cached observable values. A Value[T]
// holds exactly one current value; subscribers immediately receive it on
// subscription and then every subsequent change, conflated: a slow subscriber
// skips intermediate values and always observes the most recent one.
package watch

import (
	"sync"
	"sync/atomic"

	"github.com/cornelk/hashmap"
)

// Value is a thread-safe observable holding a single current value.
//
// Writers call Set; readers either poll Get or Subscribe for a conflated
// stream of changes. Publication is atomic with respect to readers: an
// observer never sees a torn update, only whole values.
type Value[T any] struct {
	mu  sync.RWMutex
	cur T

	subs   *hashmap.Map[uint64, chan T]
	nextID atomic.Uint64
}

// NewValue creates a Value with the given initial value.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		cur:  initial,
		subs: hashmap.New[uint64, chan T](),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set replaces the current value and publishes it to every subscriber.
// Equal consecutive values are published again; deduplication is the
// subscriber's business, not ours.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = next

	v.subs.Range(func(_ uint64, ch chan T) bool {
		forceSend(ch, next)
		return true
	})
}

// Update applies fn to the current value under the write lock and publishes
// the result. Use it for read-modify-write sequences that must not interleave
// with concurrent Sets.
func (v *Value[T]) Update(fn func(cur T) T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = fn(v.cur)
	next := v.cur

	v.subs.Range(func(_ uint64, ch chan T) bool {
		forceSend(ch, next)
		return true
	})
}

// Subscribe registers a new observer. The returned channel is primed with the
// current value and has a single-slot buffer: if the observer lags, older
// pending values are overwritten by newer ones. The cancel function removes
// the subscription; the channel is never closed, so observers should select
// on their own done signal alongside it.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	v.mu.Lock()
	ch <- v.cur
	id := v.nextID.Add(1)
	v.subs.Set(id, ch)
	v.mu.Unlock()

	cancel := func() {
		v.subs.Del(id)
	}
	return ch, cancel
}

// forceSend delivers next on a single-slot channel, displacing any unread
// value. Sends are serialized by the Value's write lock, so the second
// attempt cannot race another producer.
func forceSend[T any](ch chan T, next T) {
	select {
	case ch <- next:
	default:
		select {
		case <-ch: // drop stale
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
}
