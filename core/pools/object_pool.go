package pools

import (
	"sync"
	"sync/atomic"
)

// Resetter is implemented by pooled objects that clear their own state.
type Resetter interface {
	Reset()
}

// ObjectPool recycles objects of one type, resetting them on Put.
type ObjectPool[T any] struct {
	pool sync.Pool
	gets atomic.Uint64
	puts atomic.Uint64
}

// NewObjectPool creates a pool that builds new objects with newFunc.
func NewObjectPool[T any](newFunc func() T) *ObjectPool[T] {
	op := &ObjectPool[T]{}
	op.pool.New = func() any {
		return newFunc()
	}
	return op
}

// Get retrieves an object from the pool
func (op *ObjectPool[T]) Get() T {
	op.gets.Add(1)
	return op.pool.Get().(T)
}

// Put resets obj when it implements Resetter and returns it to the pool.
func (op *ObjectPool[T]) Put(obj T) {
	if r, ok := any(obj).(Resetter); ok {
		r.Reset()
	}
	op.puts.Add(1)
	op.pool.Put(obj)
}

// Stats returns pool statistics
func (op *ObjectPool[T]) Stats() (gets, puts uint64, hitRate float64) {
	g := op.gets.Load()
	p := op.puts.Load()

	if g > 0 {
		hitRate = float64(p) / float64(g)
	}

	return g, p, hitRate
}
