// Package pool provides typed object pooling for Nimbus. It wraps sync.Pool
// with reset-on-return semantics and usage statistics, reducing garbage
// collection pressure on hot paths such as attribute-vector recompression.
//
// Example usage:
//
//	myPool := pool.New(
//	    func() *MyType { return &MyType{} },
//	    func(obj *MyType) { obj.Reset() },
//	)
//	obj := myPool.Get()
//	defer myPool.Put(obj)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and automatic reset
// functionality. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty and a new object is
// needed. The reset function, if non-nil, is called before returning an
// object to the pool.
func New[T any](newFunc func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   newFunc,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFunc()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse, resetting it first if a
// reset function was configured.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.pool.Put(obj)
}

// Allocated returns the number of objects created by the pool.
func (p *Pool[T]) Allocated() int64 {
	return atomic.LoadInt64(&p.stats.allocated)
}

// Hits returns the number of Get calls served by the pool.
func (p *Pool[T]) Hits() int64 {
	return atomic.LoadInt64(&p.stats.hits)
}
