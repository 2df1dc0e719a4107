// Package pool provides typed object pooling for phasegen. Producers
// decode phase-space chunks into column buffers on every refill; pooling
// those buffers keeps the refill path allocation-free once warm.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety. It wraps
// sync.Pool with statistics tracking and an automatic reset hook.
// The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
	}
}

// New creates a new typed pool. The new function is called when the pool
// is empty; the optional reset function is called before an object is
// returned to the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   newFn,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, creating one if necessary.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool for reuse, resetting it first if a
// reset function was configured.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the total allocations and the number of objects
// currently checked out.
func (p *Pool[T]) Stats() (allocated, inUse int64) {
	return atomic.LoadInt64(&p.stats.allocated), atomic.LoadInt64(&p.stats.inUse)
}

// Global column-buffer pools shared by batch producers. Capacities match
// the default refill size so steady-state refills reuse one buffer set.

const defaultColumnCapacity = 10000

var (
	// Float64ColumnPool pools float64 columns (positions, directions,
	// energies, weights).
	Float64ColumnPool = New(
		func() []float64 {
			return make([]float64, 0, defaultColumnCapacity)
		},
		nil,
	)

	// Int32ColumnPool pools PDG code columns.
	Int32ColumnPool = New(
		func() []int32 {
			return make([]int32, 0, defaultColumnCapacity)
		},
		nil,
	)

	// StringColumnPool pools particle name columns.
	StringColumnPool = New(
		func() []string {
			return make([]string, 0, defaultColumnCapacity)
		},
		func(s []string) {
			for i := range s {
				s[i] = ""
			}
		},
	)
)

// GetFloat64Column returns a zero-length float64 column with at least the
// requested capacity.
func GetFloat64Column(capacity int) []float64 {
	col := Float64ColumnPool.Get()
	if cap(col) < capacity {
		col = make([]float64, 0, capacity)
	}
	return col[:0]
}

// PutFloat64Column returns a float64 column to the pool.
func PutFloat64Column(col []float64) {
	if col != nil {
		Float64ColumnPool.Put(col)
	}
}

// GetInt32Column returns a zero-length int32 column with at least the
// requested capacity.
func GetInt32Column(capacity int) []int32 {
	col := Int32ColumnPool.Get()
	if cap(col) < capacity {
		col = make([]int32, 0, capacity)
	}
	return col[:0]
}

// PutInt32Column returns an int32 column to the pool.
func PutInt32Column(col []int32) {
	if col != nil {
		Int32ColumnPool.Put(col)
	}
}

// GetStringColumn returns a zero-length string column with at least the
// requested capacity.
func GetStringColumn(capacity int) []string {
	col := StringColumnPool.Get()
	if cap(col) < capacity {
		col = make([]string, 0, capacity)
	}
	return col[:0]
}

// PutStringColumn returns a string column to the pool.
func PutStringColumn(col []string) {
	if col != nil {
		StringColumnPool.Put(col)
	}
}
