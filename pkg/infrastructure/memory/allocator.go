// Package memory tracks the Arrow memory held by result sets.
package memory

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// TrackedAllocator wraps a memory.Allocator and accounts for the bytes it
// hands out. Result records, cached records and error rows are all built
// through it, so BytesInUse drops back to zero once every answer and cache
// entry has been released.
type TrackedAllocator struct {
	underlying  memory.Allocator
	bytesInUse  atomic.Int64
	peak        atomic.Int64
	allocations atomic.Int64
}

// Stats is a point-in-time view of a TrackedAllocator.
type Stats struct {
	BytesInUse  int64
	PeakBytes   int64
	Allocations int64
}

// NewTrackedAllocator wraps underlying, or the Go allocator when nil.
func NewTrackedAllocator(underlying memory.Allocator) *TrackedAllocator {
	if underlying == nil {
		underlying = memory.NewGoAllocator()
	}
	return &TrackedAllocator{underlying: underlying}
}

// Allocate implements memory.Allocator.
func (a *TrackedAllocator) Allocate(size int) []byte {
	a.allocations.Add(1)
	a.grow(int64(size))
	return a.underlying.Allocate(size)
}

// Reallocate implements memory.Allocator.
func (a *TrackedAllocator) Reallocate(size int, b []byte) []byte {
	a.grow(int64(size - len(b)))
	return a.underlying.Reallocate(size, b)
}

// Free implements memory.Allocator.
func (a *TrackedAllocator) Free(b []byte) {
	a.bytesInUse.Add(-int64(len(b)))
	a.underlying.Free(b)
}

func (a *TrackedAllocator) grow(delta int64) {
	used := a.bytesInUse.Add(delta)
	for {
		peak := a.peak.Load()
		if used <= peak || a.peak.CompareAndSwap(peak, used) {
			return
		}
	}
}

// BytesInUse returns the bytes currently allocated.
func (a *TrackedAllocator) BytesInUse() int64 {
	return a.bytesInUse.Load()
}

// Stats returns the current counters.
func (a *TrackedAllocator) Stats() Stats {
	return Stats{
		BytesInUse:  a.bytesInUse.Load(),
		PeakBytes:   a.peak.Load(),
		Allocations: a.allocations.Load(),
	}
}
