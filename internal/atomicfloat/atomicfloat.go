// Package atomicfloat provides a lock-free float64 for single-word scalars
// that one goroutine writes and another reads without passing through the
// buffered-watch channel, where a full channel round-trip would be
// overkill.
package atomicfloat

import (
	"math"
	"sync/atomic"
)

// Float64 encapsulates a float64 for non-locking atomic access. Values are
// stored as bit patterns so the zero value is ready to use.
type Float64 struct {
	bits atomic.Uint64
}

// New returns a Float64 initialized to val.
func New(val float64) *Float64 {
	f := &Float64{}
	f.bits.Store(math.Float64bits(val))
	return f
}

// Load atomically reads the current value.
func (f *Float64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Store atomically sets the value, discarding whatever was there.
func (f *Float64) Store(val float64) {
	f.bits.Store(math.Float64bits(val))
}

// Add atomically adds addend to the current value and returns the result.
// If a concurrent writer interleaves, the CAS retries against the freshest
// value rather than compounding a stale read.
func (f *Float64) Add(addend float64) (newVal float64) {
	for {
		old := f.bits.Load()
		newVal = math.Float64frombits(old) + addend
		if f.bits.CompareAndSwap(old, math.Float64bits(newVal)) {
			return newVal
		}
	}
}

// CompareAndSwap atomically sets the value to newVal if the current value
// equals old, and reports whether it succeeded.
func (f *Float64) CompareAndSwap(old, newVal float64) bool {
	return f.bits.CompareAndSwap(math.Float64bits(old), math.Float64bits(newVal))
}
