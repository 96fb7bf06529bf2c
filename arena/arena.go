// Package arena provides fixed-capacity slot storage with an O(1) free-index stack.
package arena

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// Invalid is the sentinel index. It is never a valid slot.
const Invalid uint32 = math.MaxUint32

var (
	// ErrInvalidCapacity is returned by New for a zero or sentinel capacity.
	ErrInvalidCapacity = errors.New("arena: invalid capacity")
	// ErrCapacityExhausted is returned by Alloc when no slot is free.
	ErrCapacityExhausted = errors.New("arena: capacity exhausted")
	// ErrDoubleFree is returned by Free when the index is already free
	// or the free stack is full.
	ErrDoubleFree = errors.New("arena: double free")
	// ErrOutOfRange is returned by Free for an index outside the arena.
	ErrOutOfRange = errors.New("arena: index out of range")
	// ErrShapeMismatch is returned when copying or restoring state of a different capacity.
	ErrShapeMismatch = errors.New("arena: shape mismatch")
)

// Arena stores up to capacity records of T addressed by uint32 index.
//
// Alloc may be called from many goroutines at once; the free pointer is
// claimed by compare-and-swap. Free, Set, CopyFrom and Restore must not
// overlap with Alloc.
type Arena[T any] struct {
	records   []T
	freeStack []uint32
	freePtr   atomic.Uint32
	isFree    []bool
	capacity  uint32
}

// New creates an arena with every slot free and holding the zero T.
func New[T any](capacity uint32) (*Arena[T], error) {
	if capacity == 0 || capacity == Invalid {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	a := &Arena[T]{
		records:   make([]T, capacity),
		freeStack: make([]uint32, capacity),
		isFree:    make([]bool, capacity),
		capacity:  capacity,
	}
	for i := range a.freeStack {
		a.freeStack[i] = uint32(i)
		a.isFree[i] = true
	}
	a.freePtr.Store(capacity)
	return a, nil
}

// Alloc pops a free index. The slot keeps whatever the previous tenant left;
// callers overwrite it.
func (a *Arena[T]) Alloc() (uint32, error) {
	for {
		p := a.freePtr.Load()
		if p == 0 {
			return Invalid, ErrCapacityExhausted
		}
		if a.freePtr.CompareAndSwap(p, p-1) {
			idx := a.freeStack[p-1]
			a.isFree[idx] = false
			return idx, nil
		}
	}
}

// Free pushes index back onto the free stack. Record fields are untouched.
func (a *Arena[T]) Free(index uint32) error {
	if index >= a.capacity {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	p := a.freePtr.Load()
	if p == a.capacity || a.isFree[index] {
		return fmt.Errorf("%w: %d", ErrDoubleFree, index)
	}
	a.freeStack[p] = index
	a.isFree[index] = true
	a.freePtr.Store(p + 1)
	return nil
}

// Get returns a copy of the record at index. Panics if out of range.
func (a *Arena[T]) Get(index uint32) T {
	return a.records[index]
}

// Set overwrites the record at index. Panics if out of range.
func (a *Arena[T]) Set(index uint32, v T) {
	a.records[index] = v
}

// Ref returns a pointer into the backing store. Panics if out of range.
func (a *Arena[T]) Ref(index uint32) *T {
	return &a.records[index]
}

// IsFree reports whether index is currently on the free stack.
func (a *Arena[T]) IsFree(index uint32) bool {
	return a.isFree[index]
}

// Size returns the capacity.
func (a *Arena[T]) Size() uint32 {
	return a.capacity
}

// CurrentSize returns the number of allocated slots.
func (a *Arena[T]) CurrentSize() uint32 {
	return a.capacity - a.freePtr.Load()
}

// Records exposes the backing slice, live and free slots alike.
func (a *Arena[T]) Records() []T {
	return a.records
}

// CopyFrom makes a an exact copy of src. Both arenas must have the same capacity.
func (a *Arena[T]) CopyFrom(src *Arena[T]) error {
	if a.capacity != src.capacity {
		return fmt.Errorf("%w: capacity %d vs %d", ErrShapeMismatch, a.capacity, src.capacity)
	}
	copy(a.records, src.records)
	copy(a.freeStack, src.freeStack)
	copy(a.isFree, src.isFree)
	a.freePtr.Store(src.freePtr.Load())
	return nil
}

// Clone returns an independent copy of the arena.
func (a *Arena[T]) Clone() *Arena[T] {
	c, _ := New[T](a.capacity)
	_ = c.CopyFrom(a)
	return c
}

// State is the record-for-record persisted form of an arena.
type State[T any] struct {
	Records   []T      `json:"records"`
	FreeStack []uint32 `json:"free_stack"`
	FreePtr   uint32   `json:"free_ptr"`
}

// Export returns a deep copy of the arena contents.
func (a *Arena[T]) Export() State[T] {
	s := State[T]{
		Records:   make([]T, len(a.records)),
		FreeStack: make([]uint32, len(a.freeStack)),
		FreePtr:   a.freePtr.Load(),
	}
	copy(s.Records, a.records)
	copy(s.FreeStack, a.freeStack)
	return s
}

// Restore builds an arena from exported state, validating the free stack.
func Restore[T any](s State[T]) (*Arena[T], error) {
	n := uint32(len(s.Records))
	a, err := New[T](n)
	if err != nil {
		return nil, err
	}
	if uint32(len(s.FreeStack)) != n || s.FreePtr > n {
		return nil, fmt.Errorf("%w: %d records, %d free stack entries, free_ptr %d",
			ErrShapeMismatch, n, len(s.FreeStack), s.FreePtr)
	}
	copy(a.records, s.Records)
	copy(a.freeStack, s.FreeStack)
	for i := range a.isFree {
		a.isFree[i] = false
	}
	for _, idx := range s.FreeStack[:s.FreePtr] {
		if idx >= n || a.isFree[idx] {
			return nil, fmt.Errorf("%w: bad free stack entry %d", ErrShapeMismatch, idx)
		}
		a.isFree[idx] = true
	}
	a.freePtr.Store(s.FreePtr)
	return a, nil
}
