package mem

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Errors returned by RangeAllocator.
var (
	ErrOutOfMemory       = errors.New("out of memory")
	ErrUnknownAllocation = errors.New("address was not allocated")
	ErrInvalidAllocSize  = errors.New("invalid allocation size")
)

type span struct {
	base, size uint64
}

// RangeAllocator hands out aligned, non-overlapping chunks of a region with a
// first-fit policy.
type RangeAllocator struct {
	lock      sync.Mutex
	region    Region
	align     uint64
	free      []span
	allocated map[uint64]uint64
}

// NewRangeAllocator creates an allocator over region. Every chunk starts at a
// multiple of align and is rounded up to a multiple of align.
func NewRangeAllocator(region Region, align uint64) *RangeAllocator {
	if align == 0 {
		align = 1
	}

	a := &RangeAllocator{
		region:    region,
		align:     align,
		allocated: make(map[uint64]uint64),
	}

	start := alignUp(region.Base, align)
	if start < region.End() {
		a.free = []span{{base: start, size: alignDown(region.End()-start, align)}}
	}

	return a
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) / align * align
}

func alignDown(v, align uint64) uint64 {
	return v / align * align
}

// Alloc reserves size bytes and returns the base address.
func (a *RangeAllocator) Alloc(size uint64) (uint64, error) {
	if size == 0 {
		return 0, ErrInvalidAllocSize
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	size = alignUp(size, a.align)

	for i, s := range a.free {
		if s.size < size {
			continue
		}

		addr := s.base
		if s.size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = span{base: s.base + size, size: s.size - size}
		}

		a.allocated[addr] = size

		return addr, nil
	}

	return 0, fmt.Errorf("%w: 0x%x bytes in %s", ErrOutOfMemory, size, a.region)
}

// Free releases the chunk that starts at addr.
func (a *RangeAllocator) Free(addr uint64) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	size, ok := a.allocated[addr]
	if !ok {
		return fmt.Errorf("%w: 0x%x", ErrUnknownAllocation, addr)
	}

	delete(a.allocated, addr)
	a.free = append(a.free, span{base: addr, size: size})
	a.coalesce()

	return nil
}

func (a *RangeAllocator) coalesce() {
	sort.Slice(a.free, func(i, j int) bool {
		return a.free[i].base < a.free[j].base
	})

	merged := a.free[:0]
	for _, s := range a.free {
		n := len(merged)
		if n > 0 && merged[n-1].base+merged[n-1].size == s.base {
			merged[n-1].size += s.size
			continue
		}

		merged = append(merged, s)
	}

	a.free = merged
}

// InUse returns the number of bytes currently allocated.
func (a *RangeAllocator) InUse() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()

	total := uint64(0)
	for _, size := range a.allocated {
		total += size
	}

	return total
}
