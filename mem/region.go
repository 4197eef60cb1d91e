package mem

import (
	"errors"
	"fmt"
	"sort"
)

// Errors reported when validating regions.
var (
	ErrRegionOverlap    = errors.New("regions overlap")
	ErrRegionMisaligned = errors.New("region is not aligned")
	ErrRegionEmpty      = errors.New("region is empty")
)

// A Region is a named window of the physical address space.
type Region struct {
	Name string
	Base uint64
	Size uint64
}

// End returns the first address after the region.
func (r Region) End() uint64 {
	return r.Base + r.Size
}

// Contains tells if [addr, addr+length) lies entirely inside the region.
func (r Region) Contains(addr, length uint64) bool {
	if addr < r.Base {
		return false
	}

	offset := addr - r.Base

	return offset <= r.Size && length <= r.Size-offset
}

// Overlaps tells if the two regions share at least one byte.
func (r Region) Overlaps(o Region) bool {
	if r.Size == 0 || o.Size == 0 {
		return false
	}

	return r.Base < o.End() && o.Base < r.End()
}

// Offset converts an address inside the region to an offset from its base.
func (r Region) Offset(addr uint64) uint64 {
	return addr - r.Base
}

// Validate checks that the region is not empty and that both its base and its
// size are multiples of align.
func (r Region) Validate(align uint64) error {
	if r.Size == 0 {
		return fmt.Errorf("%w: %s", ErrRegionEmpty, r.Name)
	}

	if align > 0 && (r.Base%align != 0 || r.Size%align != 0) {
		return fmt.Errorf("%w: %s at 0x%x size 0x%x, alignment %d",
			ErrRegionMisaligned, r.Name, r.Base, r.Size, align)
	}

	return nil
}

func (r Region) String() string {
	return fmt.Sprintf("%s[0x%08x, 0x%08x)", r.Name, r.Base, r.End())
}

// CheckDisjoint returns an error naming the first two regions that overlap.
func CheckDisjoint(regions ...Region) error {
	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Base < sorted[j].Base
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Overlaps(sorted[i]) {
			return fmt.Errorf("%w: %s and %s",
				ErrRegionOverlap, sorted[i-1], sorted[i])
		}
	}

	return nil
}
