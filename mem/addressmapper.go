package mem

import (
	"fmt"
	"sort"
)

// A Mapping binds a region of the address space to whatever serves it.
type Mapping[T any] struct {
	Region Region
	Target T
}

// RegionMapper finds the target that serves an address. Regions never
// overlap.
type RegionMapper[T any] struct {
	mappings []Mapping[T]
}

// NewRegionMapper creates an empty RegionMapper.
func NewRegionMapper[T any]() *RegionMapper[T] {
	return &RegionMapper[T]{}
}

// Add maps a region to a target.
func (m *RegionMapper[T]) Add(r Region, target T) error {
	if r.Size == 0 {
		return fmt.Errorf("%w: %s", ErrRegionEmpty, r.Name)
	}

	for _, existing := range m.mappings {
		if existing.Region.Overlaps(r) {
			return fmt.Errorf("%w: %s and %s",
				ErrRegionOverlap, existing.Region, r)
		}
	}

	m.mappings = append(m.mappings, Mapping[T]{Region: r, Target: target})
	sort.Slice(m.mappings, func(i, j int) bool {
		return m.mappings[i].Region.Base < m.mappings[j].Region.Base
	})

	return nil
}

// Find returns the mapping that holds address.
func (m *RegionMapper[T]) Find(address uint64) (Mapping[T], bool) {
	i := sort.Search(len(m.mappings), func(i int) bool {
		return m.mappings[i].Region.End() > address
	})

	if i < len(m.mappings) && m.mappings[i].Region.Base <= address {
		return m.mappings[i], true
	}

	return Mapping[T]{}, false
}

// Remove drops the mapping of the region that starts at base.
func (m *RegionMapper[T]) Remove(base uint64) bool {
	for i, mapping := range m.mappings {
		if mapping.Region.Base == base {
			m.mappings = append(m.mappings[:i], m.mappings[i+1:]...)
			return true
		}
	}

	return false
}

// Mappings returns all the mappings ordered by base address.
func (m *RegionMapper[T]) Mappings() []Mapping[T] {
	return append([]Mapping[T](nil), m.mappings...)
}
