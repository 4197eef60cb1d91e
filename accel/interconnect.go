package accel

import (
	"errors"
	"fmt"

	"github.com/sarchlab/bankcheck/mem"
)

var (
	// errDecode means that no memory answers at an address.
	errDecode = errors.New("decode error")

	// errSlave means that a memory answered but refused the access.
	errSlave = errors.New("slave error")
)

// A target is a memory that sits behind the interconnect. Offsets are
// relative to the region the target is mapped at.
type target interface {
	read(offset, length uint64) ([]byte, error)
	write(offset uint64, data []byte) error
}

// storageTarget is a single physical memory.
type storageTarget struct {
	storage *mem.Storage
}

func (t storageTarget) read(offset, length uint64) ([]byte, error) {
	data, err := t.storage.Read(offset, length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSlave, err)
	}

	return data, nil
}

func (t storageTarget) write(offset uint64, data []byte) error {
	if err := t.storage.Write(offset, data); err != nil {
		return fmt.Errorf("%w: %w", errSlave, err)
	}

	return nil
}

// bankSelector decides which physical bank serves an access.
type bankSelector interface {
	Select(numBanks int) int
}

// bankedTarget is a logical memory served by one of several physical banks.
type bankedTarget struct {
	banks    []*mem.Storage
	selector bankSelector
}

func (t bankedTarget) bank() storageTarget {
	return storageTarget{storage: t.banks[t.selector.Select(len(t.banks))]}
}

func (t bankedTarget) read(offset, length uint64) ([]byte, error) {
	return t.bank().read(offset, length)
}

func (t bankedTarget) write(offset uint64, data []byte) error {
	return t.bank().write(offset, data)
}

// Interconnect decodes bus addresses and forwards accesses to the memory
// that is mapped there. An access may span several adjacent memories.
type Interconnect struct {
	mapper *mem.RegionMapper[target]
}

func newInterconnect() *Interconnect {
	return &Interconnect{mapper: mem.NewRegionMapper[target]()}
}

func (ic *Interconnect) attach(r mem.Region, t target) {
	if err := ic.mapper.Add(r, t); err != nil {
		panic(err)
	}
}

func (ic *Interconnect) detach(base uint64) {
	ic.mapper.Remove(base)
}

// Regions lists what is mapped, in address order.
func (ic *Interconnect) Regions() []mem.Region {
	mappings := ic.mapper.Mappings()
	regions := make([]mem.Region, len(mappings))

	for i, m := range mappings {
		regions[i] = m.Region
	}

	return regions
}

func (ic *Interconnect) forEachSegment(
	addr, length uint64,
	f func(m mem.Mapping[target], addr, done, n uint64) error,
) error {
	done := uint64(0)

	for done < length {
		curr := addr + done

		m, ok := ic.mapper.Find(curr)
		if !ok {
			return fmt.Errorf("%w at 0x%08x", errDecode, curr)
		}

		n := min(length-done, m.Region.End()-curr)
		if err := f(m, curr, done, n); err != nil {
			return err
		}

		done += n
	}

	return nil
}

// Read returns length bytes starting at addr.
func (ic *Interconnect) Read(addr, length uint64) ([]byte, error) {
	res := make([]byte, length)

	err := ic.forEachSegment(addr, length,
		func(m mem.Mapping[target], curr, done, n uint64) error {
			data, err := m.Target.read(m.Region.Offset(curr), n)
			if err != nil {
				return err
			}

			copy(res[done:done+n], data)

			return nil
		})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Write stores data starting at addr.
func (ic *Interconnect) Write(addr uint64, data []byte) error {
	return ic.forEachSegment(addr, uint64(len(data)),
		func(m mem.Mapping[target], curr, done, n uint64) error {
			return m.Target.write(m.Region.Offset(curr), data[done:done+n])
		})
}
