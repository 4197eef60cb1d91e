// Package devmem reaches a real board through /dev/mem. The DMA controller
// and the accelerator control block are mapped as register windows, and a
// reserved piece of physical memory serves as DMA scratch space.
package devmem

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/dma"
	"github.com/sarchlab/bankcheck/mem"
)

// ErrUnsupported is returned by Open on systems without /dev/mem.
var ErrUnsupported = errors.New("/dev/mem is not supported on this system")

// A mapper maps a physical region into the address space of the process.
type mapper interface {
	mapRegion(r mem.Region) ([]byte, error)
	unmapRegion(data []byte) error
	Close() error
}

type window struct {
	region mem.Region
	data   []byte
}

func (w *window) word(addr uint64) *uint32 {
	return (*uint32)(unsafe.Pointer(&w.data[w.region.Offset(addr)]))
}

// Board is a real board. It is both a device.RegisterFile and a
// dma.Allocator.
type Board struct {
	addressMap device.AddressMap
	mapper     mapper

	cdma    *window
	control *window
	scratch *window

	lock      sync.Mutex
	allocator *mem.RangeAllocator
	closed    bool
}

func newBoard(am device.AddressMap, m mapper) (*Board, error) {
	if err := am.Validate(); err != nil {
		return nil, err
	}

	b := &Board{addressMap: am, mapper: m}

	for _, w := range []struct {
		dst    **window
		region mem.Region
	}{
		{&b.cdma, am.CDMA.Window()},
		{&b.control, am.Control.Window()},
		{&b.scratch, am.HostScratch},
	} {
		data, err := m.mapRegion(w.region)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("mapping %s: %w", w.region, err), b.Close())
		}

		*w.dst = &window{region: w.region, data: data}
	}

	b.allocator = mem.NewRangeAllocator(am.HostScratch, 64)

	return b, nil
}

// AddressMap returns the memory map that the board was opened with.
func (b *Board) AddressMap() device.AddressMap {
	return b.addressMap
}

func (b *Board) registerWindow(addr uint64) *window {
	for _, w := range []*window{b.cdma, b.control} {
		if w.region.Contains(addr, device.WordSize) {
			return w
		}
	}

	log.Panicf("no register at 0x%08x", addr)

	return nil
}

// ReadRegister reads a 32-bit register.
func (b *Board) ReadRegister(addr uint64) uint32 {
	return atomic.LoadUint32(b.registerWindow(addr).word(addr))
}

// WriteRegister writes a 32-bit register.
func (b *Board) WriteRegister(addr uint64, value uint32) {
	atomic.StoreUint32(b.registerWindow(addr).word(addr), value)
}

// Alloc carves a buffer out of the scratch window.
func (b *Board) Alloc(size uint64) (dma.Mem, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return nil, errors.New("board is closed")
	}

	addr, err := b.allocator.Alloc(size)
	if err != nil {
		return nil, err
	}

	offset := b.scratch.region.Offset(addr)

	return &scratchMem{
		board: b,
		addr:  addr,
		data:  b.scratch.data[offset : offset+size : offset+size],
	}, nil
}

// Close unmaps every window. Buffers handed out by Alloc must not be used
// afterwards.
func (b *Board) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	var errs []error

	for _, w := range []*window{b.cdma, b.control, b.scratch} {
		if w != nil {
			errs = append(errs, b.mapper.unmapRegion(w.data))
		}
	}

	errs = append(errs, b.mapper.Close())

	return errors.Join(errs...)
}

type scratchMem struct {
	board *Board
	addr  uint64
	data  []byte
}

func (m *scratchMem) Buf() []byte {
	return m.data
}

func (m *scratchMem) PhysAddr() uint64 {
	return m.addr
}

func (m *scratchMem) Close() error {
	m.board.lock.Lock()
	defer m.board.lock.Unlock()

	return m.board.allocator.Free(m.addr)
}
