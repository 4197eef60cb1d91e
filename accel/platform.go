// Package accel simulates the accelerator board: a central DMA controller,
// the accelerator memories with their bank swapping, the control registers,
// and a window of host memory.
package accel

import (
	"fmt"
	"log"
	"sync"

	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/dma"
	"github.com/sarchlab/bankcheck/mem"
	"github.com/sarchlab/bankcheck/sim"
)

// Platform is a simulated board. It is both the register file and the
// scratch buffer allocator that the DMA engine needs.
//
// Virtual time only moves when software reads the DMA status register: each
// read lets the hardware run for a few cycles, the way a polling CPU lets
// the real controller make progress.
type Platform struct {
	name       string
	lock       sync.Mutex
	engine     *sim.SerialEngine
	freq       sim.Freq
	pollCycles int
	addressMap device.AddressMap

	cdma        *CDMA
	control     *Control
	bus         *Interconnect
	hostAlloc   *mem.RangeAllocator
	activations [2]*mem.Storage
	filters     [2][]*mem.Storage
}

// Name returns the name of the board.
func (p *Platform) Name() string {
	return p.name
}

// Engine returns the event engine that drives the board.
func (p *Platform) Engine() sim.Engine {
	return p.engine
}

// CurrentTime returns the virtual time of the board.
func (p *Platform) CurrentTime() sim.VTimeInSec {
	return p.engine.CurrentTime()
}

// AddressMap returns the memory map of the board.
func (p *Platform) AddressMap() device.AddressMap {
	return p.addressMap
}

// CDMA returns the DMA controller.
func (p *Platform) CDMA() *CDMA {
	return p.cdma
}

// Control returns the control block.
func (p *Platform) Control() *Control {
	return p.control
}

// Interconnect returns the bus that the DMA controller reaches memories with.
func (p *Platform) Interconnect() *Interconnect {
	return p.bus
}

// Components lists the named parts of the board.
func (p *Platform) Components() []sim.Named {
	return []sim.Named{p.cdma, p.control}
}

// ReadRegister reads a device register. Reading the DMA status register lets
// the hardware run for one poll period.
func (p *Platform) ReadRegister(addr uint64) uint32 {
	p.lock.Lock()
	defer p.lock.Unlock()

	switch {
	case p.addressMap.CDMA.Window().Contains(addr, device.WordSize):
		if addr == p.addressMap.CDMA.Status() {
			p.advance()
		}

		return p.cdma.readRegister(addr)
	case p.addressMap.Control.Window().Contains(addr, device.WordSize):
		return p.control.readRegister(addr)
	}

	log.Panicf("%s: no register at 0x%08x", p.name, addr)

	return 0
}

// WriteRegister writes a device register.
func (p *Platform) WriteRegister(addr uint64, value uint32) {
	p.lock.Lock()
	defer p.lock.Unlock()

	switch {
	case p.addressMap.CDMA.Window().Contains(addr, device.WordSize):
		p.cdma.writeRegister(addr, value)
	case p.addressMap.Control.Window().Contains(addr, device.WordSize):
		p.control.writeRegister(addr, value)
	default:
		log.Panicf("%s: no register at 0x%08x", p.name, addr)
	}
}

func (p *Platform) advance() {
	until := p.freq.NCyclesLater(p.pollCycles, p.engine.CurrentTime())
	if err := p.engine.RunUntil(until); err != nil {
		panic(err)
	}
}

// Run lets the hardware run until it has nothing left to do.
func (p *Platform) Run() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.engine.Run()
}

// Alloc reserves a host buffer that the DMA controller can reach.
func (p *Platform) Alloc(size uint64) (dma.Mem, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	buf, err := p.allocHostBuffer(size)
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// HostBytesInUse returns how much host memory is held by live buffers.
func (p *Platform) HostBytesInUse() uint64 {
	return p.hostAlloc.InUse()
}

// Peek reads memory the way the DMA controller would see it right now,
// without using the controller.
func (p *Platform) Peek(addr, length uint64) ([]byte, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.bus.Read(addr, length)
}

// Poke writes memory the way the DMA controller would, without using the
// controller.
func (p *Platform) Poke(addr uint64, data []byte) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.bus.Write(addr, data)
}

// FilterBank returns the physical memory of a filter bank in a bank set.
func (p *Platform) FilterBank(set int, id device.RegionID) *mem.Storage {
	if !id.IsFilter() {
		panic(fmt.Sprintf("%s is not a filter bank", id))
	}

	return p.filters[set][id-device.Filter0]
}

// ActivationMemory returns one of the two physical activation memories.
// Memory 0 backs the input buffer until the activations are swapped.
func (p *Platform) ActivationMemory(i int) *mem.Storage {
	return p.activations[i]
}
