package accel

import (
	"sync"

	"github.com/sarchlab/bankcheck/device"
)

// Control is the register block of the accelerator. It decides which
// physical memories back the filter and the activation regions.
type Control struct {
	name      string
	layout    device.ControlRegisters
	boardLock *sync.Mutex

	ignoreSwaps bool

	filterSet       int
	activationSet   int
	mode            uint32
	params          [device.NumConvParams]uint32
	filterSwaps     uint64
	activationSwaps uint64
}

// Name returns the name of the control block.
func (c *Control) Name() string {
	return c.name
}

// FilterSet returns the index of the physical filter bank set that is
// active.
func (c *Control) FilterSet() int {
	return c.filterSet
}

// ActivationSet returns the index of the physical memory that backs the
// input buffer. The other one backs the output buffer.
func (c *Control) ActivationSet() int {
	return c.activationSet
}

// SwapCounts returns how many filter and activation swaps were requested.
func (c *Control) SwapCounts() (filters, activations uint64) {
	return c.filterSwaps, c.activationSwaps
}

func (c *Control) readRegister(addr uint64) uint32 {
	switch addr {
	case c.layout.CtrlA():
		return c.layout.ConvIdleBit
	case c.layout.CtrlB():
		return c.mode
	}

	if p, ok := c.convParamAt(addr); ok {
		return c.params[p]
	}

	return 0
}

func (c *Control) writeRegister(addr uint64, value uint32) {
	switch addr {
	case c.layout.CtrlA():
		return
	case c.layout.CtrlB():
		c.writeCtrlB(value)
		return
	}

	if p, ok := c.convParamAt(addr); ok {
		c.params[p] = value
	}
}

func (c *Control) writeCtrlB(value uint32) {
	c.mode = value & c.layout.ModeMask()

	if value&c.layout.SwapFiltersBit != 0 {
		c.filterSwaps++

		if !c.ignoreSwaps {
			c.filterSet ^= 1
		}
	}

	if value&c.layout.SwapActivationsBit != 0 {
		c.activationSwaps++

		if !c.ignoreSwaps {
			c.activationSet ^= 1
		}
	}
}

func (c *Control) convParamAt(addr uint64) (device.ConvParam, bool) {
	first := c.layout.ConvParam(0)
	if addr < first || (addr-first)%device.WordSize != 0 {
		return 0, false
	}

	p := device.ConvParam((addr - first) / device.WordSize)
	if p >= device.NumConvParams {
		return 0, false
	}

	return p, true
}

type filterSelector struct {
	control *Control
}

func (s filterSelector) Select(numBanks int) int {
	return s.control.filterSet % numBanks
}

type activationSelector struct {
	control *Control
	output  bool
}

func (s activationSelector) Select(numBanks int) int {
	set := s.control.activationSet
	if s.output {
		set ^= 1
	}

	return set % numBanks
}
