package dma

import (
	"time"

	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/sim"
)

// Builder can build DMA engines.
type Builder struct {
	regs   device.RegisterFile
	layout device.CDMARegisters
	policy PollPolicy
	now    func() time.Time
}

// MakeBuilder creates a builder with the Zedboard register layout and a
// policy that waits forever.
func MakeBuilder() Builder {
	return Builder{
		layout: device.DefaultAddressMap().CDMA,
		policy: WaitForever,
		now:    time.Now,
	}
}

// WithRegisterFile sets how the engine reaches the controller registers.
func (b Builder) WithRegisterFile(regs device.RegisterFile) Builder {
	b.regs = regs
	return b
}

// WithLayout sets the register layout of the controller.
func (b Builder) WithLayout(layout device.CDMARegisters) Builder {
	b.layout = layout
	return b
}

// WithPollPolicy bounds how long a transfer is waited for.
func (b Builder) WithPollPolicy(policy PollPolicy) Builder {
	b.policy = policy
	return b
}

// WithClock replaces the wall clock that the timeout is measured with.
func (b Builder) WithClock(now func() time.Time) Builder {
	b.now = now
	return b
}

// Build creates an engine.
func (b Builder) Build(name string) *Engine {
	b.parametersMustBeValid()
	sim.NameMustBeValid(name)

	return &Engine{
		name:   name,
		regs:   b.regs,
		layout: b.layout,
		policy: b.policy,
		now:    b.now,
	}
}

func (b Builder) parametersMustBeValid() {
	if b.regs == nil {
		panic("register file is not set")
	}

	if b.layout.IdleMask == 0 {
		panic("idle mask must not be 0")
	}

	if b.now == nil {
		panic("clock is not set")
	}
}
